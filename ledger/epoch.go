// Package ledger implements the on-chain side of the nullifier set: an
// epoch manager that verifies non-membership proofs against a snapshotted
// root, tracks nullifiers accepted since that snapshot in a pending set,
// and periodically folds the pending set into the tree.
package ledger

import (
	"errors"
	"math/big"
	"time"
)

var (
	// ErrStaleRoot rejects a submission whose proof targets a root that is
	// not the current epoch's snapshot.
	ErrStaleRoot = errors.New("ledger: proof root is not the active epoch root")

	// ErrDoubleInsertion rejects a submission containing a nullifier that
	// was already accepted in the current epoch.
	ErrDoubleInsertion = errors.New("ledger: nullifier already pending in this epoch")
)

// EpochSnapshot records the tree root that is authoritative for proof
// verification during one epoch.
type EpochSnapshot struct {
	EpochID   uint64    `json:"epochId"`
	Root      *big.Int  `json:"root"`
	CreatedAt time.Time `json:"createdAt"`
}

// PendingEntry tracks one nullifier accepted since the active snapshot was
// taken but not yet folded into the tree.
type PendingEntry struct {
	Value      *big.Int  `json:"value"`
	InsertedAt time.Time `json:"insertedAt"`
	EpochID    uint64    `json:"epochId"`
}

// PendingSet maps a nullifier's canonical 32-byte key to its entry.
type PendingSet map[string]*PendingEntry

func pendingKey(v *big.Int) string {
	var buf [32]byte
	v.FillBytes(buf[:])
	return string(buf[:])
}

// Has reports whether v is already in the set.
func (s PendingSet) Has(v *big.Int) bool {
	_, ok := s[pendingKey(v)]
	return ok
}

func (s PendingSet) add(v *big.Int, at time.Time, epochID uint64) {
	s[pendingKey(v)] = &PendingEntry{
		Value:      new(big.Int).Set(v),
		InsertedAt: at,
		EpochID:    epochID,
	}
}

// Values returns the pending nullifiers in ascending order, the order
// rollover feeds them to the tree.
func (s PendingSet) Values() []*big.Int {
	out := make([]*big.Int, 0, len(s))
	for _, e := range s {
		out = append(out, e.Value)
	}
	sortValues(out)
	return out
}
