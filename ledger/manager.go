package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shieldpool/nulltree/hash/poseidon2"
	"github.com/shieldpool/nulltree/imt"
	"github.com/shieldpool/nulltree/logging"
	"github.com/shieldpool/nulltree/prover"
)

// rollover drains the pending set in bounded chunks; a single step never
// touches more leaves than the largest chunk size that fits.
var rolloverChunks = []int{64, 16, 4}

// Manager serializes all writes to the tree and the pending set behind one
// mutex. Concurrent insertions racing on the same low element would corrupt
// the linked list, so every entry point takes the lock for its full
// duration.
type Manager struct {
	mu       sync.Mutex
	tree     *imt.Tree
	verifier prover.Verifier
	epoch    EpochSnapshot
	pending  PendingSet
	rollover *rolloverState
	now      func() time.Time
	log      zerolog.Logger
}

// rolloverState survives a failed rollover step so the next call resumes
// instead of restarting. remaining is sorted ascending.
type rolloverState struct {
	remaining []*big.Int
}

// NewManager starts epoch 0 over the given tree with an empty pending set.
// The verifier checks submitted proofs against the public input ordering
// [root, nullifier_1..N].
func NewManager(tree *imt.Tree, verifier prover.Verifier) (*Manager, error) {
	if tree == nil || verifier == nil {
		return nil, fmt.Errorf("%w: manager needs a tree and a verifier", imt.ErrMalformedInput)
	}
	m := &Manager{
		tree:     tree,
		verifier: verifier,
		pending:  make(PendingSet),
		now:      time.Now,
		log:      logging.Logger().With().Str("component", "ledger").Logger(),
	}
	m.epoch = EpochSnapshot{EpochID: 0, Root: tree.Root(), CreatedAt: m.now()}
	return m, nil
}

// Snapshot returns the active epoch snapshot.
func (m *Manager) Snapshot() EpochSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// PendingCount returns the number of nullifiers awaiting rollover.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Pending returns the pending nullifiers in ascending order.
func (m *Manager) Pending() []*big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending.Values()
}

// SubmitNullifiers accepts a batch of nullifiers backed by a single
// non-membership proof. The proof must target the active epoch's snapshot
// root, and none of the nullifiers may already be pending: the pending set
// closes the window in which two proofs against the same stale root could
// both verify for the same nullifier. The batch is all-or-nothing.
func (m *Manager) SubmitNullifiers(epochID uint64, root *big.Int, nullifiers []*big.Int, proof []byte) error {
	if root == nil || len(nullifiers) == 0 || len(proof) == 0 {
		return fmt.Errorf("%w: submission needs a root, nullifiers and a proof", imt.ErrMalformedInput)
	}
	for i, v := range nullifiers {
		if v == nil || v.Sign() <= 0 || !poseidon2.InField(v) {
			return fmt.Errorf("%w: nullifier %d", imt.ErrMalformedInput, i)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rollover != nil {
		return ErrStaleRoot
	}
	if epochID != m.epoch.EpochID || root.Cmp(m.epoch.Root) != 0 {
		return ErrStaleRoot
	}

	publicInputs := make([]*big.Int, 0, 1+len(nullifiers))
	publicInputs = append(publicInputs, root)
	publicInputs = append(publicInputs, nullifiers...)
	if err := m.verifier.Verify(proof, publicInputs); err != nil {
		return err
	}

	for _, v := range nullifiers {
		if m.pending.Has(v) {
			return fmt.Errorf("%w: %s", ErrDoubleInsertion, v)
		}
	}
	seen := make(map[string]struct{}, len(nullifiers))
	for _, v := range nullifiers {
		k := pendingKey(v)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: %s repeated in submission", ErrDoubleInsertion, v)
		}
		seen[k] = struct{}{}
	}

	at := m.now()
	for _, v := range nullifiers {
		m.pending.add(v, at, m.epoch.EpochID)
	}
	m.log.Debug().
		Uint64("epoch", m.epoch.EpochID).
		Int("nullifiers", len(nullifiers)).
		Int("pending", len(m.pending)).
		Msg("accepted submission")
	return nil
}

// Rollover folds the pending set into the tree in bounded chunks, advances
// the epoch and returns the new snapshot. If a step fails partway, the
// drained values are retained and the next call resumes where it stopped;
// values already in the tree from a replayed chunk are skipped.
func (m *Manager) Rollover() (EpochSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rollover == nil {
		m.rollover = &rolloverState{remaining: m.pending.Values()}
	}

	for len(m.rollover.remaining) > 0 {
		n := chunkSize(len(m.rollover.remaining))
		chunk := m.rollover.remaining[:n]
		if err := m.applyChunk(chunk); err != nil {
			m.log.Error().Err(err).Int("chunk", n).Msg("rollover step failed")
			return EpochSnapshot{}, err
		}
		m.rollover.remaining = m.rollover.remaining[n:]
	}

	m.rollover = nil
	m.pending = make(PendingSet)
	m.epoch = EpochSnapshot{
		EpochID:   m.epoch.EpochID + 1,
		Root:      m.tree.Root(),
		CreatedAt: m.now(),
	}
	m.log.Info().
		Uint64("epoch", m.epoch.EpochID).
		Str("root", m.epoch.Root.String()).
		Msg("rollover complete")
	return m.epoch, nil
}

// applyChunk batch-inserts one chunk. A replayed chunk (resumed rollover)
// hits ErrAlreadyPresent; in that case the chunk degrades to per-value
// inserts that skip values already folded in.
func (m *Manager) applyChunk(chunk []*big.Int) error {
	_, err := m.tree.BatchInsert(chunk)
	if err == nil {
		return nil
	}
	if !errors.Is(err, imt.ErrAlreadyPresent) {
		return err
	}
	for _, v := range chunk {
		if _, err := m.tree.Insert(v); err != nil && !errors.Is(err, imt.ErrAlreadyPresent) {
			return err
		}
	}
	return nil
}

func chunkSize(n int) int {
	for _, c := range rolloverChunks {
		if n >= c {
			return c
		}
	}
	return n
}

func sortValues(vs []*big.Int) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Cmp(vs[j]) < 0 })
}
