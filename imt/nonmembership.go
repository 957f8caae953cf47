package imt

import (
	"fmt"
	"math/big"

	"github.com/shieldpool/nulltree/hash/poseidon2"
)

// NonMembershipWitness proves "value is not in the tree with root R": the
// low element, its leaf index and its merkle path to R.
type NonMembershipWitness struct {
	Value    *big.Int
	LowIndex uint64
	Low      *IndexedNode
	Path     []*big.Int
}

// NonMembershipWitness builds the witness for v against the current tree
// state. Returns ErrAlreadyPresent when v is a member.
func (t *Tree) NonMembershipWitness(v *big.Int) (*NonMembershipWitness, error) {
	lowIdx, low, err := t.FindLowElement(v)
	if err != nil {
		return nil, err
	}
	if low.NextValue.Cmp(v) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyPresent, v)
	}
	path, err := t.MerkleProof(lowIdx)
	if err != nil {
		return nil, err
	}
	return &NonMembershipWitness{
		Value:    new(big.Int).Set(v),
		LowIndex: lowIdx,
		Low:      low,
		Path:     path,
	}, nil
}

// VerifyNonMembership natively re-runs the checks the circuit performs:
//
//  1. ordering: low.value < v, and v < low.nextValue unless the low element
//     holds the maximum (nextValue == 0). Full-width field comparison.
//  2. existence: H3(low.value, low.nextIndex, low.nextValue) is a leaf
//     whose merkle path recomputes to root.
func VerifyNonMembership(root *big.Int, w *NonMembershipWitness, height int) error {
	if w == nil || w.Low == nil || root == nil {
		return fmt.Errorf("%w: nil witness", ErrMalformedInput)
	}
	if len(w.Path) != height {
		return fmt.Errorf("%w: path length %d, want %d", ErrMalformedInput, len(w.Path), height)
	}
	if err := checkValue(w.Value); err != nil {
		return err
	}
	if !poseidon2.InField(w.Low.Value) || !poseidon2.InField(w.Low.NextValue) {
		return fmt.Errorf("%w: low element outside field", ErrMalformedInput)
	}

	if w.Low.Value.Cmp(w.Value) >= 0 {
		return fmt.Errorf("%w: low.value %s >= %s", ErrOrderingViolation, w.Low.Value, w.Value)
	}
	if w.Low.NextValue.Sign() != 0 && w.Value.Cmp(w.Low.NextValue) >= 0 {
		return fmt.Errorf("%w: %s >= low.nextValue %s", ErrOrderingViolation, w.Value, w.Low.NextValue)
	}

	leaf, err := w.Low.Hash()
	if err != nil {
		return err
	}
	got, err := PathRoot(leaf, w.LowIndex, w.Path)
	if err != nil {
		return err
	}
	if got.Cmp(root) != 0 {
		return ErrMerkleProofMismatch
	}
	return nil
}

// PathRoot recomputes the root implied by a leaf hash, its index and its
// sibling path.
func PathRoot(leaf *big.Int, index uint64, path []*big.Int) (*big.Int, error) {
	cur := new(big.Int).Set(leaf)
	var err error
	for _, sib := range path {
		if sib == nil {
			return nil, fmt.Errorf("%w: nil sibling", ErrMalformedInput)
		}
		if index&1 == 0 {
			cur, err = poseidon2.Hash2(cur, sib)
		} else {
			cur, err = poseidon2.Hash2(sib, cur)
		}
		if err != nil {
			return nil, err
		}
		index >>= 1
	}
	return cur, nil
}
