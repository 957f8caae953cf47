package circuits

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"

	"github.com/shieldpool/nulltree/imt"
)

// NonMembershipAssignment builds the witness assignment from native
// low-element witnesses. All witnesses must target the same root.
func NonMembershipAssignment(root *big.Int, ws []*imt.NonMembershipWitness, height int) (*NonMembershipCircuit, error) {
	if len(ws) == 0 {
		return nil, fmt.Errorf("%w: no witnesses", imt.ErrMalformedInput)
	}
	c := NewNonMembershipCircuit(height, len(ws))
	c.Root = root
	for i, w := range ws {
		if w == nil || w.Low == nil {
			return nil, fmt.Errorf("%w: nil witness %d", imt.ErrMalformedInput, i)
		}
		if len(w.Path) != height {
			return nil, fmt.Errorf("%w: witness %d path length %d, want %d", imt.ErrMalformedInput, i, len(w.Path), height)
		}
		c.Values[i] = w.Value
		c.LowValues[i] = w.Low.Value
		c.LowNextValues[i] = w.Low.NextValue
		c.LowNextIndices[i] = w.Low.NextIndex
		c.LowIndices[i] = w.LowIndex
		for d, sib := range w.Path {
			c.Siblings[i][d] = sib
		}
	}
	return c, nil
}

// NonMembershipPublicAssignment carries only the public inputs, for
// verification.
func NonMembershipPublicAssignment(root *big.Int, values []*big.Int, height int) (*NonMembershipCircuit, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values", imt.ErrMalformedInput)
	}
	c := NewNonMembershipCircuit(height, len(values))
	c.Root = root
	for i, v := range values {
		c.Values[i] = v
	}
	return c, nil
}

// BatchInsertionAssignment builds the witness assignment from a native
// batch witness.
func BatchInsertionAssignment(w *imt.BatchWitness, height int) (*BatchInsertionCircuit, error) {
	if w == nil || len(w.Inserts) == 0 {
		return nil, fmt.Errorf("%w: empty batch witness", imt.ErrMalformedInput)
	}
	c := NewBatchInsertionCircuit(height, len(w.Inserts))
	c.OldRoot = w.OldRoot
	c.NewRoot = w.NewRoot
	c.StartIndex = w.StartIndex
	for i, ins := range w.Inserts {
		if len(ins.LowPath) != height || len(ins.NewPath) != height {
			return nil, fmt.Errorf("%w: insert %d path length", imt.ErrMalformedInput, i)
		}
		c.Values[i] = ins.Value
		c.LowValues[i] = ins.OldLow.Value
		c.LowNextValues[i] = ins.OldLow.NextValue
		c.LowNextIndices[i] = ins.OldLow.NextIndex
		c.LowIndices[i] = ins.LowIndex
		for d := 0; d < height; d++ {
			c.LowSiblings[i][d] = ins.LowPath[d]
			c.NewSiblings[i][d] = ins.NewPath[d]
		}
	}
	return c, nil
}

// BatchInsertionPublicAssignment carries only the public inputs, for
// verification.
func BatchInsertionPublicAssignment(oldRoot, newRoot *big.Int, values []*big.Int, height int) (*BatchInsertionCircuit, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values", imt.ErrMalformedInput)
	}
	c := NewBatchInsertionCircuit(height, len(values))
	c.OldRoot = oldRoot
	c.NewRoot = newRoot
	for i, v := range values {
		c.Values[i] = v
	}
	return c, nil
}

var _ frontend.Circuit = (*NonMembershipCircuit)(nil)
var _ frontend.Circuit = (*BatchInsertionCircuit)(nil)
