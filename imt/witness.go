package imt

import (
	"fmt"
	"math/big"
	"sort"
)

// InsertWitness captures one insertion at exactly the points the insertion
// circuit consumes it: the low element and its merkle path before the next
// pointer rewrite, and the new leaf's merkle path after the rewrite but
// before the leaf is written.
type InsertWitness struct {
	Value    *big.Int
	LowIndex uint64
	OldLow   *IndexedNode
	LowPath  []*big.Int
	NewIndex uint64
	NewPath  []*big.Int
}

// BatchWitness is the witness for one batch insertion producing one root
// transition.
type BatchWitness struct {
	OldRoot    *big.Int
	NewRoot    *big.Int
	StartIndex uint64
	Inserts    []*InsertWitness
}

// Values returns the inserted values in application (ascending) order.
func (w *BatchWitness) Values() []*big.Int {
	vs := make([]*big.Int, len(w.Inserts))
	for i, ins := range w.Inserts {
		vs[i] = ins.Value
	}
	return vs
}

// BatchInsert applies the values as one logical step and returns the new
// root. The batch is sorted ascending first, so the resulting root is
// independent of submission order and equals the root of inserting the
// values one at a time in ascending order.
func (t *Tree) BatchInsert(values []*big.Int) (*big.Int, error) {
	w, err := t.BatchInsertWithWitness(values)
	if err != nil {
		return nil, err
	}
	return w.NewRoot, nil
}

// BatchInsertWithWitness is BatchInsert plus the circuit witness. Low
// elements are resolved against the tree state as mutated by earlier
// elements of the same batch: when two new values are adjacent in sort
// order, the second one's low element is the first.
//
// The batch is validated up front (field range, duplicates, membership
// against the pre-batch tree), so rejected batches leave the tree
// untouched.
func (t *Tree) BatchInsertWithWitness(values []*big.Int) (*BatchWitness, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrMalformedInput)
	}
	if t.Count()+uint64(len(values)) > t.Capacity() {
		return nil, ErrCapacityExceeded
	}
	batch := make([]*big.Int, len(values))
	for i, v := range values {
		if err := checkValue(v); err != nil {
			return nil, err
		}
		batch[i] = new(big.Int).Set(v)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Cmp(batch[j]) < 0 })
	for i := 1; i < len(batch); i++ {
		if batch[i].Cmp(batch[i-1]) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateInBatch, batch[i])
		}
	}
	// membership pre-check against the pre-batch tree; sorted and
	// duplicate-free, so no batch value can collide with another
	for _, v := range batch {
		_, low, err := t.FindLowElement(v)
		if err != nil {
			return nil, err
		}
		if low.NextValue.Cmp(v) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyPresent, v)
		}
	}

	w := &BatchWitness{
		OldRoot:    t.Root(),
		StartIndex: t.Count(),
		Inserts:    make([]*InsertWitness, 0, len(batch)),
	}
	for _, v := range batch {
		ins, err := t.insert(v)
		if err != nil {
			return nil, err
		}
		w.Inserts = append(w.Inserts, ins)
	}
	w.NewRoot = t.Root()
	return w, nil
}
