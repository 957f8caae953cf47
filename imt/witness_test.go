package imt

import (
	"math/big"
	"math/rand"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestBatchMatchesSequential(t *testing.T) {
	c := qt.New(t)

	batchTree := newTestTree(t)
	seqTree := newTestTree(t)

	root, err := batchTree.BatchInsert(bigs(10, 5, 20, 1))
	c.Assert(err, qt.IsNil)

	var seqRoot *big.Int
	for _, v := range bigs(1, 5, 10, 20) {
		seqRoot, err = seqTree.Insert(v)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(root.Cmp(seqRoot), qt.Equals, 0)
}

func TestBatchOrderIndependence(t *testing.T) {
	c := qt.New(t)

	perms := [][]int64{
		{10, 5, 20, 1},
		{1, 5, 10, 20},
		{20, 10, 5, 1},
		{5, 20, 1, 10},
	}
	var want *big.Int
	for _, p := range perms {
		tree := newTestTree(t)
		root, err := tree.BatchInsert(bigs(p...))
		c.Assert(err, qt.IsNil)
		if want == nil {
			want = root
			continue
		}
		c.Assert(root.Cmp(want), qt.Equals, 0, qt.Commentf("perm %v", p))
	}
}

// two adjacent batch values: the second's low element is the first, inserted
// moments earlier in the same batch
func TestBatchChaining(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)

	w, err := tree.BatchInsertWithWitness(bigs(100, 101))
	c.Assert(err, qt.IsNil)
	c.Assert(w.Inserts, qt.HasLen, 2)
	c.Assert(w.Inserts[1].OldLow.Value.Int64(), qt.Equals, int64(100))
	c.Assert(w.Inserts[1].LowIndex, qt.Equals, w.Inserts[0].NewIndex)

	// list must end up 0 -> 100 -> 101
	n100, err := tree.Get(w.Inserts[0].NewIndex)
	c.Assert(err, qt.IsNil)
	c.Assert(n100.NextValue.Int64(), qt.Equals, int64(101))
}

func TestBatchDuplicate(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)

	before := tree.Root()
	_, err := tree.BatchInsert(bigs(8, 3, 8))
	c.Assert(err, qt.ErrorIs, ErrDuplicateInBatch)
	c.Assert(tree.Root().Cmp(before), qt.Equals, 0)
}

func TestBatchAlreadyPresent(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)

	_, err := tree.Insert(big.NewInt(3))
	c.Assert(err, qt.IsNil)
	before := tree.Root()

	_, err = tree.BatchInsert(bigs(8, 3))
	c.Assert(err, qt.ErrorIs, ErrAlreadyPresent)
	c.Assert(tree.Root().Cmp(before), qt.Equals, 0)
}

func TestBatchCapacity(t *testing.T) {
	c := qt.New(t)
	tree, err := New(2)
	c.Assert(err, qt.IsNil)

	_, err = tree.BatchInsert(bigs(1, 2, 3, 4))
	c.Assert(err, qt.ErrorIs, ErrCapacityExceeded)
}

func TestBatchWitnessReplay(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)
	rng := rand.New(rand.NewSource(7))

	seen := map[int64]bool{}
	var values []*big.Int
	for len(values) < 8 {
		v := rng.Int63n(1 << 30)
		if v == 0 || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, big.NewInt(v))
	}

	w, err := tree.BatchInsertWithWitness(values)
	c.Assert(err, qt.IsNil)
	c.Assert(w.StartIndex, qt.Equals, uint64(1))
	c.Assert(w.NewRoot.Cmp(tree.Root()), qt.Equals, 0)

	// replay the witness hash-by-hash, the way the circuit does
	cur := w.OldRoot
	for _, ins := range w.Inserts {
		oldLowLeaf, err := ins.OldLow.Hash()
		c.Assert(err, qt.IsNil)
		got, err := PathRoot(oldLowLeaf, ins.LowIndex, ins.LowPath)
		c.Assert(err, qt.IsNil)
		c.Assert(got.Cmp(cur), qt.Equals, 0)

		updatedLow := &IndexedNode{
			Value:     ins.OldLow.Value,
			NextValue: ins.Value,
			NextIndex: ins.NewIndex,
		}
		lowLeaf, err := updatedLow.Hash()
		c.Assert(err, qt.IsNil)
		cur, err = PathRoot(lowLeaf, ins.LowIndex, ins.LowPath)
		c.Assert(err, qt.IsNil)

		emptyRoot, err := PathRoot(new(big.Int), ins.NewIndex, ins.NewPath)
		c.Assert(err, qt.IsNil)
		c.Assert(emptyRoot.Cmp(cur), qt.Equals, 0)

		newNode := &IndexedNode{
			Value:     ins.Value,
			NextValue: ins.OldLow.NextValue,
			NextIndex: ins.OldLow.NextIndex,
		}
		newLeaf, err := newNode.Hash()
		c.Assert(err, qt.IsNil)
		cur, err = PathRoot(newLeaf, ins.NewIndex, ins.NewPath)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(cur.Cmp(w.NewRoot), qt.Equals, 0)
}
