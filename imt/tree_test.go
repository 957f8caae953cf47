package imt

import (
	"math/big"
	"math/rand"
	"testing"

	qt "github.com/frankban/quicktest"
)

const testHeight = 8

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := New(testHeight)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func bigs(vs ...int64) []*big.Int {
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestGenesis(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)

	c.Assert(tree.Count(), qt.Equals, uint64(1))
	c.Assert(tree.Capacity(), qt.Equals, uint64(256))

	sentinel, err := tree.Get(0)
	c.Assert(err, qt.IsNil)
	c.Assert(sentinel.Value.Sign(), qt.Equals, 0)
	c.Assert(sentinel.NextValue.Sign(), qt.Equals, 0)
	c.Assert(sentinel.NextIndex, qt.Equals, uint64(0))

	// the sentinel leaf makes the genesis root differ from the all-empty
	// root zeros[height]
	c.Assert(tree.Root().Cmp(tree.zeros[testHeight]), qt.Not(qt.Equals), 0)
}

func TestInsertSingle(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)
	r0 := tree.Root()

	r1, err := tree.Insert(big.NewInt(42))
	c.Assert(err, qt.IsNil)
	c.Assert(r1.Cmp(r0), qt.Not(qt.Equals), 0)

	sentinel, err := tree.Get(0)
	c.Assert(err, qt.IsNil)
	c.Assert(sentinel.NextValue.Int64(), qt.Equals, int64(42))
	c.Assert(sentinel.NextIndex, qt.Equals, uint64(1))

	leaf, err := tree.Get(1)
	c.Assert(err, qt.IsNil)
	c.Assert(leaf.Value.Int64(), qt.Equals, int64(42))
	c.Assert(leaf.NextValue.Sign(), qt.Equals, 0)
	c.Assert(leaf.NextIndex, qt.Equals, uint64(0))
}

func TestInsertLinksChain(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)

	for _, v := range bigs(42, 17, 89) {
		_, err := tree.Insert(v)
		c.Assert(err, qt.IsNil)
	}

	// chain: 0 -> 17 -> 42 -> 89
	walk := []struct {
		idx       uint64
		value     int64
		nextValue int64
	}{
		{0, 0, 17},
		{2, 17, 42},
		{1, 42, 89},
		{3, 89, 0},
	}
	for _, step := range walk {
		n, err := tree.Get(step.idx)
		c.Assert(err, qt.IsNil)
		c.Assert(n.Value.Int64(), qt.Equals, step.value)
		c.Assert(n.NextValue.Int64(), qt.Equals, step.nextValue)
	}
}

func TestInsertAlreadyPresent(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)

	_, err := tree.Insert(big.NewInt(42))
	c.Assert(err, qt.IsNil)
	_, err = tree.Insert(big.NewInt(42))
	c.Assert(err, qt.ErrorIs, ErrAlreadyPresent)
}

func TestInsertMalformed(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)

	_, err := tree.Insert(big.NewInt(0))
	c.Assert(err, qt.ErrorIs, ErrMalformedInput)
	_, err = tree.Insert(nil)
	c.Assert(err, qt.ErrorIs, ErrMalformedInput)
	_, err = tree.Insert(new(big.Int).Neg(big.NewInt(5)))
	c.Assert(err, qt.ErrorIs, ErrMalformedInput)
}

func TestCapacity(t *testing.T) {
	c := qt.New(t)
	tree, err := New(2) // 4 leaves, sentinel occupies one
	c.Assert(err, qt.IsNil)

	for _, v := range bigs(5, 9, 13) {
		_, err := tree.Insert(v)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(tree.IsFull(), qt.IsTrue)
	_, err = tree.Insert(big.NewInt(21))
	c.Assert(err, qt.ErrorIs, ErrCapacityExceeded)
}

func TestFindLowElement(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)
	for _, v := range bigs(10, 30, 50) {
		_, err := tree.Insert(v)
		c.Assert(err, qt.IsNil)
	}

	cases := []struct {
		query int64
		low   int64
	}{
		{5, 0},
		{11, 10},
		{30, 10}, // query present: low is still the strict predecessor
		{49, 30},
		{1000, 50},
	}
	for _, tc := range cases {
		_, low, err := tree.FindLowElement(big.NewInt(tc.query))
		c.Assert(err, qt.IsNil)
		c.Assert(low.Value.Int64(), qt.Equals, tc.low, qt.Commentf("query %d", tc.query))
	}
}

// findLowElement must always return a node bounding the query, and the
// non-membership check built from it must accept.
func TestLowElementProperty(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)
	rng := rand.New(rand.NewSource(1))

	present := map[int64]bool{}
	for i := 0; i < 40; i++ {
		v := rng.Int63n(1 << 40)
		if v == 0 || present[v] {
			continue
		}
		_, err := tree.Insert(big.NewInt(v))
		c.Assert(err, qt.IsNil)
		present[v] = true
	}

	for i := 0; i < 100; i++ {
		v := rng.Int63n(1 << 41)
		if v == 0 || present[v] {
			continue
		}
		q := big.NewInt(v)
		_, low, err := tree.FindLowElement(q)
		c.Assert(err, qt.IsNil)
		c.Assert(low.Value.Cmp(q) < 0, qt.IsTrue)
		if low.NextValue.Sign() != 0 {
			c.Assert(q.Cmp(low.NextValue) < 0, qt.IsTrue)
		}

		w, err := tree.NonMembershipWitness(q)
		c.Assert(err, qt.IsNil)
		c.Assert(VerifyNonMembership(tree.Root(), w, tree.Height()), qt.IsNil)
	}
}

func TestMerkleProofRoundTrip(t *testing.T) {
	c := qt.New(t)
	tree := newTestTree(t)
	for _, v := range bigs(7, 3, 11, 200) {
		_, err := tree.Insert(v)
		c.Assert(err, qt.IsNil)
	}

	for i := uint64(0); i < tree.Count(); i++ {
		n, err := tree.Get(i)
		c.Assert(err, qt.IsNil)
		leaf, err := n.Hash()
		c.Assert(err, qt.IsNil)
		path, err := tree.MerkleProof(i)
		c.Assert(err, qt.IsNil)
		root, err := PathRoot(leaf, i, path)
		c.Assert(err, qt.IsNil)
		c.Assert(root.Cmp(tree.Root()), qt.Equals, 0, qt.Commentf("leaf %d", i))
	}
}
