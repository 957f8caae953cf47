package imt

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/shieldpool/nulltree/hash/poseidon2"
)

// ReferenceHeight is the height of the reference deployment
// (2^26 ≈ 67M leaves).
const ReferenceHeight = 26

// Tree is an indexed merkle tree: a fixed-height binary merkle tree whose
// occupied leaves encode a sorted singly linked list of inserted values.
// Leaves are append-only; an insertion writes one new leaf and rewrites the
// next pointers of its predecessor (the "low element"), so exactly two
// merkle paths change per insert.
//
// Empty regions are never materialized: each level keeps only the hashes
// touched by insertions, and an unoccupied subtree of depth d has the
// precomputed constant hash zeros[d].
//
// Tree is not safe for concurrent use. Callers that share a tree must
// serialize writes behind a single synchronization point; two insertions
// racing on the same low element corrupt the linked list.
type Tree struct {
	height int
	zeros  []*big.Int            // zeros[d] = hash of an empty subtree of depth d
	layers []map[uint64]*big.Int // layers[0] leaf hashes … layers[height] the root
	nodes  []*IndexedNode        // arena of occupied leaves, leaf i = nodes[i]

	// convenience lookup, not part of the commitment; rebuildable by
	// replaying the append log
	index  map[string]uint64 // canonical value bytes → leaf index
	sorted []*big.Int        // occupied values in ascending order
}

// New creates a tree of the given height with only the sentinel node
// occupied (index 0, value 0, no successor).
func New(height int) (*Tree, error) {
	if height < 1 || height > 32 {
		return nil, fmt.Errorf("%w: height %d out of range [1,32]", ErrMalformedInput, height)
	}
	zeros := make([]*big.Int, height+1)
	zeros[0] = new(big.Int)
	for d := 0; d < height; d++ {
		h, err := poseidon2.Hash2(zeros[d], zeros[d])
		if err != nil {
			return nil, err
		}
		zeros[d+1] = h
	}
	layers := make([]map[uint64]*big.Int, height+1)
	for i := range layers {
		layers[i] = make(map[uint64]*big.Int)
	}
	t := &Tree{
		height: height,
		zeros:  zeros,
		layers: layers,
		index:  make(map[string]uint64),
	}
	sentinel := sentinelNode()
	leaf, err := sentinel.Hash()
	if err != nil {
		return nil, err
	}
	t.nodes = append(t.nodes, sentinel)
	t.index[valueKey(sentinel.Value)] = 0
	t.sorted = append(t.sorted, sentinel.Value)
	if err := t.setLeaf(0, leaf); err != nil {
		return nil, err
	}
	return t, nil
}

// Height returns the tree height.
func (t *Tree) Height() int { return t.height }

// Count returns the number of occupied leaves, sentinel included.
func (t *Tree) Count() uint64 { return uint64(len(t.nodes)) }

// Capacity returns the total number of leaves, 2^height.
func (t *Tree) Capacity() uint64 { return 1 << uint(t.height) }

// IsFull reports whether every leaf is occupied.
func (t *Tree) IsFull() bool { return t.Count() == t.Capacity() }

// Root returns the current root.
func (t *Tree) Root() *big.Int {
	return new(big.Int).Set(t.node(t.height, 0))
}

// Get returns a copy of the node at the given leaf index.
func (t *Tree) Get(i uint64) (*IndexedNode, error) {
	if i >= t.Count() {
		return nil, fmt.Errorf("%w: leaf %d not occupied", ErrMalformedInput, i)
	}
	return t.nodes[i].Clone(), nil
}

// FindLowElement returns the occupied node with the greatest value strictly
// less than v, and its leaf index. The lookup uses the auxiliary sorted
// index; only the tree root is authoritative.
func (t *Tree) FindLowElement(v *big.Int) (uint64, *IndexedNode, error) {
	if err := checkValue(v); err != nil {
		return 0, nil, err
	}
	if len(t.sorted) == 0 {
		return 0, nil, ErrNotFound
	}
	// first value >= v; the sentinel value 0 guarantees i >= 1
	i := sort.Search(len(t.sorted), func(j int) bool {
		return t.sorted[j].Cmp(v) >= 0
	})
	if i == 0 {
		return 0, nil, ErrNotFound
	}
	low := t.sorted[i-1]
	idx := t.index[valueKey(low)]
	return idx, t.nodes[idx].Clone(), nil
}

// Insert adds v to the linked list and returns the new root. Exactly two
// leaves change: the low element's next pointers are rewritten to v, and a
// new leaf taking over the low element's old successor is appended.
func (t *Tree) Insert(v *big.Int) (*big.Int, error) {
	if _, err := t.insert(v); err != nil {
		return nil, err
	}
	return t.Root(), nil
}

// insert performs the insertion, capturing the witness material the batch
// circuit consumes: the low element and its path before the rewrite, and
// the new leaf's path after it.
func (t *Tree) insert(v *big.Int) (*InsertWitness, error) {
	if err := checkValue(v); err != nil {
		return nil, err
	}
	if t.IsFull() {
		return nil, ErrCapacityExceeded
	}
	lowIdx, low, err := t.FindLowElement(v)
	if err != nil {
		return nil, err
	}
	// membership falls out of the ordering: if v is present it is the low
	// element's successor
	if low.NextValue.Cmp(v) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyPresent, v)
	}

	w := &InsertWitness{
		Value:    new(big.Int).Set(v),
		LowIndex: lowIdx,
		OldLow:   low.Clone(),
		NewIndex: t.Count(),
	}
	if w.LowPath, err = t.MerkleProof(lowIdx); err != nil {
		return nil, err
	}

	newNode := &IndexedNode{
		Value:     new(big.Int).Set(v),
		NextValue: new(big.Int).Set(low.NextValue),
		NextIndex: low.NextIndex,
	}
	updatedLow := &IndexedNode{
		Value:     new(big.Int).Set(low.Value),
		NextValue: new(big.Int).Set(v),
		NextIndex: w.NewIndex,
	}

	lowLeaf, err := updatedLow.Hash()
	if err != nil {
		return nil, err
	}
	t.nodes[lowIdx] = updatedLow
	if err := t.setLeaf(lowIdx, lowLeaf); err != nil {
		return nil, err
	}

	// the new leaf's siblings after the low rewrite, while the slot is
	// still empty
	if w.NewPath, err = t.MerkleProof(w.NewIndex); err != nil {
		return nil, err
	}

	newLeaf, err := newNode.Hash()
	if err != nil {
		return nil, err
	}
	t.nodes = append(t.nodes, newNode)
	if err := t.setLeaf(w.NewIndex, newLeaf); err != nil {
		return nil, err
	}

	t.index[valueKey(newNode.Value)] = w.NewIndex
	i := sort.Search(len(t.sorted), func(j int) bool {
		return t.sorted[j].Cmp(v) >= 0
	})
	t.sorted = append(t.sorted, nil)
	copy(t.sorted[i+1:], t.sorted[i:])
	t.sorted[i] = newNode.Value

	return w, nil
}

// MerkleProof returns the sibling hashes from the given leaf up to the
// root, using the default hashes for unoccupied sibling subtrees.
func (t *Tree) MerkleProof(i uint64) ([]*big.Int, error) {
	if i >= t.Capacity() {
		return nil, fmt.Errorf("%w: leaf %d beyond capacity", ErrMalformedInput, i)
	}
	path := make([]*big.Int, t.height)
	for d := 0; d < t.height; d++ {
		path[d] = new(big.Int).Set(t.node(d, i^1))
		i >>= 1
	}
	return path, nil
}

func (t *Tree) node(level int, i uint64) *big.Int {
	if h, ok := t.layers[level][i]; ok {
		return h
	}
	return t.zeros[level]
}

func (t *Tree) setLeaf(i uint64, h *big.Int) error {
	t.layers[0][i] = h
	for d := 0; d < t.height; d++ {
		var l, r *big.Int
		if i&1 == 0 {
			l, r = t.node(d, i), t.node(d, i^1)
		} else {
			l, r = t.node(d, i^1), t.node(d, i)
		}
		p, err := poseidon2.Hash2(l, r)
		if err != nil {
			return err
		}
		i >>= 1
		t.layers[d+1][i] = p
	}
	return nil
}

// checkValue rejects values outside the field and the reserved zero value.
func checkValue(v *big.Int) error {
	if !poseidon2.InField(v) {
		return fmt.Errorf("%w: value outside field", ErrMalformedInput)
	}
	if v.Sign() == 0 {
		return fmt.Errorf("%w: zero is reserved for the sentinel", ErrMalformedInput)
	}
	return nil
}

func valueKey(v *big.Int) string {
	b := v.Bytes()
	for len(b) < 32 {
		b = append([]byte{0}, b...)
	}
	return string(b)
}
