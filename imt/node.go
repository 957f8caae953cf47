package imt

import (
	"math/big"

	"github.com/shieldpool/nulltree/hash/poseidon2"
)

// IndexedNode is one entry of the sorted linked list embedded in the tree
// leaves. NextValue == 0 means the node holds the maximum inserted value;
// in that case NextIndex is 0 as well.
type IndexedNode struct {
	Value     *big.Int
	NextValue *big.Int
	NextIndex uint64
}

// Hash commits to the node as H3(value, nextIndex, nextValue).
func (n *IndexedNode) Hash() (*big.Int, error) {
	return poseidon2.Hash3(n.Value, new(big.Int).SetUint64(n.NextIndex), n.NextValue)
}

// Clone returns a deep copy, so callers can hold nodes across mutations.
func (n *IndexedNode) Clone() *IndexedNode {
	return &IndexedNode{
		Value:     new(big.Int).Set(n.Value),
		NextValue: new(big.Int).Set(n.NextValue),
		NextIndex: n.NextIndex,
	}
}

func sentinelNode() *IndexedNode {
	return &IndexedNode{Value: new(big.Int), NextValue: new(big.Int)}
}
