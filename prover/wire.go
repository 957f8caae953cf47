package prover

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/shieldpool/nulltree/imt"
)

// LowElementJSON is the wire form of one low-element witness, as served by
// the indexer.
type LowElementJSON struct {
	Index      uint64         `json:"index"`
	Value      *hexutil.Big   `json:"value"`
	NextValue  *hexutil.Big   `json:"nextValue"`
	NextIndex  uint64         `json:"nextIndex"`
	MerklePath []*hexutil.Big `json:"merklePath"`
}

// NonMembershipInputsJSON is the wire form of a batched non-membership
// proving request.
type NonMembershipInputsJSON struct {
	Root        string           `json:"root"`
	Values      []string         `json:"values"`
	LowElements []LowElementJSON `json:"lowElements"`
}

// Witnesses decodes the request into native witnesses plus the claimed
// root, validating shapes and field membership.
func (in *NonMembershipInputsJSON) Witnesses(height int) (*big.Int, []*imt.NonMembershipWitness, error) {
	if len(in.Values) == 0 || len(in.Values) != len(in.LowElements) {
		return nil, nil, fmt.Errorf("%w: %d values, %d low elements", imt.ErrMalformedInput, len(in.Values), len(in.LowElements))
	}
	root, err := parseField(in.Root)
	if err != nil {
		return nil, nil, err
	}
	ws := make([]*imt.NonMembershipWitness, len(in.Values))
	for i, vs := range in.Values {
		v, err := parseField(vs)
		if err != nil {
			return nil, nil, err
		}
		le := in.LowElements[i]
		if le.Value == nil || le.NextValue == nil {
			return nil, nil, fmt.Errorf("%w: low element %d missing fields", imt.ErrMalformedInput, i)
		}
		if len(le.MerklePath) != height {
			return nil, nil, fmt.Errorf("%w: low element %d path length %d, want %d", imt.ErrMalformedInput, i, len(le.MerklePath), height)
		}
		path := make([]*big.Int, height)
		for d, sib := range le.MerklePath {
			if sib == nil {
				return nil, nil, fmt.Errorf("%w: low element %d nil sibling", imt.ErrMalformedInput, i)
			}
			path[d] = (*big.Int)(sib)
		}
		ws[i] = &imt.NonMembershipWitness{
			Value:    v,
			LowIndex: le.Index,
			Low: &imt.IndexedNode{
				Value:     (*big.Int)(le.Value),
				NextValue: (*big.Int)(le.NextValue),
				NextIndex: le.NextIndex,
			},
			Path: path,
		}
	}
	return root, ws, nil
}

func parseField(s string) (*big.Int, error) {
	v, err := hexutil.DecodeBig(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", imt.ErrMalformedInput, s, err)
	}
	return v, nil
}
