// Package nullifier derives nullifier values from note commitments and
// spend keys. The derivation is a Poseidon hash, so a nullifier reveals
// nothing about the note it spends, but the same note always derives the
// same nullifier and gets caught by the set on a second spend.
package nullifier

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/shieldpool/nulltree/imt"
)

// Derive computes the nullifier for a note commitment under a spend key.
// Both inputs must be canonical field elements; the result is guaranteed
// non-zero so it can be inserted into the tree.
func Derive(commitment, spendKey *big.Int) (*big.Int, error) {
	if commitment == nil || spendKey == nil {
		return nil, fmt.Errorf("%w: nil derivation input", imt.ErrMalformedInput)
	}
	v, err := poseidon.Hash([]*big.Int{commitment, spendKey})
	if err != nil {
		return nil, fmt.Errorf("nullifier: %w", err)
	}
	if v.Sign() == 0 {
		return nil, fmt.Errorf("%w: derivation produced zero", imt.ErrMalformedInput)
	}
	return v, nil
}
