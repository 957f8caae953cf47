package prover

import (
	"fmt"
	"math/big"

	"github.com/shieldpool/nulltree/imt"
)

// Verifier is the verification boundary the ledger consumes:
// verify(proof, publicInputs) with the fixed public-input ordering
// [root, nullifier_1..N]. Implementations must be opaque about why a proof
// failed.
type Verifier interface {
	Verify(proof []byte, publicInputs []*big.Int) error
}

// BoundaryVerifier adapts a non-membership ProvingSystem to the Verifier
// boundary, deserializing the raw proof bytes on each call.
type BoundaryVerifier struct {
	System *ProvingSystem
}

// NewBoundaryVerifier wires a proving system into the boundary. The system
// must be a non-membership system.
func NewBoundaryVerifier(ps *ProvingSystem) (*BoundaryVerifier, error) {
	if ps == nil || ps.Circuit != NonMembership {
		return nil, fmt.Errorf("%w: boundary requires a non-membership proving system", imt.ErrMalformedInput)
	}
	return &BoundaryVerifier{System: ps}, nil
}

func (v *BoundaryVerifier) Verify(proofBytes []byte, publicInputs []*big.Int) error {
	if len(publicInputs) != 1+int(v.System.BatchSize) {
		return fmt.Errorf("%w: %d public inputs, want %d", imt.ErrMalformedInput, len(publicInputs), 1+v.System.BatchSize)
	}
	proof, err := ProofFromBytes(proofBytes)
	if err != nil {
		return ErrProofVerificationFailure
	}
	return v.System.VerifyNonMembership(publicInputs[0], publicInputs[1:], proof)
}
