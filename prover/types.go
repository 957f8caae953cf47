// Package prover wraps the Groth16 backend for the two nullifier-set
// statements. The rest of the system treats proof verification as a black
// box: a proof plus its public inputs either verifies or it does not, and
// failures are never interpreted further.
package prover

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CircuitType selects which statement a proving system is bound to.
type CircuitType string

const (
	NonMembership  CircuitType = "non-membership"
	BatchInsertion CircuitType = "batch-insertion"
)

// ErrProofVerificationFailure is the single, opaque rejection surfaced by
// the verification boundary. The pairing check's reasons are not exposed.
var ErrProofVerificationFailure = errors.New("prover: proof rejected")

// Proof wraps a Groth16 proof. It serializes to raw bytes for the wire and
// to hex JSON for tooling.
type Proof struct {
	inner groth16.Proof
}

// Bytes returns the serialized proof.
func (p *Proof) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.inner.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ProofFromBytes deserializes a proof produced by Bytes.
func ProofFromBytes(b []byte) (*Proof, error) {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("prover: malformed proof bytes: %w", err)
	}
	return &Proof{inner: proof}, nil
}

type proofJSON struct {
	Proof hexutil.Bytes `json:"proof"`
}

func (p *Proof) MarshalJSON() ([]byte, error) {
	b, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	return json.Marshal(proofJSON{Proof: b})
}

func (p *Proof) UnmarshalJSON(data []byte) error {
	var pj proofJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	parsed, err := ProofFromBytes(pj.Proof)
	if err != nil {
		return err
	}
	p.inner = parsed.inner
	return nil
}
