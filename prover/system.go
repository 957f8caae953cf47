package prover

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/shieldpool/nulltree/circuits"
	"github.com/shieldpool/nulltree/imt"
)

// ProvingSystem holds the keys and constraint system for one circuit shape
// (statement, tree height, batch size).
type ProvingSystem struct {
	Circuit          CircuitType
	TreeHeight       uint32
	BatchSize        uint32
	ProvingKey       groth16.ProvingKey
	VerifyingKey     groth16.VerifyingKey
	ConstraintSystem constraint.ConstraintSystem
}

// R1CSNonMembership compiles the batched non-membership circuit.
func R1CSNonMembership(treeHeight, batchSize uint32) (constraint.ConstraintSystem, error) {
	c := circuits.NewNonMembershipCircuit(int(treeHeight), int(batchSize))
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, c)
}

// R1CSBatchInsertion compiles the batch insertion circuit.
func R1CSBatchInsertion(treeHeight, batchSize uint32) (constraint.ConstraintSystem, error) {
	c := circuits.NewBatchInsertionCircuit(int(treeHeight), int(batchSize))
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, c)
}

// Setup compiles the requested circuit and runs the Groth16 setup.
func Setup(circuit CircuitType, treeHeight, batchSize uint32) (*ProvingSystem, error) {
	if treeHeight == 0 || batchSize == 0 {
		return nil, fmt.Errorf("%w: tree height and batch size must be non-zero", imt.ErrMalformedInput)
	}
	var (
		ccs constraint.ConstraintSystem
		err error
	)
	switch circuit {
	case NonMembership:
		ccs, err = R1CSNonMembership(treeHeight, batchSize)
	case BatchInsertion:
		ccs, err = R1CSBatchInsertion(treeHeight, batchSize)
	default:
		return nil, fmt.Errorf("%w: unknown circuit type %q", imt.ErrMalformedInput, circuit)
	}
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, err
	}
	return &ProvingSystem{
		Circuit:          circuit,
		TreeHeight:       treeHeight,
		BatchSize:        batchSize,
		ProvingKey:       pk,
		VerifyingKey:     vk,
		ConstraintSystem: ccs,
	}, nil
}

// ProveNonMembership proves that none of the witnessed values is present in
// the tree with the given root.
func (ps *ProvingSystem) ProveNonMembership(root *big.Int, ws []*imt.NonMembershipWitness) (*Proof, error) {
	if ps.Circuit != NonMembership {
		return nil, fmt.Errorf("%w: proving system is for %q", imt.ErrMalformedInput, ps.Circuit)
	}
	if uint32(len(ws)) != ps.BatchSize {
		return nil, fmt.Errorf("%w: %d witnesses, system expects %d", imt.ErrMalformedInput, len(ws), ps.BatchSize)
	}
	assignment, err := circuits.NonMembershipAssignment(root, ws, int(ps.TreeHeight))
	if err != nil {
		return nil, err
	}
	return ps.prove(assignment)
}

// ProveBatchInsertion proves the root transition of one batch insertion.
func (ps *ProvingSystem) ProveBatchInsertion(w *imt.BatchWitness) (*Proof, error) {
	if ps.Circuit != BatchInsertion {
		return nil, fmt.Errorf("%w: proving system is for %q", imt.ErrMalformedInput, ps.Circuit)
	}
	if w == nil || uint32(len(w.Inserts)) != ps.BatchSize {
		return nil, fmt.Errorf("%w: batch size mismatch", imt.ErrMalformedInput)
	}
	assignment, err := circuits.BatchInsertionAssignment(w, int(ps.TreeHeight))
	if err != nil {
		return nil, err
	}
	return ps.prove(assignment)
}

func (ps *ProvingSystem) prove(assignment frontend.Circuit) (*Proof, error) {
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	proof, err := groth16.Prove(ps.ConstraintSystem, ps.ProvingKey, witness)
	if err != nil {
		return nil, err
	}
	return &Proof{inner: proof}, nil
}

// VerifyNonMembership checks a proof against the public inputs
// [root, nullifier_1..N]. Rejections are opaque.
func (ps *ProvingSystem) VerifyNonMembership(root *big.Int, nullifiers []*big.Int, proof *Proof) error {
	if ps.Circuit != NonMembership {
		return fmt.Errorf("%w: proving system is for %q", imt.ErrMalformedInput, ps.Circuit)
	}
	if proof == nil || uint32(len(nullifiers)) != ps.BatchSize {
		return fmt.Errorf("%w: %d nullifiers, system expects %d", imt.ErrMalformedInput, len(nullifiers), ps.BatchSize)
	}
	assignment, err := circuits.NonMembershipPublicAssignment(root, nullifiers, int(ps.TreeHeight))
	if err != nil {
		return err
	}
	return ps.verify(assignment, proof)
}

// VerifyBatchInsertion checks a proof against the public inputs
// [oldRoot, newRoot, value_1..N]. Rejections are opaque.
func (ps *ProvingSystem) VerifyBatchInsertion(oldRoot, newRoot *big.Int, values []*big.Int, proof *Proof) error {
	if ps.Circuit != BatchInsertion {
		return fmt.Errorf("%w: proving system is for %q", imt.ErrMalformedInput, ps.Circuit)
	}
	if proof == nil || uint32(len(values)) != ps.BatchSize {
		return fmt.Errorf("%w: %d values, system expects %d", imt.ErrMalformedInput, len(values), ps.BatchSize)
	}
	assignment, err := circuits.BatchInsertionPublicAssignment(oldRoot, newRoot, values, int(ps.TreeHeight))
	if err != nil {
		return err
	}
	return ps.verify(assignment, proof)
}

func (ps *ProvingSystem) verify(assignment frontend.Circuit, proof *Proof) error {
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}
	if err := groth16.Verify(proof.inner, ps.VerifyingKey, witness); err != nil {
		return ErrProofVerificationFailure
	}
	return nil
}
