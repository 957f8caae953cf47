package prover

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
)

var systemMagic = [8]byte{'n', 'u', 'l', 'l', 't', 'r', 'e', 'e'}

const (
	circuitTagNonMembership  uint32 = 1
	circuitTagBatchInsertion uint32 = 2
)

// WriteTo serializes the proving system: a fixed header (magic, circuit
// tag, tree height, batch size) followed by proving key, verifying key and
// constraint system.
func (ps *ProvingSystem) WriteTo(w io.Writer) (int64, error) {
	var tag uint32
	switch ps.Circuit {
	case NonMembership:
		tag = circuitTagNonMembership
	case BatchInsertion:
		tag = circuitTagBatchInsertion
	default:
		return 0, fmt.Errorf("prover: cannot serialize circuit type %q", ps.Circuit)
	}

	var total int64
	n, err := w.Write(systemMagic[:])
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, v := range []uint32{tag, ps.TreeHeight, ps.BatchSize} {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return total, err
		}
		total += 4
	}
	for _, wt := range []io.WriterTo{ps.ProvingKey, ps.VerifyingKey, ps.ConstraintSystem} {
		n, err := wt.WriteTo(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadSystem deserializes a proving system written by WriteTo.
func ReadSystem(r io.Reader) (*ProvingSystem, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != systemMagic {
		return nil, fmt.Errorf("prover: bad proving system header")
	}
	var tag, height, batchSize uint32
	for _, v := range []*uint32{&tag, &height, &batchSize} {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}
	var circuit CircuitType
	switch tag {
	case circuitTagNonMembership:
		circuit = NonMembership
	case circuitTagBatchInsertion:
		circuit = BatchInsertion
	default:
		return nil, fmt.Errorf("prover: unknown circuit tag %d", tag)
	}

	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("prover: reading proving key: %w", err)
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("prover: reading verifying key: %w", err)
	}
	ccs := groth16.NewCS(ecc.BN254)
	if _, err := ccs.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("prover: reading constraint system: %w", err)
	}

	return &ProvingSystem{
		Circuit:          circuit,
		TreeHeight:       height,
		BatchSize:        batchSize,
		ProvingKey:       pk,
		VerifyingKey:     vk,
		ConstraintSystem: ccs,
	}, nil
}

// ReadSystemFromFile reads a proving system from disk.
func ReadSystemFromFile(path string) (*ProvingSystem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSystem(f)
}
