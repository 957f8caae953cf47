package circuits

import (
	"github.com/consensys/gnark/frontend"
)

// NonMembershipCircuit proves that none of Values is present in the tree
// with root Root. Each value carries an independent low-element witness;
// the values need not relate to each other.
//
// Public input ordering is part of the wire contract: root first, then the
// nullifiers in the order submitted.
type NonMembershipCircuit struct {
	Root   frontend.Variable   `gnark:",public"`
	Values []frontend.Variable `gnark:",public"`

	LowValues      []frontend.Variable   `gnark:",secret"`
	LowNextValues  []frontend.Variable   `gnark:",secret"`
	LowNextIndices []frontend.Variable   `gnark:",secret"`
	LowIndices     []frontend.Variable   `gnark:",secret"`
	Siblings       [][]frontend.Variable `gnark:",secret"`

	Height    int
	BatchSize int
}

// NewNonMembershipCircuit allocates the slices for compilation.
func NewNonMembershipCircuit(height, batchSize int) *NonMembershipCircuit {
	c := &NonMembershipCircuit{
		Values:         make([]frontend.Variable, batchSize),
		LowValues:      make([]frontend.Variable, batchSize),
		LowNextValues:  make([]frontend.Variable, batchSize),
		LowNextIndices: make([]frontend.Variable, batchSize),
		LowIndices:     make([]frontend.Variable, batchSize),
		Siblings:       make([][]frontend.Variable, batchSize),
		Height:         height,
		BatchSize:      batchSize,
	}
	for i := range c.Siblings {
		c.Siblings[i] = make([]frontend.Variable, height)
	}
	return c
}

func (c *NonMembershipCircuit) Define(api frontend.API) error {
	for i := 0; i < c.BatchSize; i++ {
		// ordering: the value lies strictly inside the low element's gap
		assertInRange(api, c.LowValues[i], c.LowNextValues[i], c.Values[i])

		// existence: the low element is a leaf under Root
		leaf, err := leafHash(api, c.LowValues[i], c.LowNextIndices[i], c.LowNextValues[i])
		if err != nil {
			return err
		}
		bits := api.ToBinary(c.LowIndices[i], c.Height)
		root, err := pathRoot(api, leaf, bits, c.Siblings[i])
		if err != nil {
			return err
		}
		api.AssertIsEqual(root, c.Root)
	}
	return nil
}
