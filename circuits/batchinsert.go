package circuits

import (
	"github.com/consensys/gnark/frontend"
)

// BatchInsertionCircuit proves the transition OldRoot → NewRoot obtained by
// inserting Values (ascending) into the tree. Each insertion rewrites the
// low element's next pointers and appends one new leaf; the root threads
// through both updates, so a low element created earlier in the same batch
// is proven against the intermediate root, not OldRoot.
//
// Public input ordering: oldRoot, newRoot, then the values.
type BatchInsertionCircuit struct {
	OldRoot frontend.Variable   `gnark:",public"`
	NewRoot frontend.Variable   `gnark:",public"`
	Values  []frontend.Variable `gnark:",public"`

	StartIndex     frontend.Variable     `gnark:",secret"`
	LowValues      []frontend.Variable   `gnark:",secret"`
	LowNextValues  []frontend.Variable   `gnark:",secret"`
	LowNextIndices []frontend.Variable   `gnark:",secret"`
	LowIndices     []frontend.Variable   `gnark:",secret"`
	LowSiblings    [][]frontend.Variable `gnark:",secret"`
	NewSiblings    [][]frontend.Variable `gnark:",secret"`

	Height    int
	BatchSize int
}

// NewBatchInsertionCircuit allocates the slices for compilation.
func NewBatchInsertionCircuit(height, batchSize int) *BatchInsertionCircuit {
	c := &BatchInsertionCircuit{
		Values:         make([]frontend.Variable, batchSize),
		LowValues:      make([]frontend.Variable, batchSize),
		LowNextValues:  make([]frontend.Variable, batchSize),
		LowNextIndices: make([]frontend.Variable, batchSize),
		LowIndices:     make([]frontend.Variable, batchSize),
		LowSiblings:    make([][]frontend.Variable, batchSize),
		NewSiblings:    make([][]frontend.Variable, batchSize),
		Height:         height,
		BatchSize:      batchSize,
	}
	for i := 0; i < batchSize; i++ {
		c.LowSiblings[i] = make([]frontend.Variable, height)
		c.NewSiblings[i] = make([]frontend.Variable, height)
	}
	return c
}

func (c *BatchInsertionCircuit) Define(api frontend.API) error {
	cur := c.OldRoot
	newIndex := c.StartIndex
	newIndexBits := api.ToBinary(c.StartIndex, c.Height)

	for i := 0; i < c.BatchSize; i++ {
		assertInRange(api, c.LowValues[i], c.LowNextValues[i], c.Values[i])

		// rewrite the low element: {lowValue, nextIndex: newIndex, nextValue: value}
		oldLowLeaf, err := leafHash(api, c.LowValues[i], c.LowNextIndices[i], c.LowNextValues[i])
		if err != nil {
			return err
		}
		newLowLeaf, err := leafHash(api, c.LowValues[i], newIndex, c.Values[i])
		if err != nil {
			return err
		}
		lowBits := api.ToBinary(c.LowIndices[i], c.Height)
		if cur, err = updateRoot(api, cur, oldLowLeaf, newLowLeaf, lowBits, c.LowSiblings[i]); err != nil {
			return err
		}

		// append the new leaf, taking over the low element's old successor
		newLeaf, err := leafHash(api, c.Values[i], c.LowNextIndices[i], c.LowNextValues[i])
		if err != nil {
			return err
		}
		if cur, err = updateRoot(api, cur, 0, newLeaf, newIndexBits, c.NewSiblings[i]); err != nil {
			return err
		}

		newIndex = api.Add(newIndex, 1)
		newIndexBits = incrementBits(api, newIndexBits)
	}

	api.AssertIsEqual(cur, c.NewRoot)
	return nil
}
