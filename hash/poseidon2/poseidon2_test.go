package poseidon2

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
)

type hashCompatCircuit struct {
	A, B, C  frontend.Variable
	IsLeaf   frontend.Variable // 0 → internal node ; 1 → leaf tuple
	Expected frontend.Variable // native hash
}

func (c *hashCompatCircuit) Define(api frontend.API) error {
	node, err := HashGnark(api, c.A, c.B)
	if err != nil {
		return err
	}
	leaf, err := HashGnark(api, c.A, c.B, c.C)
	if err != nil {
		return err
	}
	got := api.Select(c.IsLeaf, leaf, node)
	api.AssertIsEqual(got, c.Expected)
	return nil
}

func randomFieldElement() *big.Int {
	b, _ := rand.Int(rand.Reader, BN254BaseField)
	return b
}

func TestNativeVsCircuit(t *testing.T) {
	assert := test.NewAssert(t)

	cases := []struct {
		name   string
		isLeaf int64
		a, b   *big.Int
		c      *big.Int
	}{
		{name: "internal-node", isLeaf: 0, a: randomFieldElement(), b: randomFieldElement()},
		{name: "leaf", isLeaf: 1, a: randomFieldElement(), b: big.NewInt(7), c: randomFieldElement()},
		{name: "sentinel-leaf", isLeaf: 1, a: big.NewInt(0), b: big.NewInt(0), c: big.NewInt(0)},
	}

	_, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &hashCompatCircuit{})
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			w := &hashCompatCircuit{
				A:      tc.a,
				B:      tc.b,
				C:      big.NewInt(0),
				IsLeaf: tc.isLeaf,
			}
			var native *big.Int
			if tc.isLeaf == 1 {
				w.C = tc.c
				native, err = Hash3(tc.a, tc.b, tc.c)
			} else {
				native, err = Hash2(tc.a, tc.b)
			}
			if err != nil {
				t.Fatalf("native hash error: %v", err)
			}
			w.Expected = native

			assert.SolvingSucceeded(
				&hashCompatCircuit{}, w,
				test.WithCurves(ecc.BN254),
				test.WithBackends(backend.GROTH16),
			)
		})
	}
}

func TestPositional(t *testing.T) {
	c := qt.New(t)

	a, b := randomFieldElement(), randomFieldElement()
	ab, err := Hash2(a, b)
	c.Assert(err, qt.IsNil)
	ba, err := Hash2(b, a)
	c.Assert(err, qt.IsNil)
	c.Assert(ab.Cmp(ba), qt.Not(qt.Equals), 0)

	// the 3-input chain must not collide with any 2-input prefix
	leaf, err := Hash3(a, b, big.NewInt(0))
	c.Assert(err, qt.IsNil)
	c.Assert(leaf.Cmp(ab), qt.Not(qt.Equals), 0)
}

func TestReduction(t *testing.T) {
	c := qt.New(t)

	// inputs beyond the modulus are reduced, not rejected
	over := new(big.Int).Add(BN254BaseField, big.NewInt(42))
	h1, err := Hash2(over, big.NewInt(1))
	c.Assert(err, qt.IsNil)
	h2, err := Hash2(big.NewInt(42), big.NewInt(1))
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h2), qt.Equals, 0)

	c.Assert(InField(big.NewInt(0)), qt.IsTrue)
	c.Assert(InField(BN254BaseField), qt.IsFalse)
	c.Assert(InField(nil), qt.IsFalse)
}
