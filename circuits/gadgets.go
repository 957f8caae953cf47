// Package circuits holds the gnark circuits for the nullifier set: the
// batched non-membership statement and the batch insertion statement, plus
// the shared merkle and comparison gadgets they are built from.
package circuits

import (
	"github.com/consensys/gnark/frontend"

	"github.com/shieldpool/nulltree/hash/poseidon2"
)

// IsStrictlyLess returns 1 iff a < b as full-width field integers. Hash
// outputs may occupy the whole field range, so a bounded-bitwidth
// comparison is not sound here.
func IsStrictlyLess(api frontend.API, a, b frontend.Variable) frontend.Variable {
	// Cmp returns -1, 0 or 1 over the full field bit length
	return api.IsZero(api.Add(api.Cmp(a, b), 1))
}

// AssertStrictlyLess constrains a < b, full width.
func AssertStrictlyLess(api frontend.API, a, b frontend.Variable) {
	api.AssertIsEqual(IsStrictlyLess(api, a, b), 1)
}

// assertInRange constrains value to lie strictly inside the low element's
// gap: lowValue < value, and value < lowNextValue unless lowNextValue == 0
// (the low element holds the maximum).
func assertInRange(api frontend.API, lowValue, lowNextValue, value frontend.Variable) {
	AssertStrictlyLess(api, lowValue, value)
	upper := api.Or(api.IsZero(lowNextValue), IsStrictlyLess(api, value, lowNextValue))
	api.AssertIsEqual(upper, 1)
}

// leafHash commits to an indexed leaf tuple.
func leafHash(api frontend.API, value, nextIndex, nextValue frontend.Variable) (frontend.Variable, error) {
	return poseidon2.HashGnark(api, value, nextIndex, nextValue)
}

// pathRoot walks a sibling path from leaf to root. pathBits are the leaf
// index bits, least significant first.
func pathRoot(api frontend.API, leaf frontend.Variable, pathBits, siblings []frontend.Variable) (frontend.Variable, error) {
	h := leaf
	var err error
	for i, sib := range siblings {
		l := api.Select(pathBits[i], sib, h)
		r := api.Select(pathBits[i], h, sib)
		if h, err = poseidon2.HashGnark(api, l, r); err != nil {
			return 0, err
		}
	}
	return h, nil
}

// updateRoot proves oldLeaf sits under oldRoot at the given position, then
// returns the root with newLeaf in its place. Both computations share the
// same siblings, which is what binds the update to a single-leaf change.
func updateRoot(api frontend.API, oldRoot, oldLeaf, newLeaf frontend.Variable, pathBits, siblings []frontend.Variable) (frontend.Variable, error) {
	got, err := pathRoot(api, oldLeaf, pathBits, siblings)
	if err != nil {
		return 0, err
	}
	api.AssertIsEqual(got, oldRoot)
	return pathRoot(api, newLeaf, pathBits, siblings)
}

// incrementBits returns the bits of x+1 given the bits of x, least
// significant first. Overflow past the top bit is discarded; callers
// guarantee the index stays below capacity.
func incrementBits(api frontend.API, bits []frontend.Variable) []frontend.Variable {
	out := make([]frontend.Variable, len(bits))
	carry := frontend.Variable(1)
	for i, b := range bits {
		out[i] = api.Xor(b, carry)
		carry = api.And(b, carry)
	}
	return out
}
