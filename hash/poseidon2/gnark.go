package poseidon2

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/permutation/poseidon2"
)

// HashGnark is the in-circuit counterpart of the native chain: width-2
// Poseidon-2 permutation (t=2, rF=6, rP=50) with Merkle-Damgard chaining.
// Inputs are positional, matching Hash2/Hash3 exactly.
func HashGnark(api frontend.API, limbs ...frontend.Variable) (frontend.Variable, error) {
	if n := len(limbs); n != 2 && n != 3 {
		return 0, fmt.Errorf("poseidon2: need 2 or 3 limbs, got %d", n)
	}

	perm, err := poseidon2.NewPoseidon2FromParameters(api, 2, 6, 50)
	if err != nil {
		return 0, err
	}

	cv := frontend.Variable(0) // CV₀ := 0
	for _, m := range limbs {
		state := []frontend.Variable{cv, m} // absorb one limb
		if err := perm.Permutation(state); err != nil {
			return 0, err
		}
		cv = api.Add(state[1], m) // CVᵢ₊₁ = S₁ + mᵢ
	}
	return cv, nil
}
