package poseidon2

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// BN254BaseField is the scalar field all tree values live in.
var BN254BaseField = fr.Modulus()

// width-2 Poseidon-2 permutation (t=2, rF=6, rP=50)
var perm2 = poseidon2.NewPermutation(2, 6, 50)

// chain absorbs the limbs one at a time with Merkle-Damgard chaining:
// CV_0 := 0, CV_{i+1} = S_1 + m_i. Inputs are positional: Hash2(a,b) and
// Hash2(b,a) commit to different nodes, which the tree relies on to
// distinguish left from right children.
func chain(limbs ...*big.Int) (*big.Int, error) {
	var cv fr.Element
	for _, l := range limbs {
		if l == nil {
			return nil, fmt.Errorf("poseidon2: nil limb")
		}
		var m fr.Element
		m.SetBigInt(BigToFF(l))
		st := [...]fr.Element{cv, m}
		if err := perm2.Permutation(st[:]); err != nil {
			return nil, err
		}
		cv.Add(&st[1], &m)
	}
	return cv.BigInt(new(big.Int)), nil
}

// Hash2 hashes an internal tree node from its left and right children.
func Hash2(l, r *big.Int) (*big.Int, error) {
	return chain(l, r)
}

// Hash3 hashes an indexed leaf tuple (value, nextIndex, nextValue).
func Hash3(value, nextIndex, nextValue *big.Int) (*big.Int, error) {
	return chain(value, nextIndex, nextValue)
}

// BigToFF reduces iv to a canonical BN254 field representative.
func BigToFF(iv *big.Int) *big.Int {
	return new(big.Int).Mod(iv, BN254BaseField)
}

// InField reports whether x is already a canonical field representative.
func InField(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.Cmp(BN254BaseField) < 0
}
