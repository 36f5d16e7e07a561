package goldilocks

import (
	"math/bits"

	"github.com/consensys/gnark-crypto/field/goldilocks"
)

// Computes the n'th primitive root of unity for the Goldilocks field.
func PrimitiveRootOfUnity(nLog uint64) goldilocks.Element {
	if nLog > TWO_ADICITY {
		panic("nLog is greater than TWO_ADICITY")
	}
	res := goldilocks.NewElement(POWER_OF_TWO_GENERATOR.Uint64())
	for i := 0; i < int(TWO_ADICITY-nLog); i++ {
		res.Square(&res)
	}
	return res
}

// Returns the elements of the order 2^nLog subgroup in cyclic order,
// starting from one.
func TwoAdicSubgroup(nLog uint64) []goldilocks.Element {
	if nLog > TWO_ADICITY {
		panic("nLog is greater than TWO_ADICITY")
	}

	var res []goldilocks.Element
	rootOfUnity := PrimitiveRootOfUnity(nLog)
	res = append(res, goldilocks.NewElement(1))

	for i := 0; i < (1<<nLog)-1; i++ {
		lastElement := res[len(res)-1]
		res = append(res, *lastElement.Mul(&lastElement, &rootOfUnity))
	}

	return res
}

// Reverses the low bitLen bits of x. Values evaluated over a two adic
// subgroup are stored in bit reversed order, so index arithmetic on
// them goes through this.
func ReverseBits(x uint64, bitLen uint64) uint64 {
	return bits.Reverse64(x) >> (64 - bitLen)
}
