package fri

import (
	"math/big"
	"math/bits"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/consensys/gnark/frontend"

	gl "github.com/ZpokenWeb3/gnark-fri-verifier/goldilocks"
)

// Layer values are stored in bit reversed evaluation order: slot n of a
// layer over the size 2^k subgroup <w> holds f(w^(bitrev_k(n))). A coset
// is the 2^c consecutive slots sharing the high k-c index bits; its
// points {w^(bitrev(q)) * g^(bitrev_c(o))} form a multiplicative coset
// of the order 2^c subgroup <g>, which is what makes one folding step
// equivalent to interpolating the opened slots and evaluating at the
// challenge.

// Domain tracks the evaluation domain of one FRI layer. It is a value:
// Next returns the shrunk domain instead of mutating, so every query
// round folds its own copy and rounds can never observe each other's
// state.
type Domain struct {
	logSize          uint64
	collapsingFactor uint64
	generator        goldilocks.Element
}

func NewDomain(logSize uint64, collapsingFactor uint64) Domain {
	return Domain{
		logSize:          logSize,
		collapsingFactor: collapsingFactor,
		generator:        gl.PrimitiveRootOfUnity(logSize),
	}
}

func (d Domain) LogSize() uint64 {
	return d.logSize
}

func (d Domain) CosetSize() int {
	return 1 << d.collapsingFactor
}

// Generator of the current layer's subgroup.
func (d Domain) Generator() goldilocks.Element {
	return d.generator
}

// Generator of the order 2^c subgroup whose cosets are folded together.
func (d Domain) CosetShiftGenerator() goldilocks.Element {
	return gl.PrimitiveRootOfUnity(d.collapsingFactor)
}

// BottomLayerGenerator is the generator used to evaluate the final
// polynomial. Call it on the domain reached after the last fold step.
func (d Domain) BottomLayerGenerator() goldilocks.Element {
	return d.generator
}

// Next returns the domain one fold step down. Must be called exactly
// once per fold step.
func (d Domain) Next() Domain {
	if d.logSize < d.collapsingFactor {
		panic("domain size underflows the collapsing factor")
	}
	return NewDomain(d.logSize-d.collapsingFactor, d.collapsingFactor)
}

// CosetIndexBits returns the bits selecting which coset of the current
// domain a natural index falls in: everything above the low
// collapsingFactor bits.
func (d Domain) CosetIndexBits(naturalIndexBits []frontend.Variable) []frontend.Variable {
	if uint64(len(naturalIndexBits)) != d.logSize {
		panic("natural index width does not match the domain size")
	}
	return naturalIndexBits[d.collapsingFactor:]
}

// CosetOffsetBits returns the position of a natural index within its
// coset: the low collapsingFactor bits.
func (d Domain) CosetOffsetBits(naturalIndexBits []frontend.Variable) []frontend.Variable {
	if uint64(len(naturalIndexBits)) != d.logSize {
		panic("natural index width does not match the domain size")
	}
	return naturalIndexBits[:d.collapsingFactor]
}

// Computes base^exponent where the exponent is given as a little endian
// bit slice and the base is a constant.
func (f *Chip) expFromBitsConstBase(
	base goldilocks.Element,
	exponentBits []frontend.Variable,
) gl.Variable {
	product := gl.One()
	for i, bit := range exponentBits {
		// If the bit is 1, we multiply product by base^pow.
		// We can arithmetize this as:
		//     product *= 1 + bit (base^pow - 1)
		//     product = (base^pow - 1) product bit + product
		pow := int64(1 << i)
		basePow := goldilocks.NewElement(0)
		basePow.Exp(base, big.NewInt(pow))
		basePowVariable := gl.NewVariable(basePow.Uint64() - 1)
		product = f.gl.Add(
			f.gl.Mul(
				f.gl.Mul(
					basePowVariable,
					product,
				),
				gl.NewVariable(bit),
			),
			product,
		)
	}
	return product
}

// cosetStart computes w^(bitrev(q)) from the coset index bits, the one
// constrained exponentiation a layer needs. Reversing the bit slice is
// free; the square and multiply runs over the constant base.
func (f *Chip) cosetStart(domain Domain, cosetIndexBits []frontend.Variable) gl.Variable {
	revBits := make([]frontend.Variable, 0, len(cosetIndexBits))
	for i := len(cosetIndexBits) - 1; i >= 0; i-- {
		revBits = append(revBits, cosetIndexBits[i])
	}
	return f.expFromBitsConstBase(domain.Generator(), revBits)
}

// CombinerEvalPoints returns the evaluation point of every slot of the
// coset, in stored order: x_o = w^(bitrev(q)) * c_o with c_o =
// g^(bitrev_c(o)) a public constant. Only the common factor costs
// constraints.
func (f *Chip) CombinerEvalPoints(
	domain Domain,
	cosetIndexBits []frontend.Variable,
) []gl.Variable {
	cosetSize := domain.CosetSize()
	start := f.cosetStart(domain, cosetIndexBits)
	shift := domain.CosetShiftGenerator()

	points := make([]gl.Variable, cosetSize)
	for o := 0; o < cosetSize; o++ {
		revO := gl.ReverseBits(uint64(o), domain.collapsingFactor)
		c := goldilocks.NewElement(0)
		c.Exp(shift, big.NewInt(int64(revO)))
		points[o] = f.gl.Mul(start, gl.NewVariable(c.Uint64()))
	}
	return points
}

// InterpolateInCoset evaluates the unique degree < 2^c interpolant of
// the opened coset values at the folding challenge, the value the next
// layer must hold at this query's position. The challenge chunk must
// have exactly coset size entries; the interpolant is evaluated at
// entry 0. Collapsing factor 0 degenerates to returning the single
// value through the same path.
func (f *Chip) InterpolateInCoset(
	domain Domain,
	values []gl.Variable,
	cosetIndexBits []frontend.Variable,
	challenges []gl.Variable,
) gl.Variable {
	cosetSize := domain.CosetSize()
	if len(values) != cosetSize {
		panic("len(values) != coset size")
	}
	if len(challenges) != cosetSize {
		panic("challenge chunk size != coset size")
	}
	if domain.collapsingFactor > 8 {
		panic("currently assuming that the collapsing factor is <= 8")
	}

	beta := challenges[0]

	// Reorder the opened slots into natural evaluation order. The
	// permutation is a compile time constant.
	permutedValues := make([]gl.Variable, cosetSize)
	for o := 0; o < cosetSize; o++ {
		newIndex := bits.Reverse8(uint8(o)) >> (8 - domain.collapsingFactor)
		permutedValues[newIndex] = values[o]
	}

	// OPTIMIZE: the coset start is also computed by CombinerEvalPoints
	// for the upper layer; the two could share it.
	start := f.cosetStart(domain, cosetIndexBits)
	shiftElement := domain.CosetShiftGenerator()
	shift := gl.NewVariable(shiftElement.Uint64())

	xPoints := make([]gl.Variable, cosetSize)
	xPoints[0] = start
	for i := 1; i < cosetSize; i++ {
		xPoints[i] = f.gl.Mul(xPoints[i-1], shift)
	}

	// OPTIMIZE: This is n^2. Is there a way to do this better?
	// Compute the barycentric weights
	barycentricWeights := make([]gl.Variable, cosetSize)
	for i := 0; i < cosetSize; i++ {
		barycentricWeights[i] = gl.One()
		for j := 0; j < cosetSize; j++ {
			if i != j {
				barycentricWeights[i] = f.gl.SubMul(
					xPoints[i],
					xPoints[j],
					barycentricWeights[i],
				)
			}
		}
		// The weights are products of differences of distinct subgroup
		// points, so the inverse always exists.
		inv, hasInv := f.gl.Inverse(barycentricWeights[i])
		f.api.AssertIsEqual(hasInv, frontend.Variable(1))
		barycentricWeights[i] = inv
	}

	return f.interpolate(beta, xPoints, permutedValues, barycentricWeights)
}

// Barycentric evaluation of the interpolant through (xPoints, yPoints)
// at x. The batched form needs one inverse per point; when x collides
// with an interpolation point the quotient has no inverse, and the
// matching y value is selected instead.
func (f *Chip) interpolate(
	x gl.Variable,
	xPoints []gl.Variable,
	yPoints []gl.Variable,
	barycentricWeights []gl.Variable,
) gl.Variable {
	if len(xPoints) != len(yPoints) || len(xPoints) != len(barycentricWeights) {
		panic("length of xPoints, yPoints, and barycentricWeights are inconsistent")
	}

	lX := gl.One()
	for i := 0; i < len(xPoints); i++ {
		lX = f.gl.SubMul(x, xPoints[i], lX)
	}

	sum := gl.Zero()
	lookupFromPoints := frontend.Variable(1)
	for i := 0; i < len(xPoints); i++ {
		quotient, hasQuotient := f.gl.Div(
			barycentricWeights[i],
			f.gl.Sub(x, xPoints[i]),
		)

		lookupFromPoints = f.api.Mul(hasQuotient, lookupFromPoints)

		sum = f.gl.Add(
			f.gl.Mul(
				yPoints[i],
				quotient,
			),
			sum,
		)
	}

	interpolation := f.gl.Mul(lX, sum)

	lookupVal := gl.Zero()
	for i := 0; i < len(xPoints); i++ {
		lookupVal = f.gl.Lookup(
			f.gl.IsEqual(x, xPoints[i]),
			lookupVal,
			yPoints[i],
		)
	}

	return f.gl.Lookup(lookupFromPoints, lookupVal, interpolation)
}

// SelectByOffsetBits multiplexes one value out of a coset by its
// offset bits, low bit first.
func (f *Chip) SelectByOffsetBits(values []gl.Variable, offsetBits []frontend.Variable) gl.Variable {
	if len(values) != 1<<len(offsetBits) {
		panic("len(values) != 2^len(offsetBits)")
	}

	current := values
	for _, bit := range offsetBits {
		next := make([]gl.Variable, len(current)/2)
		for j := range next {
			next[j] = f.gl.Lookup(bit, current[2*j], current[2*j+1])
		}
		current = next
	}
	return current[0]
}
