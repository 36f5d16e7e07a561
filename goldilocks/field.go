// Package goldilocks implements circuit arithmetic over the Goldilocks
// field (p = 2^64 - 2^32 + 1) inside a BN254 constraint system. It does
// not go through gnark's emulated field API; a Goldilocks element fits
// in a single BN254 wire, so reduction is done with hints plus range
// checks, which is considerably cheaper.
package goldilocks

// Methods whose name does not contain `NoReduce` always return a
// canonical (reduced) element. The NoReduce variants skip the reduction
// and are meant for accumulating short dot products; the caller is
// responsible for reducing before the accumulated value outgrows
// RANGE_CHECK_NB_BITS bits.

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"sync"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/std/rangecheck"
)

// The multiplicative group generator of the field.
var MULTIPLICATIVE_GROUP_GENERATOR goldilocks.Element = goldilocks.NewElement(7)

// The two adicity of the field.
var TWO_ADICITY uint64 = 32

// The generator of the maximal power-of-two order subgroup.
var POWER_OF_TWO_GENERATOR goldilocks.Element = goldilocks.NewElement(1753635133440165772)

// The modulus of the field.
var MODULUS *big.Int = emulated.Goldilocks{}.Modulus()

// The number of bits to use for range checks on reduction quotients.
// This MUST be a multiple of EXPECTED_OPTIMAL_BASEWIDTH if the commit
// based range checker is used; pre 0.9.2 gnark does not check a
// bitwidth that is misaligned from the base width:
// https://github.com/Consensys/gnark/security/advisories/GHSA-rjjm-x32p-m3f7
var RANGE_CHECK_NB_BITS int = 144

// The bit width the gnark commit based range checker is expected to pick.
var EXPECTED_OPTIMAL_BASEWIDTH int = 16

func init() {
	solver.RegisterHint(MulAddHint)
	solver.RegisterHint(ReduceHint)
	solver.RegisterHint(InverseHint)
	solver.RegisterHint(SplitLimbsHint)
}

// A Goldilocks field element inside the circuit, one BN254 wire wide.
type Variable struct {
	Limb frontend.Variable
}

// Creates a new Goldilocks field element from an existing variable.
// Assumes that the element is already reduced.
func NewVariable(x frontend.Variable) Variable {
	return Variable{Limb: x}
}

// The zero element of the field.
func Zero() Variable {
	return NewVariable(0)
}

// The one element of the field.
func One() Variable {
	return NewVariable(1)
}

// The negative one element of the field.
func NegOne() Variable {
	return NewVariable(MODULUS.Uint64() - 1)
}

type RangeCheckerType int

const (
	NATIVE_RANGE_CHECKER RangeCheckerType = iota
	COMMIT_RANGE_CHECKER
	BIT_DECOMP_RANGE_CHECKER
)

// The chip used for Goldilocks field operations.
type Chip struct {
	api frontend.API

	rangeChecker     frontend.Rangechecker
	rangeCheckerType RangeCheckerType

	rangeCheckCollected []checkedVariable // used if rangeCheckerType == COMMIT_RANGE_CHECKER
	collectedMutex      sync.Mutex
}

var (
	chips = make(map[frontend.API]*Chip)
	mutex sync.Mutex
)

// New returns the Goldilocks chip for the given API, creating it on
// first use. One chip exists per constraint system so that collected
// range checks end up in a single deferred batch.
func New(api frontend.API) *Chip {
	mutex.Lock()
	defer mutex.Unlock()

	if chip, ok := chips[api]; ok {
		return chip
	}

	c := &Chip{api: api}

	// Mirror gnark's range checker selection (rangecheck.New picks the
	// native, commit or bit decomposition checker depending on builder
	// capabilities). The USE_BIT_DECOMPOSITION_RANGE_CHECK env var
	// forces the bit decomposition checker.
	rangeCheckerType := gnarkRangeCheckerSelector(api)
	if os.Getenv("USE_BIT_DECOMPOSITION_RANGE_CHECK") == "true" {
		fmt.Println("USE_BIT_DECOMPOSITION_RANGE_CHECK is set, using the bit decomposition range checker")
		rangeCheckerType = BIT_DECOMP_RANGE_CHECKER
	}

	c.rangeCheckerType = rangeCheckerType

	if c.rangeCheckerType == BIT_DECOMP_RANGE_CHECKER {
		c.rangeChecker = bitDecompChecker{api: api}
	} else {
		if c.rangeCheckerType == COMMIT_RANGE_CHECKER {
			api.Compiler().Defer(c.checkCollected)
		}

		// The checker has to be created after c.checkCollected is
		// deferred; the commit range checker defers its own finalizer
		// which must run after ours.
		c.rangeChecker = rangecheck.New(api)
	}

	chips[api] = c

	return c
}

// Adds two field elements and returns the reduced sum.
func (p *Chip) Add(a Variable, b Variable) Variable {
	return p.MulAdd(a, NewVariable(1), b)
}

// Adds two field elements without reducing the sum.
func (p *Chip) AddNoReduce(a Variable, b Variable) Variable {
	return NewVariable(p.api.Add(a.Limb, b.Limb))
}

// Subtracts two field elements and returns the reduced difference.
func (p *Chip) Sub(a Variable, b Variable) Variable {
	return p.MulAdd(b, NegOne(), a)
}

// Subtracts two field elements without reducing the difference.
func (p *Chip) SubNoReduce(a Variable, b Variable) Variable {
	return NewVariable(p.api.Add(a.Limb, p.api.Mul(b.Limb, NegOne().Limb)))
}

// Multiplies two field elements and returns the reduced product.
func (p *Chip) Mul(a Variable, b Variable) Variable {
	return p.MulAdd(a, b, Zero())
}

// Multiplies two field elements without reducing the product.
func (p *Chip) MulNoReduce(a Variable, b Variable) Variable {
	return NewVariable(p.api.Mul(a.Limb, b.Limb))
}

// Computes a * b + c and returns the reduced result. The operands must
// be reduced.
func (p *Chip) MulAdd(a Variable, b Variable, c Variable) Variable {
	result, err := p.api.Compiler().NewHint(MulAddHint, 2, a.Limb, b.Limb, c.Limb)
	if err != nil {
		panic(err)
	}

	quotient := NewVariable(result[0])
	remainder := NewVariable(result[1])

	cLimbCopy := p.api.Mul(c.Limb, 1)
	lhs := p.api.MulAcc(cLimbCopy, a.Limb, b.Limb)
	rhs := p.api.MulAcc(remainder.Limb, MODULUS, quotient.Limb)
	p.api.AssertIsEqual(lhs, rhs)

	p.RangeCheck(quotient)
	p.RangeCheck(remainder)
	return remainder
}

// Computes a * b + c without reducing the result.
func (p *Chip) MulAddNoReduce(a Variable, b Variable, c Variable) Variable {
	cLimbCopy := p.api.Mul(c.Limb, 1)
	return NewVariable(p.api.MulAcc(cLimbCopy, a.Limb, b.Limb))
}

// Computes (a - b) * c with a single reduction. The product before
// reduction stays below 2^192, within the quotient range check.
func (p *Chip) SubMul(a Variable, b Variable, c Variable) Variable {
	return p.Reduce(p.MulNoReduce(p.SubNoReduce(a, b), c))
}

// The hint used to compute MulAdd.
func MulAddHint(_ *big.Int, inputs []*big.Int, results []*big.Int) error {
	if len(inputs) != 3 {
		panic("MulAddHint expects 3 input operands")
	}

	for _, operand := range inputs {
		if operand.Cmp(MODULUS) >= 0 {
			panic(fmt.Sprintf("%s is not in the field", operand.String()))
		}
	}

	product := new(big.Int).Mul(inputs[0], inputs[1])
	sum := new(big.Int).Add(product, inputs[2])
	quotient := new(big.Int).Div(sum, MODULUS)
	remainder := new(big.Int).Rem(sum, MODULUS)

	results[0] = quotient
	results[1] = remainder

	return nil
}

// Reduces a field element x such that x % MODULUS = y.
func (p *Chip) Reduce(x Variable) Variable {
	return p.ReduceWithMaxBits(x, uint64(RANGE_CHECK_NB_BITS))
}

// Reduces a field element x, where x is known to fit maxNbBits bits,
// such that x % MODULUS = y.
func (p *Chip) ReduceWithMaxBits(x Variable, maxNbBits uint64) Variable {
	// Witness a quotient and remainder with
	//
	//     MODULUS * quotient + remainder = x
	//
	// and check remainder \in [0, MODULUS) and quotient \in
	// [0, 2^maxNbBits) so the identity cannot overflow.
	result, err := p.api.Compiler().NewHint(ReduceHint, 2, x.Limb)
	if err != nil {
		panic(err)
	}

	quotient := result[0]
	p.rangeCheckerCheck(quotient, int(maxNbBits))

	remainder := NewVariable(result[1])
	p.RangeCheck(remainder)

	p.api.AssertIsEqual(x.Limb, p.api.Add(p.api.Mul(quotient, MODULUS), remainder.Limb))

	return remainder
}

// The hint used to compute Reduce.
func ReduceHint(_ *big.Int, inputs []*big.Int, results []*big.Int) error {
	if len(inputs) != 1 {
		panic("ReduceHint expects 1 input operand")
	}
	input := inputs[0]
	results[0] = new(big.Int).Div(input, MODULUS)
	results[1] = new(big.Int).Rem(input, MODULUS)
	return nil
}

// Computes the inverse of x. The second return value is 1 when the
// inverse exists and 0 when x is zero, in which case the first return
// value is zero. The caller decides whether a missing inverse is fatal.
func (p *Chip) Inverse(x Variable) (Variable, frontend.Variable) {
	result, err := p.api.Compiler().NewHint(InverseHint, 1, x.Limb)
	if err != nil {
		panic(err)
	}

	inverse := NewVariable(result[0])
	isZero := p.api.IsZero(x.Limb)
	hasInv := p.api.Sub(1, isZero)
	p.RangeCheck(inverse)

	product := p.Mul(inverse, x)
	productToCheck := p.api.Select(hasInv, product.Limb, frontend.Variable(1))
	p.api.AssertIsEqual(productToCheck, frontend.Variable(1))

	return inverse, hasInv
}

// Computes a / b. The second return value is 0 when b has no inverse,
// in which case the quotient is zero.
func (p *Chip) Div(a Variable, b Variable) (Variable, frontend.Variable) {
	bInv, hasInv := p.Inverse(b)
	return p.Mul(a, bInv), hasInv
}

// The hint used to compute Inverse.
func InverseHint(_ *big.Int, inputs []*big.Int, results []*big.Int) error {
	if len(inputs) != 1 {
		panic("InverseHint expects 1 input operand")
	}

	input := inputs[0]
	if input.Cmp(MODULUS) >= 0 {
		panic("input is not in the field")
	}

	inputGl := goldilocks.NewElement(input.Uint64())
	resultGl := goldilocks.NewElement(0)

	// Inverse leaves the result at zero when the input is zero.
	resultGl.Inverse(&inputGl)

	result := big.NewInt(0)
	results[0] = resultGl.BigInt(result)

	return nil
}

// The hint used to split a field element into two 32 bit limbs.
func SplitLimbsHint(_ *big.Int, inputs []*big.Int, results []*big.Int) error {
	if len(inputs) != 1 {
		panic("SplitLimbsHint expects 1 input operand")
	}

	input := inputs[0]
	if input.Cmp(MODULUS) >= 0 {
		return fmt.Errorf("input is not in the field")
	}

	twoPow32 := new(big.Int).Lsh(big.NewInt(1), 32)

	// The most significant bits, then the least significant bits.
	results[0] = new(big.Int).Quo(input, twoPow32)
	results[1] = new(big.Int).Rem(input, twoPow32)

	return nil
}

// Range checks a variable to be less than the Goldilocks modulus
// 2^64 - 2^32 + 1.
func (p *Chip) RangeCheck(x Variable) {
	// The modulus in big endian binary is
	//
	//     1111111111111111111111111111111100000000000000000000000000000001
	//
	// so after checking that x fits 64 bits as two 32 bit limbs, the
	// only values to exclude are those where the high limb is all ones
	// and the low limb is nonzero.
	result, err := p.api.Compiler().NewHint(SplitLimbsHint, 2, x.Limb)
	if err != nil {
		panic(err)
	}

	mostSigLimb := result[0]
	leastSigLimb := result[1]
	p.api.AssertIsEqual(
		p.api.Add(
			p.api.Mul(mostSigLimb, uint64(1)<<32),
			leastSigLimb,
		),
		x.Limb,
	)
	p.rangeCheckerCheck(mostSigLimb, 32)
	p.rangeCheckerCheck(leastSigLimb, 32)

	shouldCheck := p.api.IsZero(p.api.Sub(mostSigLimb, uint64(1)<<32-1))
	p.api.AssertIsEqual(
		p.api.Select(
			shouldCheck,
			leastSigLimb,
			frontend.Variable(0),
		),
		frontend.Variable(0),
	)
}

// Asserts that x is less than 2^maxNbBits.
func (p *Chip) RangeCheckWithMaxBits(x Variable, maxNbBits uint64) {
	p.rangeCheckerCheck(x.Limb, int(maxNbBits))
}

// Asserts that two reduced field elements are equal.
func (p *Chip) AssertIsEqual(x, y Variable) {
	p.api.AssertIsEqual(x.Limb, y.Limb)
}

// Returns a boolean variable that is 1 iff the two reduced field
// elements are equal.
func (p *Chip) IsEqual(x, y Variable) frontend.Variable {
	return p.api.IsZero(p.api.Sub(x.Limb, y.Limb))
}

func (p *Chip) rangeCheckerCheck(x frontend.Variable, nbBits int) {
	switch p.rangeCheckerType {
	case NATIVE_RANGE_CHECKER:
		p.rangeChecker.Check(x, nbBits)
	case BIT_DECOMP_RANGE_CHECKER:
		p.rangeChecker.Check(x, nbBits)
	case COMMIT_RANGE_CHECKER:
		p.collectedMutex.Lock()
		defer p.collectedMutex.Unlock()
		p.rangeCheckCollected = append(p.rangeCheckCollected, checkedVariable{v: x, bits: nbBits})
	}
}

func (p *Chip) checkCollected(api frontend.API) error {
	if p.rangeCheckerType != COMMIT_RANGE_CHECKER {
		panic("checkCollected should only be called when using the commit range checker")
	}

	nbBits := getOptimalBasewidth(p.api, p.rangeCheckCollected)
	if nbBits != EXPECTED_OPTIMAL_BASEWIDTH {
		panic("nbBits should be " + strconv.Itoa(EXPECTED_OPTIMAL_BASEWIDTH))
	}

	for _, v := range p.rangeCheckCollected {
		if v.bits%nbBits != 0 {
			panic("v.bits is not nbBits aligned")
		}

		p.rangeChecker.Check(v.v, v.bits)
	}

	return nil
}
