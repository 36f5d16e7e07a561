package fri_test

import (
	"math/big"
	"math/rand"
	"os"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"

	"github.com/ZpokenWeb3/gnark-fri-verifier/fri"
	gl "github.com/ZpokenWeb3/gnark-fri-verifier/goldilocks"
	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
)

func TestDomainShrink(t *testing.T) {
	cases := []struct {
		logSize, collapsingFactor uint64
	}{
		{8, 1},
		{9, 3},
		{6, 2},
	}

	for _, tc := range cases {
		domain := fri.NewDomain(tc.logSize, tc.collapsingFactor)
		for domain.LogSize() >= tc.collapsingFactor {
			expected := gl.PrimitiveRootOfUnity(domain.LogSize())
			generator := domain.Generator()
			require.True(t, expected.Equal(&generator))

			// The coset shift generates the subgroup a fold collapses,
			// so it is the (2^(k-c))'th power of the layer generator.
			var shift goldilocks.Element
			shift.Exp(domain.Generator(), new(big.Int).Lsh(big.NewInt(1), uint(domain.LogSize()-tc.collapsingFactor)))
			cosetShift := domain.CosetShiftGenerator()
			require.True(t, shift.Equal(&cosetShift))

			next := domain.Next()
			require.Equal(t, domain.LogSize()-tc.collapsingFactor, next.LogSize())

			// Folding squares the domain c times.
			var folded goldilocks.Element
			folded.Exp(domain.Generator(), big.NewInt(1<<tc.collapsingFactor))
			nextGenerator := next.Generator()
			require.True(t, folded.Equal(&nextGenerator))

			domain = next
		}
	}

	require.Panics(t, func() { fri.NewDomain(1, 2).Next() })
}

func TestCosetBitSlicing(t *testing.T) {
	domain := fri.NewDomain(5, 2)
	bits := []frontend.Variable{1, 0, 1, 1, 0}

	require.Equal(t, []frontend.Variable{1, 1, 0}, domain.CosetIndexBits(bits))
	require.Equal(t, []frontend.Variable{1, 0}, domain.CosetOffsetBits(bits))

	require.Panics(t, func() { domain.CosetIndexBits(bits[:4]) })
	require.Panics(t, func() { domain.CosetOffsetBits(bits[:4]) })
}

// chipConfig builds the minimal config a Chip needs for the domain
// level operations under test.
func chipConfig(logSize, collapsingFactor uint64) *types.FriConfig {
	return &types.FriConfig{
		CollapsingFactor: collapsingFactor,
		DegreeBits:       logSize,
		RateBits:         0,
		FinalDegreeBound: 1 << logSize,
		NumQueryRounds:   1,
	}
}

type evalPointsCircuit struct {
	NaturalIndex frontend.Variable
	Expected     []frontend.Variable

	LogSize          uint64 `gnark:"-"`
	CollapsingFactor uint64 `gnark:"-"`
}

func (c *evalPointsCircuit) Define(api frontend.API) error {
	chip := fri.NewChip(api, chipConfig(c.LogSize, c.CollapsingFactor), nil)
	domain := fri.NewDomain(c.LogSize, c.CollapsingFactor)

	bits := api.ToBinary(c.NaturalIndex, int(c.LogSize))
	points := chip.CombinerEvalPoints(domain, domain.CosetIndexBits(bits))
	for o := range points {
		api.AssertIsEqual(points[o].Limb, c.Expected[o])
	}
	return nil
}

// nativeCosetPoints returns the evaluation points of the coset holding
// naturalIndex, in stored order.
func nativeCosetPoints(logSize, collapsingFactor, naturalIndex uint64) []frontend.Variable {
	w := gl.PrimitiveRootOfUnity(logSize)
	shift := gl.PrimitiveRootOfUnity(collapsingFactor)
	cosetIndex := naturalIndex >> collapsingFactor

	var start goldilocks.Element
	start.Exp(w, new(big.Int).SetUint64(gl.ReverseBits(cosetIndex, logSize-collapsingFactor)))

	points := make([]frontend.Variable, 1<<collapsingFactor)
	for o := range points {
		var p goldilocks.Element
		p.Exp(shift, new(big.Int).SetUint64(gl.ReverseBits(uint64(o), collapsingFactor)))
		p.Mul(&p, &start)
		points[o] = p.Uint64()
	}
	return points
}

func TestCombinerEvalPoints(t *testing.T) {
	assert := test.NewAssert(t)
	os.Setenv("USE_BIT_DECOMPOSITION_RANGE_CHECK", "true")

	testCase := func(logSize, collapsingFactor, naturalIndex uint64) {
		circuit := evalPointsCircuit{
			Expected:         make([]frontend.Variable, 1<<collapsingFactor),
			LogSize:          logSize,
			CollapsingFactor: collapsingFactor,
		}
		witness := evalPointsCircuit{
			NaturalIndex: naturalIndex,
			Expected:     nativeCosetPoints(logSize, collapsingFactor, naturalIndex),
		}
		err := test.IsSolved(&circuit, &witness, ecc.BN254.ScalarField())
		assert.NoError(err)
	}

	for naturalIndex := uint64(0); naturalIndex < 8; naturalIndex++ {
		testCase(3, 1, naturalIndex)
	}
	testCase(4, 2, 13)
	testCase(5, 2, 0)
	testCase(6, 3, 42)
}

type interpolateCircuit struct {
	NaturalIndex frontend.Variable
	Values       []frontend.Variable
	Challenges   []frontend.Variable
	Expected     frontend.Variable

	LogSize          uint64 `gnark:"-"`
	CollapsingFactor uint64 `gnark:"-"`
}

func (c *interpolateCircuit) Define(api frontend.API) error {
	chip := fri.NewChip(api, chipConfig(c.LogSize, c.CollapsingFactor), nil)
	domain := fri.NewDomain(c.LogSize, c.CollapsingFactor)

	values := make([]gl.Variable, len(c.Values))
	for i := range values {
		values[i] = gl.NewVariable(c.Values[i])
	}
	challenges := make([]gl.Variable, len(c.Challenges))
	for i := range challenges {
		challenges[i] = gl.NewVariable(c.Challenges[i])
	}

	bits := api.ToBinary(c.NaturalIndex, int(c.LogSize))
	result := chip.InterpolateInCoset(domain, values, domain.CosetIndexBits(bits), challenges)
	api.AssertIsEqual(result.Limb, c.Expected)
	return nil
}

// nativeLagrange evaluates the interpolant through (xs, ys) at x.
func nativeLagrange(xs, ys []goldilocks.Element, x goldilocks.Element) goldilocks.Element {
	var sum goldilocks.Element
	for i := range xs {
		term := ys[i]
		for j := range xs {
			if i == j {
				continue
			}
			var num, den goldilocks.Element
			num.Sub(&x, &xs[j])
			den.Sub(&xs[i], &xs[j])
			den.Inverse(&den)
			num.Mul(&num, &den)
			term.Mul(&term, &num)
		}
		sum.Add(&sum, &term)
	}
	return sum
}

func TestInterpolateInCoset(t *testing.T) {
	assert := test.NewAssert(t)
	os.Setenv("USE_BIT_DECOMPOSITION_RANGE_CHECK", "true")
	rnd := rand.New(rand.NewSource(7))

	testCase := func(logSize, collapsingFactor, naturalIndex uint64, betaOnPoint bool) {
		cosetSize := 1 << collapsingFactor

		ys := make([]goldilocks.Element, cosetSize)
		values := make([]frontend.Variable, cosetSize)
		for o := range ys {
			ys[o] = goldilocks.NewElement(rnd.Uint64() % goldilocks.Modulus().Uint64())
			values[o] = ys[o].Uint64()
		}

		points := nativeCosetPoints(logSize, collapsingFactor, naturalIndex)
		xs := make([]goldilocks.Element, cosetSize)
		for o := range xs {
			xs[o] = goldilocks.NewElement(points[o].(uint64))
		}

		var beta goldilocks.Element
		if betaOnPoint {
			beta = xs[cosetSize-1]
		} else {
			beta = goldilocks.NewElement(rnd.Uint64() % goldilocks.Modulus().Uint64())
		}

		challenges := make([]frontend.Variable, cosetSize)
		challenges[0] = beta.Uint64()
		for i := 1; i < cosetSize; i++ {
			challenges[i] = rnd.Uint64() % goldilocks.Modulus().Uint64()
		}

		expected := nativeLagrange(xs, ys, beta)

		circuit := interpolateCircuit{
			Values:           make([]frontend.Variable, cosetSize),
			Challenges:       make([]frontend.Variable, cosetSize),
			LogSize:          logSize,
			CollapsingFactor: collapsingFactor,
		}
		witness := interpolateCircuit{
			NaturalIndex: naturalIndex,
			Values:       values,
			Challenges:   challenges,
			Expected:     expected.Uint64(),
		}
		err := test.IsSolved(&circuit, &witness, ecc.BN254.ScalarField())
		assert.NoError(err)
	}

	testCase(3, 1, 5, false)
	testCase(4, 2, 13, false)
	testCase(5, 2, 21, false)
	// The challenge landing on an interpolation point takes the
	// selection path instead of the barycentric quotient.
	testCase(4, 2, 6, true)
	// Collapsing factor 0 returns the single value.
	testCase(3, 0, 4, false)
}

type selectByOffsetCircuit struct {
	Values   []frontend.Variable
	Bits     []frontend.Variable
	Expected frontend.Variable

	LogSize          uint64 `gnark:"-"`
	CollapsingFactor uint64 `gnark:"-"`
}

func (c *selectByOffsetCircuit) Define(api frontend.API) error {
	chip := fri.NewChip(api, chipConfig(c.LogSize, c.CollapsingFactor), nil)

	values := make([]gl.Variable, len(c.Values))
	for i := range values {
		values[i] = gl.NewVariable(c.Values[i])
	}
	selected := chip.SelectByOffsetBits(values, c.Bits)
	api.AssertIsEqual(selected.Limb, c.Expected)
	return nil
}

func TestSelectByOffsetBits(t *testing.T) {
	assert := test.NewAssert(t)
	os.Setenv("USE_BIT_DECOMPOSITION_RANGE_CHECK", "true")

	values := []frontend.Variable{10, 20, 30, 40, 50, 60, 70, 80}
	for offset := 0; offset < len(values); offset++ {
		circuit := selectByOffsetCircuit{
			Values:           make([]frontend.Variable, len(values)),
			Bits:             make([]frontend.Variable, 3),
			LogSize:          6,
			CollapsingFactor: 3,
		}
		witness := selectByOffsetCircuit{
			Values:   values,
			Bits:     []frontend.Variable{offset & 1, (offset >> 1) & 1, (offset >> 2) & 1},
			Expected: values[offset],
		}
		err := test.IsSolved(&circuit, &witness, ecc.BN254.ScalarField())
		assert.NoError(err)
	}
}
