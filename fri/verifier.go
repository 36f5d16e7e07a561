package fri

import (
	"fmt"

	"github.com/consensys/gnark/frontend"

	gl "github.com/ZpokenWeb3/gnark-fri-verifier/goldilocks"
	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
	"github.com/ZpokenWeb3/gnark-fri-verifier/variables"
)

// Chip verifies FRI low degree proofs inside the circuit. The oracle
// scheme is injected, the combiner is supplied per verification call.
type Chip struct {
	api    frontend.API
	gl     *gl.Chip
	config *types.FriConfig
	oracle OracleVerifier
}

func NewChip(api frontend.API, config *types.FriConfig, oracle OracleVerifier) *Chip {
	return &Chip{
		api:    api,
		gl:     gl.New(api),
		config: config,
		oracle: oracle,
	}
}

// validateProofShape checks the proof and challenge containers against
// the config. It adds no constraints; any mismatch is a caller contract
// violation, not adversarial data, and panics at circuit build time.
func validateProofShape(proof *variables.FriProof, challenges *variables.FriChallenges, config *types.FriConfig) {
	cosetSize := config.CosetSize()
	numSteps := config.NumFoldSteps()
	numLayers := config.NumLayerCommitments()
	ldeBits := uint64(config.LdeBits())

	if len(proof.QueryRounds) != int(config.NumQueryRounds) {
		panic(fmt.Sprintf(
			"number of query rounds (%d) does not match config (%d)",
			len(proof.QueryRounds), config.NumQueryRounds,
		))
	}
	if len(proof.FinalCoefficients) == 0 {
		panic("final polynomial has no coefficients")
	}
	if uint64(len(proof.FinalCoefficients)) > config.FinalDegreeBound {
		panic(fmt.Sprintf(
			"final polynomial has %d coefficients, bound is %d",
			len(proof.FinalCoefficients), config.FinalDegreeBound,
		))
	}
	if len(challenges.FoldingChallenges) != numSteps*cosetSize {
		panic(fmt.Sprintf(
			"%d folding challenges, want %d fold steps of %d",
			len(challenges.FoldingChallenges), numSteps, cosetSize,
		))
	}
	if len(proof.LayerCommitments) != numLayers {
		panic(fmt.Sprintf(
			"%d layer commitments, config folds through %d intermediate layers",
			len(proof.LayerCommitments), numLayers,
		))
	}
	if len(proof.UpperCommitments) == 0 {
		panic("no upper layer commitments")
	}
	for i := range proof.UpperCommitments {
		if proof.UpperCommitments[i].Label == EvalPointLabel {
			panic(fmt.Sprintf("commitment label %q is reserved for the evaluation point", EvalPointLabel))
		}
	}

	for r := range proof.QueryRounds {
		round := &proof.QueryRounds[r]
		if len(round.UpperOpenings) != len(proof.UpperCommitments) {
			panic(fmt.Sprintf(
				"round %d opens %d upper polynomials, %d are committed",
				r, len(round.UpperOpenings), len(proof.UpperCommitments),
			))
		}
		for i := range round.UpperOpenings {
			opening := &round.UpperOpenings[i].Opening
			if len(opening.Values) != cosetSize {
				panic(fmt.Sprintf("round %d upper opening %d: coset size mismatch", r, i))
			}
			if uint64(len(opening.Proof.Siblings)) != ldeBits-config.CollapsingFactor {
				panic(fmt.Sprintf("round %d upper opening %d: path depth mismatch", r, i))
			}
		}
		if len(round.LayerOpenings) != numLayers {
			panic(fmt.Sprintf(
				"round %d opens %d layers, config folds through %d",
				r, len(round.LayerOpenings), numLayers,
			))
		}
		for s := range round.LayerOpenings {
			opening := &round.LayerOpenings[s]
			layerBits := ldeBits - uint64(s+1)*config.CollapsingFactor
			if len(opening.Values) != cosetSize {
				panic(fmt.Sprintf("round %d layer %d: coset size mismatch", r, s))
			}
			if uint64(len(opening.Proof.Siblings)) != layerBits-config.CollapsingFactor {
				panic(fmt.Sprintf("round %d layer %d: path depth mismatch", r, s))
			}
		}
	}
}

// rangeCheckProof constrains every Goldilocks input of the proof and
// the challenges to be canonical. Without this a witness could smuggle
// limbs >= the modulus into the folding arithmetic.
func (f *Chip) rangeCheckProof(proof *variables.FriProof, challenges *variables.FriChallenges) {
	f.gl.RangeCheck(challenges.Alpha)
	for _, c := range challenges.FoldingChallenges {
		f.gl.RangeCheck(c)
	}
	for _, c := range proof.FinalCoefficients {
		f.gl.RangeCheck(c)
	}
	for r := range proof.QueryRounds {
		round := &proof.QueryRounds[r]
		for i := range round.UpperOpenings {
			for _, v := range round.UpperOpenings[i].Opening.Values {
				f.gl.RangeCheck(v)
			}
		}
		for s := range round.LayerOpenings {
			for _, v := range round.LayerOpenings[s].Values {
				f.gl.RangeCheck(v)
			}
		}
	}
}

// verifyQueryRound runs the checks of one query round and returns its
// validity flag:
//
//  1. open every upper layer polynomial's coset and check it against
//     its labeled commitment,
//  2. combine the opened slots with the caller's combiner,
//  3. fold layer by layer, checking each layer's opening against its
//     commitment and the previous layer's interpolant against the slot
//     the natural index points at,
//  4. compare the last interpolant with the final polynomial.
//
// Soundness failures only clear the flag; the circuit always builds.
func (f *Chip) verifyQueryRound(
	proof *variables.FriProof,
	challenges *variables.FriChallenges,
	combiner Combiner,
	roundProof *variables.FriQueryRound,
) frontend.Variable {
	cosetSize := f.config.CosetSize()
	collapsingFactor := f.config.CollapsingFactor
	domain := NewDomain(uint64(f.config.LdeBits()), collapsingFactor)
	foldingChallenges := challenges.FoldingChallenges

	valid := frontend.Variable(1)

	// Constrains the index to the initial domain as a side effect.
	naturalIndexBits := f.api.ToBinary(roundProof.NaturalIndex, f.config.LdeBits())
	cosetIndexBits := domain.CosetIndexBits(naturalIndexBits)

	for i := range roundProof.UpperOpenings {
		opening := &roundProof.UpperOpenings[i]
		commitment := FindLabeledCommitment(proof.UpperCommitments, opening.Label)
		ok := f.oracle.Validate(
			domain.LogSize(),
			opening.Opening.Values,
			cosetIndexBits,
			commitment,
			opening.Opening.Proof,
		)
		valid = f.api.And(valid, ok)
	}

	evalPoints := f.CombinerEvalPoints(domain, cosetIndexBits)
	combined := make([]gl.Variable, cosetSize)
	for o := 0; o < cosetSize; o++ {
		args := make([]Labeled, 0, len(roundProof.UpperOpenings)+1)
		for i := range roundProof.UpperOpenings {
			args = append(args, Labeled{
				Label: roundProof.UpperOpenings[i].Label,
				Value: roundProof.UpperOpenings[i].Opening.Values[o],
			})
		}
		args = append(args, Labeled{Label: EvalPointLabel, Value: evalPoints[o]})
		combined[o] = combiner(args)
	}

	previousLayerElement := f.InterpolateInCoset(
		domain,
		combined,
		cosetIndexBits,
		foldingChallenges[0:cosetSize],
	)

	for s := range roundProof.LayerOpenings {
		opening := &roundProof.LayerOpenings[s]

		domain = domain.Next()
		naturalIndexBits = naturalIndexBits[collapsingFactor:]
		cosetIndexBits = domain.CosetIndexBits(naturalIndexBits)
		offsetBits := domain.CosetOffsetBits(naturalIndexBits)

		ok := f.oracle.Validate(
			domain.LogSize(),
			opening.Values,
			cosetIndexBits,
			proof.LayerCommitments[s],
			opening.Proof,
		)
		valid = f.api.And(valid, ok)

		currentLayerElement := f.SelectByOffsetBits(opening.Values, offsetBits)
		valid = f.api.And(valid, f.gl.IsEqual(previousLayerElement, currentLayerElement))

		chunk := foldingChallenges[(s+1)*cosetSize : (s+2)*cosetSize]
		previousLayerElement = f.InterpolateInCoset(domain, opening.Values, cosetIndexBits, chunk)
	}

	var finalValue gl.Variable
	if len(proof.FinalCoefficients) == 1 {
		// A constant polynomial needs no evaluation point.
		finalValue = proof.FinalCoefficients[0]
	} else {
		domain = domain.Next()
		naturalIndexBits = naturalIndexBits[collapsingFactor:]

		revBits := make([]frontend.Variable, 0, len(naturalIndexBits))
		for i := len(naturalIndexBits) - 1; i >= 0; i-- {
			revBits = append(revBits, naturalIndexBits[i])
		}
		evalPoint := f.expFromBitsConstBase(domain.BottomLayerGenerator(), revBits)
		finalValue = f.gl.ReduceWithPowers(proof.FinalCoefficients, evalPoint)
	}
	valid = f.api.And(valid, f.gl.IsEqual(previousLayerElement, finalValue))

	return valid
}

// VerifyFriProof verifies all query rounds and returns the single
// boolean the enclosing circuit must assert. A false value never
// aborts construction; it makes the circuit unsatisfiable for the
// dishonest witness once asserted.
func (f *Chip) VerifyFriProof(
	proof *variables.FriProof,
	challenges *variables.FriChallenges,
	combiner Combiner,
) frontend.Variable {
	validateProofShape(proof, challenges, f.config)
	f.rangeCheckProof(proof, challenges)

	valid := frontend.Variable(1)
	for r := range proof.QueryRounds {
		valid = f.api.And(valid, f.verifyQueryRound(proof, challenges, combiner, &proof.QueryRounds[r]))
	}
	return valid
}
