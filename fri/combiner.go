package fri

import (
	"fmt"

	"github.com/consensys/gnark/frontend"

	gl "github.com/ZpokenWeb3/gnark-fri-verifier/goldilocks"
	"github.com/ZpokenWeb3/gnark-fri-verifier/variables"
)

// EvalPointLabel tags the evaluation point argument the verifier
// appends to every combiner call. The label is reserved; input
// polynomials must not use it.
const EvalPointLabel = "ev_p"

type Labeled struct {
	Label string
	Value gl.Variable
}

// Combiner batches the values of all committed input polynomials at
// one coset slot (plus the slot's evaluation point, labeled
// EvalPointLabel) into the single value the first fold operates on.
// It must be pure: deterministic, no lookups outside the given list.
type Combiner func(values []Labeled) gl.Variable

// FindLabeled returns the value carrying the given label. A missing
// label is a caller contract violation and panics at circuit build
// time, it is never a soundness flag.
func FindLabeled(values []Labeled, label string) gl.Variable {
	for _, v := range values {
		if v.Label == label {
			return v.Value
		}
	}
	panic(fmt.Sprintf("no value labeled %q", label))
}

// FindLabeledCommitment locates the commitment an upper layer opening
// refers to, by label equality.
func FindLabeledCommitment(commitments []variables.FriLabeledCommitment, label string) variables.FriCommitment {
	for _, c := range commitments {
		if c.Label == label {
			return c.Commitment
		}
	}
	panic(fmt.Sprintf("no commitment labeled %q", label))
}

// NewPowerCombiner batches by powers of alpha:
//
//	sum_j alpha^j * v_(labels[j])
//
// in the given label order. The evaluation point is ignored.
func NewPowerCombiner(chip *gl.Chip, alpha gl.Variable, labels []string) Combiner {
	return func(values []Labeled) gl.Variable {
		terms := make([]gl.Variable, len(labels))
		for j, label := range labels {
			terms[j] = FindLabeled(values, label)
		}
		return chip.ReduceWithPowers(terms, alpha)
	}
}

// NewQuotientCombiner batches DEEP style. Each claim states that the
// polynomial carrying its label evaluates to its value at the point
// `at`; the combiner returns
//
//	(sum_j alpha^j * (v_j - claims[j].Value)) / (x - at)
//
// with x the slot's evaluation point. The quotient is a polynomial of
// reduced degree exactly when every claim is true, so a false claim
// surfaces as a FRI rejection. The denominator inverse must exist:
// evaluation points live in the LDE domain and `at` is sampled outside
// it, so a missing inverse means the instance is misconfigured.
func NewQuotientCombiner(api frontend.API, chip *gl.Chip, alpha gl.Variable, claims []Labeled, at gl.Variable) Combiner {
	return func(values []Labeled) gl.Variable {
		x := FindLabeled(values, EvalPointLabel)

		diffs := make([]gl.Variable, len(claims))
		for j := range claims {
			diffs[j] = chip.Sub(FindLabeled(values, claims[j].Label), claims[j].Value)
		}
		numerator := chip.ReduceWithPowers(diffs, alpha)

		inv, hasInv := chip.Inverse(chip.Sub(x, at))
		api.AssertIsEqual(hasInv, frontend.Variable(1))

		return chip.Mul(numerator, inv)
	}
}
