package goldilocks

import (
	"github.com/consensys/gnark/frontend"
)

// Lookup is similar to select, but returns the first variable if the bit is
// zero and vice-versa.
func (p *Chip) Lookup(b frontend.Variable, x, y Variable) Variable {
	return NewVariable(p.api.Select(b, y.Limb, x.Limb))
}

// Lookup2 returns the ith value (0 indexed) where i is bit decomposed to
// b0,b1 (little endian).
func (p *Chip) Lookup2(
	b0 frontend.Variable,
	b1 frontend.Variable,
	v0, v1, v2, v3 Variable,
) Variable {
	c0 := p.Lookup(b0, v0, v1)
	c1 := p.Lookup(b0, v2, v3)
	return p.Lookup(b1, c0, c1)
}

// Reduces a list of terms with a scalar power in the Goldilocks field,
// i.e. evaluates the polynomial with coefficients terms at scalar by
// Horner's rule.
func (p *Chip) ReduceWithPowers(terms []Variable, scalar Variable) Variable {
	sum := Zero()
	for i := len(terms) - 1; i >= 0; i-- {
		sum = p.Reduce(
			p.AddNoReduce(
				p.MulNoReduce(
					sum,
					scalar,
				),
				terms[i],
			),
		)
	}
	return sum
}
