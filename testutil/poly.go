package testutil

import (
	"math/rand"

	"github.com/consensys/gnark-crypto/field/goldilocks"
)

// Polynomial is one committed input in coefficient form, constant term
// first.
type Polynomial struct {
	Label  string
	Coeffs []goldilocks.Element
}

// RandomPolynomials samples one full degree polynomial per label from
// the given source, so tests stay reproducible.
func RandomPolynomials(rnd *rand.Rand, labels []string, degreeBits uint64) []Polynomial {
	q := goldilocks.Modulus().Uint64()
	polys := make([]Polynomial, len(labels))
	for j, label := range labels {
		coeffs := make([]goldilocks.Element, 1<<degreeBits)
		for i := range coeffs {
			coeffs[i] = goldilocks.NewElement(rnd.Uint64() % q)
		}
		polys[j] = Polynomial{Label: label, Coeffs: coeffs}
	}
	return polys
}

func Labels(polys []Polynomial) []string {
	labels := make([]string, len(polys))
	for j := range polys {
		labels[j] = polys[j].Label
	}
	return labels
}

// EvalAt evaluates the polynomial by Horner's rule.
func EvalAt(coeffs []goldilocks.Element, x goldilocks.Element) goldilocks.Element {
	var acc goldilocks.Element
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc.Mul(&acc, &x)
		acc.Add(&acc, &coeffs[i])
	}
	return acc
}

// PowerCombine batches the polynomials with ascending powers of alpha,
// in slice order. The in circuit counterpart must be built over the
// same label order.
func PowerCombine(alpha goldilocks.Element, polys []Polynomial) []goldilocks.Element {
	combined := make([]goldilocks.Element, len(polys[0].Coeffs))
	pow := goldilocks.One()
	for j := range polys {
		for i := range polys[j].Coeffs {
			var t goldilocks.Element
			t.Mul(&polys[j].Coeffs[i], &pow)
			combined[i].Add(&combined[i], &t)
		}
		pow.Mul(&pow, &alpha)
	}
	return combined
}

// QuotientCombine batches the differences f_j - f_j(at) with ascending
// powers of alpha and divides out (X - at). Each claim is the true
// evaluation, so the division is exact and the quotient drops one
// degree; the vector keeps its length with a zero top coefficient so
// the folding chunks stay aligned. Returns the quotient's coefficients
// and the claimed values in slice order.
func QuotientCombine(alpha goldilocks.Element, polys []Polynomial, at goldilocks.Element) ([]goldilocks.Element, []goldilocks.Element) {
	claims := make([]goldilocks.Element, len(polys))
	num := make([]goldilocks.Element, len(polys[0].Coeffs))
	pow := goldilocks.One()
	for j := range polys {
		claims[j] = EvalAt(polys[j].Coeffs, at)
		for i := range polys[j].Coeffs {
			var t goldilocks.Element
			if i == 0 {
				t.Sub(&polys[j].Coeffs[0], &claims[j])
				t.Mul(&t, &pow)
			} else {
				t.Mul(&polys[j].Coeffs[i], &pow)
			}
			num[i].Add(&num[i], &t)
		}
		pow.Mul(&pow, &alpha)
	}

	quotient := make([]goldilocks.Element, len(num))
	d := len(num) - 1
	if d == 0 {
		// A constant minus its claim is zero, and so is the quotient.
		return quotient, claims
	}
	quotient[d-1] = num[d]
	for i := d - 1; i >= 1; i-- {
		var t goldilocks.Element
		t.Mul(&at, &quotient[i])
		quotient[i-1].Add(&num[i], &t)
	}
	return quotient, claims
}
