package types

// FriConfig fixes the shape of a FRI instance: the evaluation domain,
// how many bits each fold collapses, where folding stops, and how many
// query rounds the proof carries. Everything the verifier circuit and
// the transcript need is derived from these five numbers, so the same
// config file drives proof generation, circuit compilation and the
// witness build.
type FriConfig struct {
	// Log2 of the coset size folded per reduction step.
	CollapsingFactor uint64 `json:"collapsing_factor"`
	// Log2 of the degree bound of the committed polynomials.
	DegreeBits uint64 `json:"degree_bits"`
	// Log2 of the LDE blowup factor.
	RateBits uint64 `json:"rate_bits"`
	// Folding stops once the claimed polynomial fits this many
	// coefficients.
	FinalDegreeBound uint64 `json:"final_degree_bound"`
	// Number of independently sampled query rounds.
	NumQueryRounds uint64 `json:"num_query_rounds"`
}

func (fc *FriConfig) Rate() float64 {
	return 1.0 / float64((uint64(1) << fc.RateBits))
}

func (fc *FriConfig) CosetSize() int {
	return 1 << fc.CollapsingFactor
}

func (fc *FriConfig) LdeBits() int {
	return int(fc.DegreeBits + fc.RateBits)
}

func (fc *FriConfig) LdeSize() int {
	return 1 << fc.LdeBits()
}

// NumFoldSteps returns the number of interpolation steps a query round
// performs, counting the initial fold of the combined upper layer. The
// first fold always happens; further folds run until the degree fits
// FinalDegreeBound. Panics on configs that can never terminate, such
// as a collapsing factor of zero with a degree still above the bound.
func (fc *FriConfig) NumFoldSteps() int {
	if fc.FinalDegreeBound == 0 {
		panic("final degree bound must be positive")
	}

	steps := 0
	degreeBits := fc.DegreeBits
	for {
		if degreeBits < fc.CollapsingFactor {
			panic("collapsing factor exceeds the remaining degree bits")
		}
		degreeBits -= fc.CollapsingFactor
		steps++
		if (uint64(1) << degreeBits) <= fc.FinalDegreeBound {
			return steps
		}
		if fc.CollapsingFactor == 0 {
			panic("collapsing factor 0 cannot reduce the degree below the bound")
		}
	}
}

// Log2 of the degree bound of the final polynomial actually reached by
// folding. The proof's final coefficient count may be anything in
// [1, FinalDegreeBound]; this is the honest prover's count.
func (fc *FriConfig) FinalPolyBits() int {
	return int(fc.DegreeBits) - fc.NumFoldSteps()*int(fc.CollapsingFactor)
}

func (fc *FriConfig) FinalPolyLen() int {
	return 1 << fc.FinalPolyBits()
}

// Log2 of the evaluation domain of the final layer.
func (fc *FriConfig) FinalDomainBits() int {
	return fc.LdeBits() - fc.NumFoldSteps()*int(fc.CollapsingFactor)
}

// Number of intermediate layer commitments a proof carries. The upper
// layer is committed per polynomial and the final layer is sent in the
// clear, so only the layers in between appear here.
func (fc *FriConfig) NumLayerCommitments() int {
	return fc.NumFoldSteps() - 1
}

// Total folding challenges a transcript derives, one chunk of
// CosetSize per fold step.
func (fc *FriConfig) NumChallenges() int {
	return fc.NumFoldSteps() * fc.CosetSize()
}
