package variables

import (
	"github.com/consensys/gnark/frontend"

	gl "github.com/ZpokenWeb3/gnark-fri-verifier/goldilocks"
	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
)

// A layer commitment is one BN254 field element, the MiMC Merkle root
// of the layer's coset leaves.
type FriCommitment = frontend.Variable

// A commitment to one of the batched input polynomials, tagged with
// the label the combiner uses to find it.
type FriLabeledCommitment struct {
	Label      string `gnark:"-"`
	Commitment FriCommitment
}

func NewFriLabeledCommitment(label string) FriLabeledCommitment {
	return FriLabeledCommitment{Label: label}
}

type FriOpeningProof struct {
	Siblings []FriCommitment // Length = logDomainSize - FriConfig.CollapsingFactor
}

func NewFriOpeningProof(proofLen uint64) FriOpeningProof {
	return FriOpeningProof{Siblings: make([]FriCommitment, proofLen)}
}

// One opened coset of a layer oracle: the 2^collapsingFactor values
// stored under one leaf, plus the Merkle path for that leaf.
type FriOracleOpening struct {
	Values []gl.Variable // Length = FriConfig.CosetSize()
	Proof  FriOpeningProof
}

func NewFriOracleOpening(cosetSize uint64, proofLen uint64) FriOracleOpening {
	return FriOracleOpening{
		Values: make([]gl.Variable, cosetSize),
		Proof:  NewFriOpeningProof(proofLen),
	}
}

type FriLabeledOpening struct {
	Label   string `gnark:"-"`
	Opening FriOracleOpening
}

func NewFriLabeledOpening(label string, cosetSize uint64, proofLen uint64) FriLabeledOpening {
	return FriLabeledOpening{Label: label, Opening: NewFriOracleOpening(cosetSize, proofLen)}
}

// All openings of one query round, anchored at one natural index of
// the initial domain.
type FriQueryRound struct {
	NaturalIndex  frontend.Variable
	UpperOpenings []FriLabeledOpening // Length = number of committed input polynomials
	LayerOpenings []FriOracleOpening  // Length = FriConfig.NumFoldSteps() - 1
}

type FriProof struct {
	UpperCommitments  []FriLabeledCommitment // Length = number of committed input polynomials
	LayerCommitments  []FriCommitment        // Length = FriConfig.NumLayerCommitments()
	FinalCoefficients []gl.Variable          // Length <= FriConfig.FinalDegreeBound
	QueryRounds       []FriQueryRound        // Length = FriConfig.NumQueryRounds
}

// NewFriProof allocates a proof skeleton of the exact shape the config
// and label set dictate, ready to be used as a circuit definition or
// filled as a witness.
func NewFriProof(config *types.FriConfig, labels []string, numFinalCoeffs uint64) FriProof {
	cosetSize := uint64(config.CosetSize())
	ldeBits := uint64(config.LdeBits())
	numLayers := uint64(config.NumLayerCommitments())

	upperCommitments := make([]FriLabeledCommitment, len(labels))
	for i, label := range labels {
		upperCommitments[i] = NewFriLabeledCommitment(label)
	}

	rounds := make([]FriQueryRound, config.NumQueryRounds)
	for r := range rounds {
		upperOpenings := make([]FriLabeledOpening, len(labels))
		for i, label := range labels {
			upperOpenings[i] = NewFriLabeledOpening(label, cosetSize, ldeBits-config.CollapsingFactor)
		}

		layerOpenings := make([]FriOracleOpening, numLayers)
		for s := uint64(1); s <= numLayers; s++ {
			layerBits := ldeBits - s*config.CollapsingFactor
			layerOpenings[s-1] = NewFriOracleOpening(cosetSize, layerBits-config.CollapsingFactor)
		}

		rounds[r] = FriQueryRound{
			UpperOpenings: upperOpenings,
			LayerOpenings: layerOpenings,
		}
	}

	return FriProof{
		UpperCommitments:  upperCommitments,
		LayerCommitments:  make([]FriCommitment, numLayers),
		FinalCoefficients: make([]gl.Variable, numFinalCoeffs),
		QueryRounds:       rounds,
	}
}

// The transcript output the circuit consumes: the combiner challenge
// and the folding challenges, one chunk of CosetSize per fold step.
type FriChallenges struct {
	Alpha             gl.Variable
	FoldingChallenges []gl.Variable // Length = FriConfig.NumChallenges()
}

func NewFriChallenges(config *types.FriConfig) FriChallenges {
	return FriChallenges{
		FoldingChallenges: make([]gl.Variable, config.NumChallenges()),
	}
}
