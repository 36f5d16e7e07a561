package verifier

import (
	"fmt"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/consensys/gnark/frontend"

	"github.com/ZpokenWeb3/gnark-fri-verifier/fri"
	gl "github.com/ZpokenWeb3/gnark-fri-verifier/goldilocks"
	"github.com/ZpokenWeb3/gnark-fri-verifier/transcript"
	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
	"github.com/ZpokenWeb3/gnark-fri-verifier/variables"
)

// VerifierCircuit proves one FRI low degree check over the power
// combined batch of the committed polynomials. Everything the
// Fiat-Shamir transcript binds is public: the commitments, the derived
// challenges and the query indices. The openings and their Merkle
// paths stay private; the circuit asserts the public copies against
// the proof so a witness cannot verify against commitments the
// transcript never saw.
type VerifierCircuit struct {
	UpperCommitments  []variables.FriCommitment `gnark:",public"`
	LayerCommitments  []variables.FriCommitment `gnark:",public"`
	FinalCoefficients []gl.Variable             `gnark:",public"`
	Challenges        variables.FriChallenges   `gnark:",public"`
	QueryIndices      []frontend.Variable       `gnark:",public"`

	Proof variables.FriProof

	// Configuration of the instance, a constant not a variable.
	Config types.FriConfig `gnark:"-"`
	Labels []string        `gnark:"-"`
}

// NewVerifierCircuit returns the blank circuit of the given shape, the
// one to compile. The final polynomial length is pinned to the honest
// prover's, which never trims trailing coefficients.
func NewVerifierCircuit(config *types.FriConfig, labels []string) *VerifierCircuit {
	return &VerifierCircuit{
		UpperCommitments:  make([]variables.FriCommitment, len(labels)),
		LayerCommitments:  make([]variables.FriCommitment, config.NumLayerCommitments()),
		FinalCoefficients: make([]gl.Variable, config.FinalPolyLen()),
		Challenges:        variables.NewFriChallenges(config),
		QueryIndices:      make([]frontend.Variable, config.NumQueryRounds),
		Proof:             variables.NewFriProof(config, labels, uint64(config.FinalPolyLen())),
		Config:            *config,
		Labels:            labels,
	}
}

func (c *VerifierCircuit) Define(api frontend.API) error {
	err := bindTranscriptSurface(
		api, &c.Proof, c.Labels,
		c.UpperCommitments, c.LayerCommitments, c.FinalCoefficients, c.QueryIndices,
	)
	if err != nil {
		return err
	}

	glChip := gl.New(api)
	friChip := fri.NewChip(api, &c.Config, fri.NewMerkleOracle(api, c.Config.CollapsingFactor))
	combiner := fri.NewPowerCombiner(glChip, c.Challenges.Alpha, c.Labels)
	ok := friChip.VerifyFriProof(&c.Proof, &c.Challenges, combiner)
	api.AssertIsEqual(ok, frontend.Variable(1))
	return nil
}

// QuotientVerifierCircuit proves the batch opened at one point: the
// claimed evaluations and the opening point join the public surface
// and the quotient combiner ties the openings to them.
type QuotientVerifierCircuit struct {
	UpperCommitments  []variables.FriCommitment `gnark:",public"`
	LayerCommitments  []variables.FriCommitment `gnark:",public"`
	FinalCoefficients []gl.Variable             `gnark:",public"`
	Challenges        variables.FriChallenges   `gnark:",public"`
	QueryIndices      []frontend.Variable       `gnark:",public"`
	EvalPoint         gl.Variable               `gnark:",public"`
	ClaimedValues     []gl.Variable             `gnark:",public"`

	Proof variables.FriProof

	Config types.FriConfig `gnark:"-"`
	Labels []string        `gnark:"-"`
}

func NewQuotientVerifierCircuit(config *types.FriConfig, labels []string) *QuotientVerifierCircuit {
	return &QuotientVerifierCircuit{
		UpperCommitments:  make([]variables.FriCommitment, len(labels)),
		LayerCommitments:  make([]variables.FriCommitment, config.NumLayerCommitments()),
		FinalCoefficients: make([]gl.Variable, config.FinalPolyLen()),
		Challenges:        variables.NewFriChallenges(config),
		QueryIndices:      make([]frontend.Variable, config.NumQueryRounds),
		ClaimedValues:     make([]gl.Variable, len(labels)),
		Proof:             variables.NewFriProof(config, labels, uint64(config.FinalPolyLen())),
		Config:            *config,
		Labels:            labels,
	}
}

func (c *QuotientVerifierCircuit) Define(api frontend.API) error {
	err := bindTranscriptSurface(
		api, &c.Proof, c.Labels,
		c.UpperCommitments, c.LayerCommitments, c.FinalCoefficients, c.QueryIndices,
	)
	if err != nil {
		return err
	}
	if len(c.ClaimedValues) != len(c.Labels) {
		return fmt.Errorf("%d claimed values for %d polynomials", len(c.ClaimedValues), len(c.Labels))
	}

	glChip := gl.New(api)
	glChip.RangeCheck(c.EvalPoint)
	claims := make([]fri.Labeled, len(c.Labels))
	for i := range claims {
		glChip.RangeCheck(c.ClaimedValues[i])
		claims[i] = fri.Labeled{Label: c.Labels[i], Value: c.ClaimedValues[i]}
	}

	friChip := fri.NewChip(api, &c.Config, fri.NewMerkleOracle(api, c.Config.CollapsingFactor))
	combiner := fri.NewQuotientCombiner(api, glChip, c.Challenges.Alpha, claims, c.EvalPoint)
	ok := friChip.VerifyFriProof(&c.Proof, &c.Challenges, combiner)
	api.AssertIsEqual(ok, frontend.Variable(1))
	return nil
}

// bindTranscriptSurface asserts the public transcript surface against
// the proof witness. The fri chip range checks the proof's values, so
// the public copies inherit canonicality through the equalities.
func bindTranscriptSurface(
	api frontend.API,
	proof *variables.FriProof,
	labels []string,
	upperCommitments []variables.FriCommitment,
	layerCommitments []variables.FriCommitment,
	finalCoefficients []gl.Variable,
	queryIndices []frontend.Variable,
) error {
	if len(upperCommitments) != len(labels) {
		return fmt.Errorf("%d public commitments for %d labels", len(upperCommitments), len(labels))
	}
	if len(proof.UpperCommitments) != len(labels) {
		return fmt.Errorf("proof commits %d polynomials, circuit is built for %d", len(proof.UpperCommitments), len(labels))
	}
	if len(proof.LayerCommitments) != len(layerCommitments) {
		return fmt.Errorf("proof carries %d layer commitments, circuit is built for %d", len(proof.LayerCommitments), len(layerCommitments))
	}
	if len(proof.FinalCoefficients) != len(finalCoefficients) {
		return fmt.Errorf("proof carries %d final coefficients, circuit is built for %d", len(proof.FinalCoefficients), len(finalCoefficients))
	}
	if len(proof.QueryRounds) != len(queryIndices) {
		return fmt.Errorf("proof carries %d query rounds, circuit is built for %d", len(proof.QueryRounds), len(queryIndices))
	}

	for i := range labels {
		if proof.UpperCommitments[i].Label != labels[i] {
			return fmt.Errorf("proof commitment %d is labeled %q, circuit expects %q", i, proof.UpperCommitments[i].Label, labels[i])
		}
		api.AssertIsEqual(upperCommitments[i], proof.UpperCommitments[i].Commitment)
	}
	for i := range layerCommitments {
		api.AssertIsEqual(layerCommitments[i], proof.LayerCommitments[i])
	}
	for i := range finalCoefficients {
		api.AssertIsEqual(finalCoefficients[i].Limb, proof.FinalCoefficients[i].Limb)
	}
	for r := range queryIndices {
		api.AssertIsEqual(queryIndices[r], proof.QueryRounds[r].NaturalIndex)
	}

	return nil
}

// NewVerifierAssignment fills the power combined circuit from a
// serialized proof and the challenges its transcript derives. The
// proof's own query indices must match the transcript's; a divergence
// means the proof was produced against different commitments.
func NewVerifierAssignment(
	config *types.FriConfig,
	raw *types.FriProofRaw,
	challenges *transcript.FriChallenges,
) (*VerifierCircuit, error) {
	labels, upper, layers, indices, err := assignPublicData(config, raw, challenges)
	if err != nil {
		return nil, err
	}
	return &VerifierCircuit{
		UpperCommitments:  upper,
		LayerCommitments:  layers,
		FinalCoefficients: gl.Uint64ArrayToVariableArray(raw.FinalCoefficients),
		Challenges:        variables.DeserializeFriChallenges(challenges.Alpha, challenges.FoldingChallenges),
		QueryIndices:      indices,
		Proof:             variables.DeserializeFriProof(*raw),
		Config:            *config,
		Labels:            labels,
	}, nil
}

// NewQuotientAssignment fills the quotient circuit; the claims must be
// in commitment order.
func NewQuotientAssignment(
	config *types.FriConfig,
	raw *types.FriProofRaw,
	challenges *transcript.FriChallenges,
	at goldilocks.Element,
	claims []goldilocks.Element,
) (*QuotientVerifierCircuit, error) {
	labels, upper, layers, indices, err := assignPublicData(config, raw, challenges)
	if err != nil {
		return nil, err
	}
	if len(claims) != len(labels) {
		return nil, fmt.Errorf("%d claims for %d committed polynomials", len(claims), len(labels))
	}
	return &QuotientVerifierCircuit{
		UpperCommitments:  upper,
		LayerCommitments:  layers,
		FinalCoefficients: gl.Uint64ArrayToVariableArray(raw.FinalCoefficients),
		Challenges:        variables.DeserializeFriChallenges(challenges.Alpha, challenges.FoldingChallenges),
		QueryIndices:      indices,
		EvalPoint:         gl.NewVariable(at.Uint64()),
		ClaimedValues:     gl.ElementArrayToVariableArray(claims),
		Proof:             variables.DeserializeFriProof(*raw),
		Config:            *config,
		Labels:            labels,
	}, nil
}

func assignPublicData(
	config *types.FriConfig,
	raw *types.FriProofRaw,
	challenges *transcript.FriChallenges,
) ([]string, []variables.FriCommitment, []variables.FriCommitment, []frontend.Variable, error) {
	if len(raw.QueryRounds) != len(challenges.QueryIndices) {
		return nil, nil, nil, nil, fmt.Errorf(
			"proof carries %d query rounds, transcript drew %d indices",
			len(raw.QueryRounds), len(challenges.QueryIndices),
		)
	}
	for r := range raw.QueryRounds {
		if raw.QueryRounds[r].NaturalIndex != challenges.QueryIndices[r] {
			return nil, nil, nil, nil, fmt.Errorf(
				"query round %d: proof opens index %d, transcript drew %d",
				r, raw.QueryRounds[r].NaturalIndex, challenges.QueryIndices[r],
			)
		}
	}

	labels := make([]string, len(raw.UpperCommitments))
	upper := make([]variables.FriCommitment, len(raw.UpperCommitments))
	for i := range raw.UpperCommitments {
		labels[i] = raw.UpperCommitments[i].Label
		upper[i] = variables.DeserializeCommitment(raw.UpperCommitments[i].Commitment)
	}
	layers := make([]variables.FriCommitment, len(raw.LayerCommitments))
	for i := range raw.LayerCommitments {
		layers[i] = variables.DeserializeCommitment(raw.LayerCommitments[i])
	}
	indices := make([]frontend.Variable, len(challenges.QueryIndices))
	for r := range challenges.QueryIndices {
		indices[r] = frontend.Variable(challenges.QueryIndices[r])
	}
	return labels, upper, layers, indices, nil
}
