// Package transcript derives the verifier randomness of the FRI
// protocol outside the circuit: the combiner challenge, one folding
// challenge chunk per fold step, and the query indices. Prover and
// verifier replay the same transcript over the proof's commitments, so
// the derived values agree exactly when the commitments do.
package transcript

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"
	"github.com/consensys/gnark-crypto/field/goldilocks"

	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
)

// FriChallenges is the transcript output, in native form. The circuit
// side consumes it through variables.FriChallenges and the query
// rounds' natural indices.
type FriChallenges struct {
	Alpha             goldilocks.Element
	FoldingChallenges []goldilocks.Element
	QueryIndices      []uint64
}

// Transcript runs the Fiat-Shamir schedule of one FRI instance. The
// challenge ids are registered up front in protocol order; consuming
// them out of order is reported as an error by the underlying
// transcript.
type Transcript struct {
	fs       fiatshamir.Transcript
	config   *types.FriConfig
	nextFold int
}

func New(config *types.FriConfig) *Transcript {
	ids := make([]string, 0, 1+config.NumChallenges()+int(config.NumQueryRounds))
	ids = append(ids, "alpha")
	for s := 0; s < config.NumFoldSteps(); s++ {
		for i := 0; i < config.CosetSize(); i++ {
			ids = append(ids, foldID(s, i))
		}
	}
	for r := 0; r < int(config.NumQueryRounds); r++ {
		ids = append(ids, queryID(r))
	}

	return &Transcript{
		fs:     fiatshamir.NewTranscript(sha256.New(), ids...),
		config: config,
	}
}

func foldID(step int, i int) string {
	return fmt.Sprintf("fold.%d.%d", step, i)
}

func queryID(round int) string {
	return fmt.Sprintf("query.%d", round)
}

// BindUpperCommitment absorbs one labeled input polynomial commitment.
// Call once per polynomial, before Alpha.
func (t *Transcript) BindUpperCommitment(label string, root []byte) error {
	if err := t.fs.Bind("alpha", []byte(label)); err != nil {
		return fmt.Errorf("failed to bind label %q: %w", label, err)
	}
	if err := t.fs.Bind("alpha", root); err != nil {
		return fmt.Errorf("failed to bind commitment %q: %w", label, err)
	}
	return nil
}

func (t *Transcript) Alpha() (goldilocks.Element, error) {
	return t.challenge("alpha")
}

// FirstFoldingChunk returns the challenges of the initial fold, which
// depends only on the upper commitments already absorbed.
func (t *Transcript) FirstFoldingChunk() ([]goldilocks.Element, error) {
	if t.nextFold != 0 {
		return nil, fmt.Errorf("first folding chunk already consumed")
	}
	return t.foldingChunk()
}

// NextFoldingChunk absorbs the commitment of the layer the previous
// chunk folded into and returns the following fold's challenges.
func (t *Transcript) NextFoldingChunk(layerRoot []byte) ([]goldilocks.Element, error) {
	if t.nextFold == 0 {
		return nil, fmt.Errorf("the first folding chunk precedes any layer commitment")
	}
	if err := t.fs.Bind(foldID(t.nextFold, 0), layerRoot); err != nil {
		return nil, fmt.Errorf("failed to bind layer commitment %d: %w", t.nextFold-1, err)
	}
	return t.foldingChunk()
}

func (t *Transcript) foldingChunk() ([]goldilocks.Element, error) {
	if t.nextFold >= t.config.NumFoldSteps() {
		return nil, fmt.Errorf("all %d folding chunks consumed", t.config.NumFoldSteps())
	}

	chunk := make([]goldilocks.Element, t.config.CosetSize())
	for i := range chunk {
		c, err := t.challenge(foldID(t.nextFold, i))
		if err != nil {
			return nil, err
		}
		chunk[i] = c
	}
	t.nextFold++
	return chunk, nil
}

// BindFinalCoefficients absorbs the published final polynomial before
// the query indices are drawn.
func (t *Transcript) BindFinalCoefficients(coeffs []goldilocks.Element) error {
	for i := range coeffs {
		b := coeffs[i].Bytes()
		if err := t.fs.Bind(queryID(0), b[:]); err != nil {
			return fmt.Errorf("failed to bind final coefficient %d: %w", i, err)
		}
	}
	return nil
}

// QueryIndices draws one natural index per query round, uniform over
// the LDE domain.
func (t *Transcript) QueryIndices() ([]uint64, error) {
	mask := uint64(t.config.LdeSize() - 1)
	indices := make([]uint64, t.config.NumQueryRounds)
	for r := range indices {
		b, err := t.fs.ComputeChallenge(queryID(r))
		if err != nil {
			return nil, fmt.Errorf("failed to compute query index %d: %w", r, err)
		}
		indices[r] = new(big.Int).SetBytes(b).Uint64() & mask
	}
	return indices, nil
}

func (t *Transcript) challenge(id string) (goldilocks.Element, error) {
	var e goldilocks.Element
	b, err := t.fs.ComputeChallenge(id)
	if err != nil {
		return e, fmt.Errorf("failed to compute challenge %s: %w", id, err)
	}
	e.SetBytes(b)
	return e, nil
}

// DeriveChallenges replays the whole schedule over a serialized proof.
// This is what the verifying side runs; the prover interleaves the
// same calls with layer construction.
func DeriveChallenges(config *types.FriConfig, proof *types.FriProofRaw) (*FriChallenges, error) {
	if len(proof.LayerCommitments) != config.NumLayerCommitments() {
		return nil, fmt.Errorf(
			"%d layer commitments, config folds through %d intermediate layers",
			len(proof.LayerCommitments), config.NumLayerCommitments(),
		)
	}

	t := New(config)
	for _, c := range proof.UpperCommitments {
		if err := t.BindUpperCommitment(c.Label, c.Commitment); err != nil {
			return nil, err
		}
	}

	alpha, err := t.Alpha()
	if err != nil {
		return nil, err
	}

	folding := make([]goldilocks.Element, 0, config.NumChallenges())
	chunk, err := t.FirstFoldingChunk()
	if err != nil {
		return nil, err
	}
	folding = append(folding, chunk...)

	for _, root := range proof.LayerCommitments {
		chunk, err = t.NextFoldingChunk(root)
		if err != nil {
			return nil, err
		}
		folding = append(folding, chunk...)
	}

	coeffs := make([]goldilocks.Element, len(proof.FinalCoefficients))
	for i, c := range proof.FinalCoefficients {
		coeffs[i] = goldilocks.NewElement(c)
	}
	if err := t.BindFinalCoefficients(coeffs); err != nil {
		return nil, err
	}

	indices, err := t.QueryIndices()
	if err != nil {
		return nil, err
	}

	return &FriChallenges{
		Alpha:             alpha,
		FoldingChallenges: folding,
		QueryIndices:      indices,
	}, nil
}
