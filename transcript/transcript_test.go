package transcript_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ZpokenWeb3/gnark-fri-verifier/testutil"
	"github.com/ZpokenWeb3/gnark-fri-verifier/transcript"
	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
)

var config = types.FriConfig{
	CollapsingFactor: 1,
	DegreeBits:       6,
	RateBits:         2,
	FinalDegreeBound: 2,
	NumQueryRounds:   4,
}

func proveTwice(t *testing.T, seed int64) (*types.FriProofRaw, *types.FriProofRaw) {
	t.Helper()
	polys := testutil.RandomPolynomials(rand.New(rand.NewSource(seed)), []string{"w_l", "w_r"}, config.DegreeBits)
	raw1, err := testutil.ProvePowerCombined(&config, polys)
	require.NoError(t, err)
	raw2, err := testutil.ProvePowerCombined(&config, polys)
	require.NoError(t, err)
	return raw1, raw2
}

func TestDeriveChallengesDeterministic(t *testing.T) {
	raw1, raw2 := proveTwice(t, 1)
	require.Equal(t, raw1, raw2)

	ch1, err := transcript.DeriveChallenges(&config, raw1)
	require.NoError(t, err)
	ch2, err := transcript.DeriveChallenges(&config, raw2)
	require.NoError(t, err)
	require.Equal(t, ch1, ch2)

	// The prover drew its query positions from the same transcript, so
	// replaying the proof reproduces them.
	require.Len(t, ch1.QueryIndices, int(config.NumQueryRounds))
	for r, index := range ch1.QueryIndices {
		require.Equal(t, index, raw1.QueryRounds[r].NaturalIndex)
		require.Less(t, index, uint64(config.LdeSize()))
	}

	require.Len(t, ch1.FoldingChallenges, config.NumChallenges())
}

func TestDeriveChallengesBindsUpperCommitments(t *testing.T) {
	raw, tampered := proveTwice(t, 2)

	commitment := tampered.UpperCommitments[0].Commitment
	commitment[len(commitment)-1] ^= 1

	ch, err := transcript.DeriveChallenges(&config, raw)
	require.NoError(t, err)
	chTampered, err := transcript.DeriveChallenges(&config, tampered)
	require.NoError(t, err)

	require.NotEqual(t, ch.Alpha, chTampered.Alpha)
}

func TestDeriveChallengesBindsLabels(t *testing.T) {
	raw, tampered := proveTwice(t, 3)
	tampered.UpperCommitments[0].Label = "w_x"

	ch, err := transcript.DeriveChallenges(&config, raw)
	require.NoError(t, err)
	chTampered, err := transcript.DeriveChallenges(&config, tampered)
	require.NoError(t, err)

	require.NotEqual(t, ch.Alpha, chTampered.Alpha)
}

func TestDeriveChallengesBindsLayerCommitments(t *testing.T) {
	raw, tampered := proveTwice(t, 4)

	commitment := tampered.LayerCommitments[0]
	commitment[0] ^= 1

	ch, err := transcript.DeriveChallenges(&config, raw)
	require.NoError(t, err)
	chTampered, err := transcript.DeriveChallenges(&config, tampered)
	require.NoError(t, err)

	// Everything drawn before the first layer commitment is unchanged.
	require.Equal(t, ch.Alpha, chTampered.Alpha)
	cosetSize := config.CosetSize()
	require.Equal(t, ch.FoldingChallenges[:cosetSize], chTampered.FoldingChallenges[:cosetSize])

	// Everything after diverges.
	require.NotEqual(t, ch.FoldingChallenges[cosetSize:2*cosetSize], chTampered.FoldingChallenges[cosetSize:2*cosetSize])
	require.NotEqual(t, ch.QueryIndices, chTampered.QueryIndices)
}

func TestDeriveChallengesBindsFinalCoefficients(t *testing.T) {
	raw, tampered := proveTwice(t, 5)
	tampered.FinalCoefficients[0] ^= 1

	ch, err := transcript.DeriveChallenges(&config, raw)
	require.NoError(t, err)
	chTampered, err := transcript.DeriveChallenges(&config, tampered)
	require.NoError(t, err)

	// The final polynomial is bound after all folding challenges, so
	// only the query positions move.
	require.Equal(t, ch.Alpha, chTampered.Alpha)
	require.Equal(t, ch.FoldingChallenges, chTampered.FoldingChallenges)
	require.NotEqual(t, ch.QueryIndices, chTampered.QueryIndices)
}

func TestDeriveChallengesRejectsLayerCountMismatch(t *testing.T) {
	raw, _ := proveTwice(t, 6)
	raw.LayerCommitments = raw.LayerCommitments[:len(raw.LayerCommitments)-1]

	_, err := transcript.DeriveChallenges(&config, raw)
	require.Error(t, err)
}

func TestTranscriptSchedule(t *testing.T) {
	root := make([]byte, 32)

	tr := transcript.New(&config)

	// The first folding chunk precedes any layer commitment.
	_, err := tr.NextFoldingChunk(root)
	require.Error(t, err)

	_, err = tr.Alpha()
	require.NoError(t, err)

	_, err = tr.FirstFoldingChunk()
	require.NoError(t, err)
	_, err = tr.FirstFoldingChunk()
	require.Error(t, err)

	for s := 1; s < config.NumFoldSteps(); s++ {
		_, err = tr.NextFoldingChunk(root)
		require.NoError(t, err)
	}

	// The schedule is exhausted.
	_, err = tr.NextFoldingChunk(root)
	require.Error(t, err)
}
