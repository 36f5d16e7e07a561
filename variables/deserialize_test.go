package variables_test

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	gl "github.com/ZpokenWeb3/gnark-fri-verifier/goldilocks"
	"github.com/ZpokenWeb3/gnark-fri-verifier/testutil"
	"github.com/ZpokenWeb3/gnark-fri-verifier/transcript"
	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
	"github.com/ZpokenWeb3/gnark-fri-verifier/variables"
)

func TestDeserializeFriProofShape(t *testing.T) {
	config := types.FriConfig{
		CollapsingFactor: 1,
		DegreeBits:       3,
		RateBits:         0,
		FinalDegreeBound: 2,
		NumQueryRounds:   2,
	}
	labels := []string{"w_l", "w_r"}

	polys := testutil.RandomPolynomials(rand.New(rand.NewSource(1)), labels, config.DegreeBits)
	raw, err := testutil.ProvePowerCombined(&config, polys)
	require.NoError(t, err)

	proof := variables.DeserializeFriProof(*raw)
	skeleton := variables.NewFriProof(&config, labels, uint64(len(raw.FinalCoefficients)))

	// A deserialized honest proof has exactly the skeleton's shape, so
	// it can be assigned to a circuit built from the same config.
	require.Len(t, proof.UpperCommitments, len(skeleton.UpperCommitments))
	require.Len(t, proof.LayerCommitments, len(skeleton.LayerCommitments))
	require.Len(t, proof.FinalCoefficients, len(skeleton.FinalCoefficients))
	require.Len(t, proof.QueryRounds, len(skeleton.QueryRounds))

	for i := range proof.UpperCommitments {
		require.Equal(t, skeleton.UpperCommitments[i].Label, proof.UpperCommitments[i].Label)
	}
	for r := range proof.QueryRounds {
		round := proof.QueryRounds[r]
		want := skeleton.QueryRounds[r]
		require.Len(t, round.UpperOpenings, len(want.UpperOpenings))
		require.Len(t, round.LayerOpenings, len(want.LayerOpenings))
		for i := range round.UpperOpenings {
			require.Equal(t, want.UpperOpenings[i].Label, round.UpperOpenings[i].Label)
			require.Len(t, round.UpperOpenings[i].Opening.Values, len(want.UpperOpenings[i].Opening.Values))
			require.Len(t, round.UpperOpenings[i].Opening.Proof.Siblings, len(want.UpperOpenings[i].Opening.Proof.Siblings))
		}
		for s := range round.LayerOpenings {
			require.Len(t, round.LayerOpenings[s].Values, len(want.LayerOpenings[s].Values))
			require.Len(t, round.LayerOpenings[s].Proof.Siblings, len(want.LayerOpenings[s].Proof.Siblings))
		}

		require.Equal(t, raw.QueryRounds[r].NaturalIndex, round.NaturalIndex)
	}

	// Commitments arrive as big endian bytes.
	expected := new(big.Int).SetBytes(raw.UpperCommitments[0].Commitment)
	require.Equal(t, expected, proof.UpperCommitments[0].Commitment)

	require.Equal(t, gl.NewVariable(raw.FinalCoefficients[0]), proof.FinalCoefficients[0])
}

func TestDeserializeOracleOpening(t *testing.T) {
	raw := types.OracleOpeningRaw{
		Values: []uint64{3, 5},
		Proof: types.MerkleProofRaw{
			Siblings: []hexutil.Bytes{{0x01, 0x02}, {0x03}},
		},
	}

	opening := variables.DeserializeOracleOpening(raw)
	require.Equal(t, []gl.Variable{gl.NewVariable(uint64(3)), gl.NewVariable(uint64(5))}, opening.Values)
	require.Equal(t, big.NewInt(0x0102), opening.Proof.Siblings[0])
	require.Equal(t, big.NewInt(0x03), opening.Proof.Siblings[1])
}

func TestDeserializeFriChallenges(t *testing.T) {
	config := types.FriConfig{
		CollapsingFactor: 1,
		DegreeBits:       3,
		RateBits:         0,
		FinalDegreeBound: 2,
		NumQueryRounds:   1,
	}
	polys := testutil.RandomPolynomials(rand.New(rand.NewSource(2)), []string{"t"}, config.DegreeBits)
	raw, err := testutil.ProvePowerCombined(&config, polys)
	require.NoError(t, err)
	native, err := transcript.DeriveChallenges(&config, raw)
	require.NoError(t, err)

	challenges := variables.DeserializeFriChallenges(native.Alpha, native.FoldingChallenges)
	require.Equal(t, gl.NewVariable(native.Alpha.Uint64()), challenges.Alpha)
	require.Len(t, challenges.FoldingChallenges, config.NumChallenges())
	for i := range challenges.FoldingChallenges {
		require.Equal(t, gl.NewVariable(native.FoldingChallenges[i].Uint64()), challenges.FoldingChallenges[i])
	}
}

func TestDeserializeFriChallengesMatchesSkeleton(t *testing.T) {
	config := types.FriConfig{
		CollapsingFactor: 2,
		DegreeBits:       4,
		RateBits:         1,
		FinalDegreeBound: 2,
		NumQueryRounds:   2,
	}
	skeleton := variables.NewFriChallenges(&config)
	require.Len(t, skeleton.FoldingChallenges, config.NumChallenges())

	folding := make([]goldilocks.Element, config.NumChallenges())
	challenges := variables.DeserializeFriChallenges(goldilocks.NewElement(9), folding)
	require.Len(t, challenges.FoldingChallenges, len(skeleton.FoldingChallenges))
}
