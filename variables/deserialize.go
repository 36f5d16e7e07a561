package variables

import (
	"math/big"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/consensys/gnark/frontend"
	"github.com/ethereum/go-ethereum/common/hexutil"

	gl "github.com/ZpokenWeb3/gnark-fri-verifier/goldilocks"
	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
)

// Converters from the wire form in types to circuit containers. Shape
// errors are left to the verifier chip, which validates the assembled
// proof against its config before constraining anything.

func DeserializeCommitment(raw hexutil.Bytes) FriCommitment {
	return frontend.Variable(new(big.Int).SetBytes(raw))
}

func DeserializeOpeningProof(raw types.MerkleProofRaw) FriOpeningProof {
	siblings := make([]FriCommitment, len(raw.Siblings))
	for i := range raw.Siblings {
		siblings[i] = DeserializeCommitment(raw.Siblings[i])
	}
	return FriOpeningProof{Siblings: siblings}
}

func DeserializeOracleOpening(raw types.OracleOpeningRaw) FriOracleOpening {
	return FriOracleOpening{
		Values: gl.Uint64ArrayToVariableArray(raw.Values),
		Proof:  DeserializeOpeningProof(raw.Proof),
	}
}

func DeserializeQueryRound(raw types.FriQueryRoundRaw) FriQueryRound {
	upperOpenings := make([]FriLabeledOpening, len(raw.UpperOpenings))
	for i := range raw.UpperOpenings {
		upperOpenings[i] = FriLabeledOpening{
			Label:   raw.UpperOpenings[i].Label,
			Opening: DeserializeOracleOpening(raw.UpperOpenings[i].Opening),
		}
	}

	layerOpenings := make([]FriOracleOpening, len(raw.LayerOpenings))
	for i := range raw.LayerOpenings {
		layerOpenings[i] = DeserializeOracleOpening(raw.LayerOpenings[i])
	}

	return FriQueryRound{
		NaturalIndex:  frontend.Variable(raw.NaturalIndex),
		UpperOpenings: upperOpenings,
		LayerOpenings: layerOpenings,
	}
}

func DeserializeFriChallenges(alpha goldilocks.Element, foldingChallenges []goldilocks.Element) FriChallenges {
	return FriChallenges{
		Alpha:             gl.NewVariable(alpha.Uint64()),
		FoldingChallenges: gl.ElementArrayToVariableArray(foldingChallenges),
	}
}

func DeserializeFriProof(raw types.FriProofRaw) FriProof {
	upperCommitments := make([]FriLabeledCommitment, len(raw.UpperCommitments))
	for i := range raw.UpperCommitments {
		upperCommitments[i] = FriLabeledCommitment{
			Label:      raw.UpperCommitments[i].Label,
			Commitment: DeserializeCommitment(raw.UpperCommitments[i].Commitment),
		}
	}

	layerCommitments := make([]FriCommitment, len(raw.LayerCommitments))
	for i := range raw.LayerCommitments {
		layerCommitments[i] = DeserializeCommitment(raw.LayerCommitments[i])
	}

	rounds := make([]FriQueryRound, len(raw.QueryRounds))
	for i := range raw.QueryRounds {
		rounds[i] = DeserializeQueryRound(raw.QueryRounds[i])
	}

	return FriProof{
		UpperCommitments:  upperCommitments,
		LayerCommitments:  layerCommitments,
		FinalCoefficients: gl.Uint64ArrayToVariableArray(raw.FinalCoefficients),
		QueryRounds:       rounds,
	}
}
