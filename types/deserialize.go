package types

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Wire form of a FRI proof. Commitments and Merkle path nodes travel
// as 0x-prefixed hex (one BN254 field element each), Goldilocks values
// as uint64 JSON numbers. Labeled collections are two element tuples
// [label, payload], the way a prover serializing label/value pairs
// naturally writes them.

type LabeledCommitmentRaw struct {
	Label      string
	Commitment hexutil.Bytes
}

func (l *LabeledCommitmentRaw) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &[]interface{}{&l.Label, &l.Commitment})
}

func (l LabeledCommitmentRaw) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{l.Label, l.Commitment})
}

type MerkleProofRaw struct {
	Siblings []hexutil.Bytes `json:"siblings"`
}

type OracleOpeningRaw struct {
	Values []uint64       `json:"values"`
	Proof  MerkleProofRaw `json:"proof"`
}

type LabeledOpeningRaw struct {
	Label   string
	Opening OracleOpeningRaw
}

func (l *LabeledOpeningRaw) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &[]interface{}{&l.Label, &l.Opening})
}

func (l LabeledOpeningRaw) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{l.Label, l.Opening})
}

type FriQueryRoundRaw struct {
	NaturalIndex  uint64              `json:"natural_index"`
	UpperOpenings []LabeledOpeningRaw `json:"upper_openings"`
	LayerOpenings []OracleOpeningRaw  `json:"layer_openings"`
}

type FriProofRaw struct {
	UpperCommitments  []LabeledCommitmentRaw `json:"upper_commitments"`
	LayerCommitments  []hexutil.Bytes        `json:"layer_commitments"`
	FinalCoefficients []uint64               `json:"final_coefficients"`
	QueryRounds       []FriQueryRoundRaw     `json:"query_rounds"`
}

func (p *FriProofRaw) Export(file string) error {
	proofFile, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer proofFile.Close()

	jsonString, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	if _, err := proofFile.Write(jsonString); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	return nil
}

func ReadFriConfig(path string) (FriConfig, error) {
	jsonFile, err := os.Open(path)
	if err != nil {
		return FriConfig{}, fmt.Errorf("failed to open fri config: %w", err)
	}
	defer jsonFile.Close()

	rawBytes, err := io.ReadAll(jsonFile)
	if err != nil {
		return FriConfig{}, fmt.Errorf("failed to read fri config: %w", err)
	}

	var config FriConfig
	if err := json.Unmarshal(rawBytes, &config); err != nil {
		return FriConfig{}, fmt.Errorf("failed to unmarshal fri config: %w", err)
	}

	return config, nil
}

func ReadFriProof(path string) (FriProofRaw, error) {
	jsonFile, err := os.Open(path)
	if err != nil {
		return FriProofRaw{}, fmt.Errorf("failed to open fri proof: %w", err)
	}
	defer jsonFile.Close()

	rawBytes, err := io.ReadAll(jsonFile)
	if err != nil {
		return FriProofRaw{}, fmt.Errorf("failed to read fri proof: %w", err)
	}

	return ReadFriProofFromRequest(rawBytes)
}

func ReadFriProofFromRequest(data []byte) (FriProofRaw, error) {
	var raw FriProofRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return FriProofRaw{}, fmt.Errorf("failed to unmarshal fri proof: %w", err)
	}
	return raw, nil
}
