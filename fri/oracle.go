package fri

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	gl "github.com/ZpokenWeb3/gnark-fri-verifier/goldilocks"
	"github.com/ZpokenWeb3/gnark-fri-verifier/variables"
)

// OracleVerifier checks an opening proof of one coset of layer values
// against a layer commitment. It returns a circuit boolean rather than
// asserting, so a failed opening flows into the round validity flag
// instead of making the circuit unsatisfiable on its own. Any
// commitment scheme with coset membership proofs can implement this.
type OracleVerifier interface {
	Validate(
		logDomainSize uint64,
		values []gl.Variable,
		cosetIndexBits []frontend.Variable,
		commitment variables.FriCommitment,
		proof variables.FriOpeningProof,
	) frontend.Variable
}

// MerkleOracle verifies openings against MiMC Merkle roots. The tree
// leaves are digests of whole cosets, so a path has one sibling per
// coset index bit. The same layout is produced out of circuit by the
// prover with gnark-crypto's merkletree over fr/mimc.
type MerkleOracle struct {
	api              frontend.API
	collapsingFactor uint64
}

func NewMerkleOracle(api frontend.API, collapsingFactor uint64) *MerkleOracle {
	return &MerkleOracle{api: api, collapsingFactor: collapsingFactor}
}

func (m *MerkleOracle) Validate(
	logDomainSize uint64,
	values []gl.Variable,
	cosetIndexBits []frontend.Variable,
	commitment variables.FriCommitment,
	proof variables.FriOpeningProof,
) frontend.Variable {
	if uint64(len(values)) != 1<<m.collapsingFactor {
		panic("opened coset size does not match the collapsing factor")
	}
	if uint64(len(cosetIndexBits)) != logDomainSize-m.collapsingFactor {
		panic("coset index width does not match the domain size")
	}
	if len(proof.Siblings) != len(cosetIndexBits) {
		panic("merkle proof length does not match the tree depth")
	}

	h, err := mimc.NewMiMC(m.api)
	if err != nil {
		panic(err)
	}

	// Leaf content is the digest of the coset values; the tree then
	// hashes the content once more into the leaf node, matching the
	// reader proof layout of gnark-crypto's merkletree.
	for _, v := range values {
		h.Write(v.Limb)
	}
	leafContent := h.Sum()

	h.Reset()
	h.Write(leafContent)
	sum := h.Sum()

	// Walk up: bit i of the coset index says whether the running node
	// is the right child at level i.
	for i, sibling := range proof.Siblings {
		bit := cosetIndexBits[i]
		left := m.api.Select(bit, sibling, sum)
		right := m.api.Select(bit, sum, sibling)

		h.Reset()
		h.Write(left, right)
		sum = h.Sum()
	}

	return m.api.IsZero(m.api.Sub(sum, commitment))
}
