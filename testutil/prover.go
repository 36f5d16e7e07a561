// Package testutil holds the native reference prover the tests feed
// the verifier circuit with. It builds real proofs: honest layer
// commitments, transcript driven challenges and Merkle openings, all
// with the same hash and layout the circuit checks, so a test can
// start from a passing proof and break exactly one thing.
package testutil

import (
	"fmt"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/ethereum/go-ethereum/common/hexutil"

	gl "github.com/ZpokenWeb3/gnark-fri-verifier/goldilocks"
	"github.com/ZpokenWeb3/gnark-fri-verifier/transcript"
	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
)

// Prove runs the honest prover for one FRI instance. The combine
// callback receives alpha and returns the coefficients of the combined
// polynomial the folding chain starts from; it must return the full
// 2^DegreeBits of them.
func Prove(
	config *types.FriConfig,
	polys []Polynomial,
	combine func(alpha goldilocks.Element) []goldilocks.Element,
) (*types.FriProofRaw, error) {
	if len(polys) == 0 {
		return nil, fmt.Errorf("no polynomials to commit")
	}
	for j := range polys {
		if len(polys[j].Coeffs) != 1<<config.DegreeBits {
			return nil, fmt.Errorf(
				"polynomial %q has %d coefficients, want %d",
				polys[j].Label, len(polys[j].Coeffs), 1<<config.DegreeBits,
			)
		}
	}

	ldeBits := uint64(config.LdeBits())
	cosetSize := config.CosetSize()
	t := transcript.New(config)

	upperValues := make([][]goldilocks.Element, len(polys))
	upperDigests := make([][][]byte, len(polys))
	upperCommitments := make([]types.LabeledCommitmentRaw, len(polys))
	for j := range polys {
		values := evaluateLayer(polys[j].Coeffs, ldeBits)
		digests := layerDigests(values, cosetSize)
		root := layerRoot(digests)

		upperValues[j] = values
		upperDigests[j] = digests
		upperCommitments[j] = types.LabeledCommitmentRaw{
			Label:      polys[j].Label,
			Commitment: hexutil.Bytes(root),
		}
		if err := t.BindUpperCommitment(polys[j].Label, root); err != nil {
			return nil, err
		}
	}

	alpha, err := t.Alpha()
	if err != nil {
		return nil, err
	}
	coeffs := combine(alpha)
	if len(coeffs) != 1<<config.DegreeBits {
		return nil, fmt.Errorf(
			"combined polynomial has %d coefficients, want %d",
			len(coeffs), 1<<config.DegreeBits,
		)
	}

	numSteps := config.NumFoldSteps()
	layerValues := make([][]goldilocks.Element, 0, numSteps-1)
	layerDigestSets := make([][][]byte, 0, numSteps-1)
	layerRoots := make([]hexutil.Bytes, 0, numSteps-1)

	chunk, err := t.FirstFoldingChunk()
	if err != nil {
		return nil, err
	}
	logSize := ldeBits
	for s := 0; s < numSteps; s++ {
		coeffs = foldCoefficients(coeffs, chunk[0], cosetSize)
		logSize -= config.CollapsingFactor
		if s == numSteps-1 {
			break
		}

		values := evaluateLayer(coeffs, logSize)
		digests := layerDigests(values, cosetSize)
		root := layerRoot(digests)

		layerValues = append(layerValues, values)
		layerDigestSets = append(layerDigestSets, digests)
		layerRoots = append(layerRoots, hexutil.Bytes(root))
		if chunk, err = t.NextFoldingChunk(root); err != nil {
			return nil, err
		}
	}

	if err := t.BindFinalCoefficients(coeffs); err != nil {
		return nil, err
	}
	indices, err := t.QueryIndices()
	if err != nil {
		return nil, err
	}

	finalCoefficients := make([]uint64, len(coeffs))
	for i := range coeffs {
		finalCoefficients[i] = coeffs[i].Uint64()
	}

	rounds := make([]types.FriQueryRoundRaw, len(indices))
	for r, naturalIndex := range indices {
		round := types.FriQueryRoundRaw{NaturalIndex: naturalIndex}

		cosetIndex := naturalIndex >> config.CollapsingFactor
		for j := range polys {
			siblings, err := openingProof(upperDigests[j], cosetIndex)
			if err != nil {
				return nil, err
			}
			round.UpperOpenings = append(round.UpperOpenings, types.LabeledOpeningRaw{
				Label: polys[j].Label,
				Opening: types.OracleOpeningRaw{
					Values: valuesAt(upperValues[j], cosetIndex, cosetSize),
					Proof:  types.MerkleProofRaw{Siblings: siblings},
				},
			})
		}

		index := naturalIndex
		for s := range layerValues {
			index >>= config.CollapsingFactor
			q := index >> config.CollapsingFactor
			siblings, err := openingProof(layerDigestSets[s], q)
			if err != nil {
				return nil, err
			}
			round.LayerOpenings = append(round.LayerOpenings, types.OracleOpeningRaw{
				Values: valuesAt(layerValues[s], q, cosetSize),
				Proof:  types.MerkleProofRaw{Siblings: siblings},
			})
		}
		rounds[r] = round
	}

	return &types.FriProofRaw{
		UpperCommitments:  upperCommitments,
		LayerCommitments:  layerRoots,
		FinalCoefficients: finalCoefficients,
		QueryRounds:       rounds,
	}, nil
}

// ProvePowerCombined proves the power combined batch of the given
// polynomials.
func ProvePowerCombined(config *types.FriConfig, polys []Polynomial) (*types.FriProofRaw, error) {
	return Prove(config, polys, func(alpha goldilocks.Element) []goldilocks.Element {
		return PowerCombine(alpha, polys)
	})
}

// ProveQuotientCombined proves the quotient combined batch opened at
// the given point, returning the claimed evaluations alongside the
// proof.
func ProveQuotientCombined(
	config *types.FriConfig,
	polys []Polynomial,
	at goldilocks.Element,
) (*types.FriProofRaw, []goldilocks.Element, error) {
	var claims []goldilocks.Element
	proof, err := Prove(config, polys, func(alpha goldilocks.Element) []goldilocks.Element {
		var combined []goldilocks.Element
		combined, claims = QuotientCombine(alpha, polys, at)
		return combined
	})
	return proof, claims, err
}

// evaluateLayer evaluates the polynomial over the size 2^logSize
// subgroup and returns the values in bit reversed order, the layout
// every layer is committed in.
func evaluateLayer(coeffs []goldilocks.Element, logSize uint64) []goldilocks.Element {
	n := uint64(1) << logSize
	w := gl.PrimitiveRootOfUnity(logSize)
	values := make([]goldilocks.Element, n)
	x := goldilocks.One()
	for j := uint64(0); j < n; j++ {
		values[gl.ReverseBits(j, logSize)] = EvalAt(coeffs, x)
		x.Mul(&x, &w)
	}
	return values
}

// foldCoefficients combines each size 2^c chunk of the coefficient
// vector with ascending powers of beta. This is the coefficient side
// of the per coset interpolation the circuit performs on values.
func foldCoefficients(coeffs []goldilocks.Element, beta goldilocks.Element, cosetSize int) []goldilocks.Element {
	folded := make([]goldilocks.Element, len(coeffs)/cosetSize)
	for m := range folded {
		var acc goldilocks.Element
		for i := cosetSize - 1; i >= 0; i-- {
			acc.Mul(&acc, &beta)
			acc.Add(&acc, &coeffs[m*cosetSize+i])
		}
		folded[m] = acc
	}
	return folded
}

// layerDigests hashes each coset of a layer into the 32 byte leaf the
// Merkle tree is built over.
func layerDigests(values []goldilocks.Element, cosetSize int) [][]byte {
	h := mimc.NewMiMC()
	digests := make([][]byte, 0, len(values)/cosetSize)
	for q := 0; q*cosetSize < len(values); q++ {
		h.Reset()
		for o := 0; o < cosetSize; o++ {
			var v fr.Element
			v.SetUint64(values[q*cosetSize+o].Uint64())
			b := v.Bytes()
			h.Write(b[:])
		}
		digests = append(digests, h.Sum(nil))
	}
	return digests
}

func layerRoot(digests [][]byte) []byte {
	tree := merkletree.New(mimc.NewMiMC())
	for _, d := range digests {
		tree.Push(d)
	}
	return tree.Root()
}

// openingProof returns the sibling path for one leaf. The tree keeps
// its proof index fixed from the start, so it is rebuilt per opening;
// the layers are small enough for that not to matter in tests.
func openingProof(digests [][]byte, index uint64) ([]hexutil.Bytes, error) {
	tree := merkletree.New(mimc.NewMiMC())
	if err := tree.SetIndex(index); err != nil {
		return nil, fmt.Errorf("failed to set merkle proof index %d: %w", index, err)
	}
	for _, d := range digests {
		tree.Push(d)
	}
	_, proofSet, _, _ := tree.Prove()

	siblings := make([]hexutil.Bytes, len(proofSet)-1)
	for i := range siblings {
		siblings[i] = hexutil.Bytes(proofSet[i+1])
	}
	return siblings, nil
}

func valuesAt(values []goldilocks.Element, cosetIndex uint64, cosetSize int) []uint64 {
	out := make([]uint64, cosetSize)
	for o := range out {
		out[o] = values[cosetIndex*uint64(cosetSize)+uint64(o)].Uint64()
	}
	return out
}
