package fri_test

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"

	"github.com/ZpokenWeb3/gnark-fri-verifier/fri"
	gl "github.com/ZpokenWeb3/gnark-fri-verifier/goldilocks"
	"github.com/ZpokenWeb3/gnark-fri-verifier/variables"
)

// commitLayer builds the MiMC Merkle tree over the layer's cosets and
// returns the root plus the per coset leaf digests, the same layout the
// prover commits with.
func commitLayer(values []uint64, cosetSize int) ([]byte, [][]byte) {
	h := mimc.NewMiMC()
	digests := make([][]byte, 0, len(values)/cosetSize)
	for q := 0; q*cosetSize < len(values); q++ {
		h.Reset()
		for o := 0; o < cosetSize; o++ {
			var v fr.Element
			v.SetUint64(values[q*cosetSize+o])
			b := v.Bytes()
			h.Write(b[:])
		}
		digests = append(digests, h.Sum(nil))
	}

	tree := merkletree.New(mimc.NewMiMC())
	for _, d := range digests {
		tree.Push(d)
	}
	return tree.Root(), digests
}

func openLayer(t *testing.T, digests [][]byte, cosetIndex uint64) []frontend.Variable {
	t.Helper()
	tree := merkletree.New(mimc.NewMiMC())
	require.NoError(t, tree.SetIndex(cosetIndex))
	for _, d := range digests {
		tree.Push(d)
	}
	_, proofSet, _, _ := tree.Prove()

	siblings := make([]frontend.Variable, len(proofSet)-1)
	for i := range siblings {
		siblings[i] = new(big.Int).SetBytes(proofSet[i+1])
	}
	return siblings
}

type oracleCircuit struct {
	Values     []frontend.Variable
	CosetIndex frontend.Variable
	Siblings   []frontend.Variable
	Commitment frontend.Variable
	Expected   frontend.Variable

	LogSize          uint64 `gnark:"-"`
	CollapsingFactor uint64 `gnark:"-"`
}

func (c *oracleCircuit) Define(api frontend.API) error {
	oracle := fri.NewMerkleOracle(api, c.CollapsingFactor)

	values := make([]gl.Variable, len(c.Values))
	for i := range values {
		values[i] = gl.NewVariable(c.Values[i])
	}
	bits := api.ToBinary(c.CosetIndex, int(c.LogSize-c.CollapsingFactor))

	ok := oracle.Validate(
		c.LogSize,
		values,
		bits,
		c.Commitment,
		variables.FriOpeningProof{Siblings: c.Siblings},
	)
	api.AssertIsEqual(ok, c.Expected)
	return nil
}

func TestMerkleOracleValidate(t *testing.T) {
	assert := test.NewAssert(t)

	const logSize, collapsingFactor = 3, 1
	cosetSize := 1 << collapsingFactor
	layer := []uint64{100, 200, 300, 400, 500, 600, 700, 800}
	root, digests := commitLayer(layer, cosetSize)

	numCosets := uint64(len(layer) / cosetSize)
	for cosetIndex := uint64(0); cosetIndex < numCosets; cosetIndex++ {
		siblings := openLayer(t, digests, cosetIndex)
		values := make([]frontend.Variable, cosetSize)
		for o := range values {
			values[o] = layer[cosetIndex*uint64(cosetSize)+uint64(o)]
		}

		circuit := oracleCircuit{
			Values:           make([]frontend.Variable, cosetSize),
			Siblings:         make([]frontend.Variable, len(siblings)),
			LogSize:          logSize,
			CollapsingFactor: collapsingFactor,
		}
		witness := oracleCircuit{
			Values:     values,
			CosetIndex: cosetIndex,
			Siblings:   siblings,
			Commitment: new(big.Int).SetBytes(root),
			Expected:   1,
		}
		err := test.IsSolved(&circuit, &witness, ecc.BN254.ScalarField())
		assert.NoError(err)

		// A flipped value clears the flag without breaking solving.
		tampered := witness
		tampered.Values = append([]frontend.Variable{}, values...)
		tampered.Values[0] = 12345
		tampered.Expected = 0
		err = test.IsSolved(&circuit, &tampered, ecc.BN254.ScalarField())
		assert.NoError(err)

		// So does a foreign root.
		wrongRoot := witness
		wrongRoot.Commitment = 987654321
		wrongRoot.Expected = 0
		err = test.IsSolved(&circuit, &wrongRoot, ecc.BN254.ScalarField())
		assert.NoError(err)
	}
}

func TestMerkleOracleSingleLeaf(t *testing.T) {
	assert := test.NewAssert(t)

	// Collapsing factor equal to the domain size leaves one leaf and an
	// empty path.
	layer := []uint64{41, 42}
	root, _ := commitLayer(layer, 2)

	circuit := oracleCircuit{
		Values:           make([]frontend.Variable, 2),
		Siblings:         []frontend.Variable{},
		LogSize:          1,
		CollapsingFactor: 1,
	}
	witness := oracleCircuit{
		Values:     []frontend.Variable{41, 42},
		CosetIndex: 0,
		Siblings:   []frontend.Variable{},
		Commitment: new(big.Int).SetBytes(root),
		Expected:   1,
	}
	err := test.IsSolved(&circuit, &witness, ecc.BN254.ScalarField())
	assert.NoError(err)
}

func TestMerkleOracleShapePanics(t *testing.T) {
	oracle := fri.NewMerkleOracle(nil, 1)
	values := []gl.Variable{gl.NewVariable(1), gl.NewVariable(2)}
	bits := make([]frontend.Variable, 2)
	proof := variables.FriOpeningProof{Siblings: make([]frontend.Variable, 2)}

	// Coset size off by half.
	require.Panics(t, func() { oracle.Validate(3, values[:1], bits, 0, proof) })
	// Index width not matching the domain.
	require.Panics(t, func() { oracle.Validate(4, values, bits, 0, proof) })
	// Path shorter than the tree depth.
	require.Panics(t, func() {
		oracle.Validate(3, values, bits, 0, variables.FriOpeningProof{Siblings: make([]frontend.Variable, 1)})
	})
}
