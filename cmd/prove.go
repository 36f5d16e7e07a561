package cmd

import (
	"bytes"
	"math/big"
	"os"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	plonk_bn254 "github.com/consensys/gnark/backend/plonk/bn254"
	"github.com/consensys/gnark/frontend"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ZpokenWeb3/gnark-fri-verifier/transcript"
	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
	"github.com/ZpokenWeb3/gnark-fri-verifier/verifier"
)

// proveCmd represents the proof command
var proveCmd = &cobra.Command{
	Use:   "prove",
	Short: "runs a proof generation in gnark, verifies it, and writes the proof with its public input to a json file",
	Run:   prove,
}

func prove(cmd *cobra.Command, args []string) {
	path := fDataDir + "/build"

	assignment, err := loadAssignment()
	if err != nil {
		log.Error().Msg(err.Error())
		os.Exit(1)
	}

	if system == "plonk" {
		r1cs, pk, err := verifier.LoadPlonkProverData(path)
		if err != nil {
			log.Error().Msg("failed to load prover data: " + err.Error())
			os.Exit(1)
		}
		start := time.Now()
		witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
		if err != nil {
			log.Error().Msg("failed to generate witness: " + err.Error())
			os.Exit(1)
		}
		elapsed := time.Since(start)
		log.Info().Msg("Successfully generated witness, time: " + elapsed.String())

		log.Info().Msg("Creating proof")
		start = time.Now()
		proof, err := plonk.Prove(r1cs, pk, witness)
		if err != nil {
			log.Error().Msg("failed to create proof: " + err.Error())
			os.Exit(1)
		}
		elapsed = time.Since(start)
		log.Info().Msg("Successfully created proof, time: " + elapsed.String())

		vk, err := verifier.LoadPlonkVerifierKey(path)
		if err != nil {
			log.Error().Msg("failed to load verifying key: " + err.Error())
			os.Exit(1)
		}
		publicWitness, err := witness.Public()
		if err != nil {
			log.Error().Msg("failed to extract public witness: " + err.Error())
			os.Exit(1)
		}
		if err := plonk.Verify(proof, vk, publicWitness); err != nil {
			log.Error().Msg("failed to verify proof: " + err.Error())
			os.Exit(1)
		}

		input, err := verifier.PackPublicWitness(publicWitness)
		if err != nil {
			log.Error().Msg(err.Error())
			os.Exit(1)
		}
		serializedProof := proof.(*plonk_bn254.Proof).MarshalSolidity()
		out := types.PlonkProof{Proof: serializedProof, Input: input}
		if err := out.Export("proof_with_witness.json"); err != nil {
			log.Error().Msg("failed to export proof: " + err.Error())
			os.Exit(1)
		}
		log.Info().Msg("Successfully saved proof_with_witness.json")
	} else {
		r1cs, pk, err := verifier.LoadGroth16ProverData(path)
		if err != nil {
			log.Error().Msg("failed to load prover data: " + err.Error())
			os.Exit(1)
		}
		witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
		if err != nil {
			log.Error().Msg("failed to generate witness: " + err.Error())
			os.Exit(1)
		}
		start := time.Now()
		proof, err := groth16.Prove(r1cs, pk, witness)
		if err != nil {
			log.Error().Msg("failed to create proof: " + err.Error())
			os.Exit(1)
		}
		elapsed := time.Since(start)
		log.Info().Msg("Successfully created proof, time: " + elapsed.String())

		vk, err := verifier.LoadGroth16VerifierKey(path)
		if err != nil {
			log.Error().Msg("failed to load verifying key: " + err.Error())
			os.Exit(1)
		}
		publicWitness, err := witness.Public()
		if err != nil {
			log.Error().Msg("failed to extract public witness: " + err.Error())
			os.Exit(1)
		}
		if err := groth16.Verify(proof, vk, publicWitness); err != nil {
			log.Error().Msg("failed to verify proof: " + err.Error())
			os.Exit(1)
		}

		buf := new(bytes.Buffer)
		proof.WriteRawTo(buf)
		proofBytes := buf.Bytes()

		var (
			a [2]*big.Int
			b [2][2]*big.Int
			c [2]*big.Int
		)
		a[0] = new(big.Int).SetBytes(proofBytes[fpSize*0 : fpSize*1])
		a[1] = new(big.Int).SetBytes(proofBytes[fpSize*1 : fpSize*2])
		b[0][0] = new(big.Int).SetBytes(proofBytes[fpSize*2 : fpSize*3])
		b[0][1] = new(big.Int).SetBytes(proofBytes[fpSize*3 : fpSize*4])
		b[1][0] = new(big.Int).SetBytes(proofBytes[fpSize*4 : fpSize*5])
		b[1][1] = new(big.Int).SetBytes(proofBytes[fpSize*5 : fpSize*6])
		c[0] = new(big.Int).SetBytes(proofBytes[fpSize*6 : fpSize*7])
		c[1] = new(big.Int).SetBytes(proofBytes[fpSize*7 : fpSize*8])

		input, err := verifier.PackPublicWitness(publicWitness)
		if err != nil {
			log.Error().Msg(err.Error())
			os.Exit(1)
		}
		out := types.Groth16Proof{A: a, B: b, C: c, Input: input}
		if err := out.Export("proof_with_witness.json"); err != nil {
			log.Error().Msg("failed to export proof: " + err.Error())
			os.Exit(1)
		}
		log.Info().Msg("Successfully saved proof_with_witness.json")
	}
}

// loadAssignment reads the instance from the data directory, replays
// its transcript and fills the witness.
func loadAssignment() (*verifier.VerifierCircuit, error) {
	config, err := types.ReadFriConfig(fDataDir + "/fri_config.json")
	if err != nil {
		return nil, err
	}
	friProof, err := types.ReadFriProof(fDataDir + "/fri_proof.json")
	if err != nil {
		return nil, err
	}
	challenges, err := transcript.DeriveChallenges(&config, &friProof)
	if err != nil {
		return nil, err
	}
	return verifier.NewVerifierAssignment(&config, &friProof, challenges)
}

func init() {
	rootCmd.AddCommand(proveCmd)
	proveCmd.Flags().StringVar(&system, "system", "groth16", "proof system for proving (groth16 or plonk)")
}
