package verifier

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/logger"
	"github.com/consensys/gnark/test"

	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
)

// CompileVerifierCircuit compiles the power combined verifier for the
// instance described by dataPath/fri_config.json, shaped after the
// proof in dataPath/fri_proof.json, and saves the constraint system,
// the keys and the Solidity verifier under dataPath/build.
func CompileVerifierCircuit(dataPath string, system string) error {
	log := logger.Logger()
	config, err := types.ReadFriConfig(dataPath + "/fri_config.json")
	if err != nil {
		return err
	}
	proof, err := types.ReadFriProof(dataPath + "/fri_proof.json")
	if err != nil {
		return err
	}
	labels := make([]string, len(proof.UpperCommitments))
	for i := range proof.UpperCommitments {
		labels[i] = proof.UpperCommitments[i].Label
	}
	circuit := NewVerifierCircuit(&config, labels)

	var builder frontend.NewBuilder
	switch system {
	case "plonk":
		builder = scs.NewBuilder
	case "groth16":
		builder = r1cs.NewBuilder
	default:
		return fmt.Errorf("unknown proof system %q", system)
	}
	r1cs, err := frontend.Compile(ecc.BN254.ScalarField(), builder, circuit)
	if err != nil {
		return fmt.Errorf("failed to compile circuit: %w", err)
	}
	log.Info().Msg("Running circuit setup")
	start := time.Now()
	if system == "plonk" {
		srs, err := test.NewKZGSRS(r1cs)
		if err != nil {
			return fmt.Errorf("failed to build test srs: %w", err)
		}
		pk, vk, err := plonk.Setup(r1cs, srs)
		if err != nil {
			return err
		}
		if err := SaveVerifierCircuitPlonk(dataPath+"/build", r1cs, pk, vk); err != nil {
			return err
		}
	} else {
		pk, vk, err := groth16.Setup(r1cs)
		if err != nil {
			return err
		}
		if err := SaveVerifierCircuitGroth(dataPath+"/build", r1cs, pk, vk); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)
	log.Info().Msg("Successfully ran circuit setup, time: " + elapsed.String())

	return nil
}

func SaveVerifierCircuitPlonk(path string, r1cs constraint.ConstraintSystem, pk plonk.ProvingKey, vk plonk.VerifyingKey) error {
	log := logger.Logger()
	os.MkdirAll(path, 0755)
	log.Info().Msg("Saving circuit constraints to " + path + "/r1cs.bin")
	r1csFile, err := os.Create(path + "/r1cs.bin")
	if err != nil {
		return fmt.Errorf("failed to create r1cs file: %w", err)
	}
	start := time.Now()
	r1cs.WriteTo(r1csFile)
	r1csFile.Close()
	elapsed := time.Since(start)
	log.Debug().Msg("Successfully saved circuit constraints, time: " + elapsed.String())

	log.Info().Msg("Saving proving key to " + path + "/pk.bin")
	pkFile, err := os.Create(path + "/pk.bin")
	if err != nil {
		return fmt.Errorf("failed to create pk file: %w", err)
	}
	start = time.Now()
	pk.WriteRawTo(pkFile)
	pkFile.Close()
	elapsed = time.Since(start)
	log.Debug().Msg("Successfully saved proving key, time: " + elapsed.String())

	log.Info().Msg("Saving verifying key to " + path + "/vk.bin")
	vkFile, err := os.Create(path + "/vk.bin")
	if err != nil {
		return fmt.Errorf("failed to create vk file: %w", err)
	}
	start = time.Now()
	vk.WriteRawTo(vkFile)
	vkFile.Close()
	elapsed = time.Since(start)
	log.Info().Msg("Successfully saved verifying key, time: " + elapsed.String())

	start = time.Now()
	err = ExportPlonkVerifierSolidity(path, vk)
	if err != nil {
		return fmt.Errorf("failed to create solidity file: %w", err)
	}
	elapsed = time.Since(start)
	log.Info().Msg("Successfully saved solidity file, time: " + elapsed.String())
	return nil
}

func SaveVerifierCircuitGroth(path string, r1cs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey) error {
	log := logger.Logger()
	os.MkdirAll(path, 0755)
	log.Info().Msg("Saving circuit constraints to " + path + "/r1cs.bin")
	r1csFile, err := os.Create(path + "/r1cs.bin")
	if err != nil {
		return fmt.Errorf("failed to create r1cs file: %w", err)
	}
	start := time.Now()
	r1cs.WriteTo(r1csFile)
	r1csFile.Close()
	elapsed := time.Since(start)
	log.Debug().Msg("Successfully saved circuit constraints, time: " + elapsed.String())

	log.Info().Msg("Saving proving key to " + path + "/pk.bin")
	pkFile, err := os.Create(path + "/pk.bin")
	if err != nil {
		return fmt.Errorf("failed to create pk file: %w", err)
	}
	start = time.Now()
	pk.WriteRawTo(pkFile)
	pkFile.Close()
	elapsed = time.Since(start)
	log.Debug().Msg("Successfully saved proving key, time: " + elapsed.String())

	log.Info().Msg("Saving verifying key to " + path + "/vk.bin")
	vkFile, err := os.Create(path + "/vk.bin")
	if err != nil {
		return fmt.Errorf("failed to create vk file: %w", err)
	}
	start = time.Now()
	vk.WriteRawTo(vkFile)
	vkFile.Close()
	elapsed = time.Since(start)
	log.Info().Msg("Successfully saved verifying key, time: " + elapsed.String())

	start = time.Now()
	err = ExportGrothVerifierSolidity(path, vk)
	if err != nil {
		return fmt.Errorf("failed to create solidity file: %w", err)
	}
	elapsed = time.Since(start)
	log.Info().Msg("Successfully saved solidity file, time: " + elapsed.String())
	return nil
}

func ExportPlonkVerifierSolidity(path string, vk plonk.VerifyingKey) error {
	log := logger.Logger()
	buf := new(bytes.Buffer)
	err := vk.ExportSolidity(buf)
	if err != nil {
		log.Err(err).Msg("failed to export verifying key to solidity")
		return err
	}

	contractFile, err := os.Create(path + "/PlonkVerifier.sol")
	if err != nil {
		return err
	}
	w := bufio.NewWriter(contractFile)
	if _, err = w.Write(buf.Bytes()); err != nil {
		contractFile.Close()
		return err
	}
	if err = w.Flush(); err != nil {
		contractFile.Close()
		return err
	}
	return contractFile.Close()
}

func ExportGrothVerifierSolidity(path string, vk groth16.VerifyingKey) error {
	log := logger.Logger()
	buf := new(bytes.Buffer)
	err := vk.ExportSolidity(buf)
	if err != nil {
		log.Err(err).Msg("failed to export verifying key to solidity")
		return err
	}

	contractFile, err := os.Create(path + "/GrothVerifier.sol")
	if err != nil {
		return err
	}
	w := bufio.NewWriter(contractFile)
	if _, err = w.Write(buf.Bytes()); err != nil {
		contractFile.Close()
		return err
	}
	if err = w.Flush(); err != nil {
		contractFile.Close()
		return err
	}
	return contractFile.Close()
}

// PackPublicWitness serializes a public witness vector into the bytes
// the exported Solidity verifier expects, 32 bytes per input.
func PackPublicWitness(publicWitness witness.Witness) ([]byte, error) {
	vector, ok := publicWitness.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected witness vector type %T", publicWitness.Vector())
	}
	packed := make([]byte, 0, len(vector)*32)
	for i := range vector {
		b := vector[i].Bytes()
		packed = append(packed, b[:]...)
	}
	return packed, nil
}

func LoadPlonkVerifierKey(path string) (plonk.VerifyingKey, error) {
	log := logger.Logger()
	vkFile, err := os.Open(path + "/vk.bin")
	if err != nil {
		return nil, fmt.Errorf("failed to open vk file: %w", err)
	}
	vk := plonk.NewVerifyingKey(ecc.BN254)
	start := time.Now()
	_, err = vk.ReadFrom(vkFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read vk file: %w", err)
	}
	vkFile.Close()
	elapsed := time.Since(start)
	log.Debug().Msg("Successfully loaded verifying key, time: " + elapsed.String())

	return vk, nil
}

func LoadPlonkProverData(path string) (constraint.ConstraintSystem, plonk.ProvingKey, error) {
	log := logger.Logger()
	r1csFile, err := os.Open(path + "/r1cs.bin")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open r1cs file: %w", err)
	}
	r1cs := plonk.NewCS(ecc.BN254)
	start := time.Now()
	r1csReader := bufio.NewReader(r1csFile)
	_, err = r1cs.ReadFrom(r1csReader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read r1cs file: %w", err)
	}
	r1csFile.Close()
	elapsed := time.Since(start)
	log.Debug().Msg("Successfully loaded constraint system, time: " + elapsed.String())

	pkFile, err := os.Open(path + "/pk.bin")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pk file: %w", err)
	}
	pk := plonk.NewProvingKey(ecc.BN254)
	start = time.Now()
	pkReader := bufio.NewReader(pkFile)
	_, err = pk.ReadFrom(pkReader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read pk file: %w", err)
	}
	pkFile.Close()
	elapsed = time.Since(start)
	log.Debug().Msg("Successfully loaded proving key, time: " + elapsed.String())

	return r1cs, pk, nil
}

func LoadGroth16VerifierKey(path string) (groth16.VerifyingKey, error) {
	log := logger.Logger()
	vkFile, err := os.Open(path + "/vk.bin")
	if err != nil {
		return nil, fmt.Errorf("failed to open vk file: %w", err)
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	start := time.Now()
	_, err = vk.ReadFrom(vkFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read vk file: %w", err)
	}
	vkFile.Close()
	elapsed := time.Since(start)
	log.Debug().Msg("Successfully loaded verifying key, time: " + elapsed.String())

	return vk, nil
}

func LoadGroth16ProverData(path string) (constraint.ConstraintSystem, groth16.ProvingKey, error) {
	log := logger.Logger()
	r1csFile, err := os.Open(path + "/r1cs.bin")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open r1cs file: %w", err)
	}
	r1cs := groth16.NewCS(ecc.BN254)
	start := time.Now()
	r1csReader := bufio.NewReader(r1csFile)
	_, err = r1cs.ReadFrom(r1csReader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read r1cs file: %w", err)
	}
	r1csFile.Close()
	elapsed := time.Since(start)
	log.Debug().Msg("Successfully loaded constraint system, time: " + elapsed.String())

	pkFile, err := os.Open(path + "/pk.bin")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pk file: %w", err)
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	start = time.Now()
	pkReader := bufio.NewReader(pkFile)
	_, err = pk.ReadFrom(pkReader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read pk file: %w", err)
	}
	pkFile.Close()
	elapsed = time.Since(start)
	log.Debug().Msg("Successfully loaded proving key, time: " + elapsed.String())

	return r1cs, pk, nil
}
