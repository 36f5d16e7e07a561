package cmd

import (
	"bytes"
	"fmt"
	"math/big"
	"net/http"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ZpokenWeb3/gnark-fri-verifier/transcript"
	"github.com/ZpokenWeb3/gnark-fri-verifier/types"
	"github.com/ZpokenWeb3/gnark-fri-verifier/verifier"
)

var webApiCmd = &cobra.Command{
	Use:   "web-api",
	Short: "runs a web server that generates and verifies gnark proofs for posted fri proofs",
	Run:   runApi,
}

func healthCheck(c *gin.Context) {
	response := gin.H{
		"status":  "ok",
		"message": "Health check passed",
	}

	c.JSON(http.StatusOK, response)
}

const fpSize = 4 * 8

// ProofRequest carries one serialized fri proof for the instance the
// server was compiled for.
type ProofRequest struct {
	ID       string `json:"id"`
	FriProof []byte `json:"friProof"`
}

func generateProof(config types.FriConfig, r1cs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		var proofReq ProofRequest

		if err := c.ShouldBindJSON(&proofReq); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		friProof, err := types.ReadFriProofFromRequest(proofReq.FriProof)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		challenges, err := transcript.DeriveChallenges(&config, &friProof)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		assignment, err := verifier.NewVerifierAssignment(&config, &friProof, challenges)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to generate witness: %v", err)})
			return
		}

		proof, err := groth16.Prove(r1cs, pk, witness)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to generate proof: %v", err)})
			return
		}

		publicWitness, err := witness.Public()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to extract public witness: %v", err)})
			return
		}
		err = groth16.Verify(proof, vk, publicWitness)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to verify proof: %v", err)})
			return
		}

		input, err := verifier.PackPublicWitness(publicWitness)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		buf := new(bytes.Buffer)
		proof.WriteRawTo(buf)
		proofBytes := buf.Bytes()

		proofs := make([]string, 8)
		for i := 0; i < 8; i++ {
			proofs[i] = new(big.Int).SetBytes(proofBytes[i*fpSize : (i+1)*fpSize]).String()
		}

		c.JSON(http.StatusOK, gin.H{
			"inputs": hexutil.Bytes(input),
			"proof":  proofs,
		})
	}
}

func runApi(cmd *cobra.Command, args []string) {
	path := fDataDir + "/build"
	config, err := types.ReadFriConfig(fDataDir + "/fri_config.json")
	if err != nil {
		log.Error().Msg("failed to read fri config: " + err.Error())
		os.Exit(1)
	}
	vk, err := verifier.LoadGroth16VerifierKey(path)
	if err != nil {
		log.Error().Msg("failed to load verifying key: " + err.Error())
		os.Exit(1)
	}
	r1cs, pk, err := verifier.LoadGroth16ProverData(path)
	if err != nil {
		log.Error().Msg("failed to load prover data: " + err.Error())
		os.Exit(1)
	}
	//gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.GET("/health", healthCheck)
	router.POST("/proof", generateProof(config, r1cs, pk, vk))
	router.Run("0.0.0.0:8010")
}

func init() {
	rootCmd.AddCommand(webApiCmd)
}
