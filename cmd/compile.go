package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ZpokenWeb3/gnark-fri-verifier/verifier"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "compile and save circuit build data (r1cs, pk, vk, solidity contract) for a fri instance",
	Run:   compile,
}

func compile(cmd *cobra.Command, args []string) {
	if err := verifier.CompileVerifierCircuit(fDataDir, system); err != nil {
		log.Error().Msg("failed to compile verifier circuit: " + err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringVar(&system, "system", "groth16", "proof system to set up (groth16 or plonk)")
}
