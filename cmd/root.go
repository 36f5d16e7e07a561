package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	fDataDir string
	system   string
)

var rootCmd = &cobra.Command{
	Use:   "gnark-fri-verifier",
	Short: "helper to verify FRI low degree proofs in gnark",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&fDataDir, "dir", "", "base directory for fri_config.json and fri_proof.json")
	rootCmd.MarkPersistentFlagRequired("dir")
}
