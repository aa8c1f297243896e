package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crypto-signals",
	Short: "Crypto trading signal generation and distribution engine",
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(migrateCmd)
}

func Execute() error {
	// Missing .env is fine, real env vars still apply.
	_ = godotenv.Load()
	return rootCmd.Execute()
}
