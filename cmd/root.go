package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ammswap",
	Short: "A CLI for swapping against a two-token AMM pool",
	Long: `ammswap is a command-line client for a single constant-product pool.
It quotes expected output, derives a slippage tolerance from price impact and
pool depth, enforces a ledger-side minimum output, and coordinates token
authorizations before execution.

Examples:
  ammswap swap 1.5 TKA to TKB
  ammswap swap 100 TKB to TKA --tolerance 0.5
  ammswap preview 1 TKA to TKB --watch
  ammswap remove 25
  ammswap balances
  ammswap status <tx-hash>`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
