package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ammswap/pkg/amount"
)

// Pool tokens use the common 18-decimal representation.
const lpDecimals = 18

var noConfirmRemove bool

var removeCmd = &cobra.Command{
	Use:     "remove <lp-amount>",
	Aliases: []string{"remove-liquidity"},
	Short:   "Redeem pool tokens for the underlying assets",
	Long: `Redeem an amount of pool tokens for a proportional share of both reserves.

Each asset carries its own ledger-enforced minimum, derived from the same
slippage tolerance.

Examples:
  ammswap remove 25
  ammswap remove 0.5 --yes`,
	Args: cobra.ExactArgs(1),
	Run:  runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)

	removeCmd.Flags().BoolVarP(&noConfirmRemove, "yes", "y", false, "Skip confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	lpAmount, err := amount.Parse(args[0], lpDecimals)
	if err != nil {
		printError(fmt.Errorf("invalid amount %q: %w", args[0], err))
		os.Exit(1)
	}

	ctx := context.Background()

	infoA, err := a.session.Token(ctx, a.tokenA)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	infoB, err := a.session.Token(ctx, a.tokenB)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Previewing removal..."
		s.Start()
	}
	pool, err := a.client.PoolState(ctx)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	prev, err := a.engine.Removal(pool, lpAmount)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		fmt.Println("\n" + strings.Repeat("=", 60))
		color.Green("                  REMOVE LIQUIDITY")
		fmt.Println(strings.Repeat("=", 60))
		fmt.Printf("\n  Redeeming:   %s LP\n", amount.Format(prev.LPTokenAmount, lpDecimals))
		fmt.Printf("  Expected:    ~%s %s + ~%s %s\n",
			amount.Format(prev.ExpectedA, infoA.Decimals), color.YellowString(infoA.Symbol),
			amount.Format(prev.ExpectedB, infoB.Decimals), color.YellowString(infoB.Symbol))
		fmt.Printf("  Pool share:  %.2f%%\n", prev.PriceImpact)
		fmt.Println("\n" + strings.Repeat("=", 60))

		if !noConfirmRemove {
			if !confirmPrompt("Proceed with this removal?") {
				printCancelled()
				os.Exit(0)
			}
		}
	}
	a.client.Confirm = nil

	if !jsonOutput {
		s.Suffix = " Removing liquidity..."
		s.Start()
	}
	result, err := a.exec.RemoveLiquidity(ctx, lpAmount)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		reportExecutionError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"tx_hash":   result.TxHash,
			"minimum_a": amount.Format(result.MinimumA, infoA.Decimals),
			"minimum_b": amount.Format(result.MinimumB, infoB.Decimals),
			"tolerance": result.Tolerance,
			"status":    "confirmed",
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	color.Green("\n✓ Liquidity removed!")
	fmt.Printf("  Transaction: %s\n", color.CyanString(result.TxHash))
	fmt.Printf("  Received at least: %s %s + %s %s\n",
		amount.Format(result.MinimumA, infoA.Decimals), infoA.Symbol,
		amount.Format(result.MinimumB, infoB.Decimals), infoB.Symbol)
	printSuccess("Balances refreshed. Run 'ammswap balances' to verify.")
}
