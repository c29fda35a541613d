package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ammswap/pkg/amount"
	"ammswap/pkg/execution"
	"ammswap/pkg/parser"
	"ammswap/pkg/quote"
	"ammswap/pkg/slippage"
	"ammswap/pkg/types"
)

var (
	manualTolerance float64
	noConfirm       bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Swap tokens through the pool",
	Long: `Swap an exact input amount for the other pool token.

The expected output is quoted from the pool reserves (or the reference feed
when the pool is empty), a slippage tolerance is derived from price impact and
pool depth unless set manually, and the resulting minimum output is enforced
by the ledger.

Examples:
  ammswap swap 1.5 TKA to TKB
  ammswap swap 100 TKB to TKA --tolerance 0.5
  ammswap swap 1 TKA to TKB --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().Float64Var(&manualTolerance, "tolerance", -1, "Slippage tolerance percent (overrides auto-derivation)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	commandStr := strings.Join(args, " ")
	req, err := parser.ParseSwapCommand(commandStr)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()

	d, in, out, err := a.resolveDirection(ctx, req)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	amountIn, err := amount.Parse(req.Amount, in.Decimals)
	if err != nil {
		printError(fmt.Errorf("invalid amount %q: %w", req.Amount, err))
		os.Exit(1)
	}

	if manualTolerance >= 0 {
		a.slip.SetManual(manualTolerance)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	pool, err := a.client.PoolState(ctx)
	var q *types.SwapQuote
	if err == nil {
		q, err = a.engine.Swap(ctx, pool, d, amountIn)
	}
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	tier := slippage.TierForDepth(quote.PoolDepth(pool, d), a.thinBelow, a.moderateBelow)
	tol := a.slip.Working(q.PriceImpact, tier)
	q.Tolerance = tol
	q.MinimumOutput = slippage.MinimumOutput(q.OutputAmount, tol)

	if jsonOutput {
		printQuoteJSON(q, in, out)
	} else {
		displayQuote(q, in, out)
	}

	if !noConfirm && !jsonOutput {
		if !confirmPrompt("Proceed with this swap?") {
			printCancelled()
			os.Exit(0)
		}
	}
	// Writes were already confirmed above, or pre-approved with --yes.
	a.client.Confirm = nil

	if !jsonOutput {
		s.Suffix = " Executing swap..."
		s.Start()
	}
	result, err := a.exec.Swap(ctx, d, amountIn)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		reportExecutionError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"tx_hash":     result.TxHash,
			"expected":    amount.Format(result.Expected, out.Decimals),
			"minimum_out": amount.Format(result.MinimumOut, out.Decimals),
			"tolerance":   result.Tolerance,
			"status":      "confirmed",
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	color.Green("\n✓ Swap confirmed!")
	fmt.Printf("  Transaction: %s\n", color.CyanString(result.TxHash))
	fmt.Printf("  Received at least: %s %s\n", amount.Format(result.MinimumOut, out.Decimals), out.Symbol)
	printSuccess("Balances refreshed. Run 'ammswap balances' to verify.")
}

// resolveDirection matches the parsed symbols against the configured pair.
func (a *app) resolveDirection(ctx context.Context, req *parser.Request) (types.Direction, *types.TokenInfo, *types.TokenInfo, error) {
	infoA, err := a.session.Token(ctx, a.tokenA)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read token info: %w", err)
	}
	infoB, err := a.session.Token(ctx, a.tokenB)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read token info: %w", err)
	}

	src := parser.NormalizeTokenSymbol(req.SourceToken)
	dst := parser.NormalizeTokenSymbol(req.DestToken)
	symA := parser.NormalizeTokenSymbol(infoA.Symbol)
	symB := parser.NormalizeTokenSymbol(infoB.Symbol)

	switch {
	case src == symA && dst == symB:
		return types.TokenAToB, infoA, infoB, nil
	case src == symB && dst == symA:
		return types.TokenBToA, infoB, infoA, nil
	default:
		return 0, nil, nil, fmt.Errorf("pair is %s/%s; cannot swap %s to %s", symA, symB, src, dst)
	}
}

func displayQuote(q *types.SwapQuote, in, out *types.TokenInfo) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s\n", amount.Format(q.InputAmount, in.Decimals), color.YellowString(in.Symbol))
	fmt.Printf("  To (expected):     ~%s %s\n", amount.Format(q.OutputAmount, out.Decimals), color.YellowString(out.Symbol))
	fmt.Printf("  Minimum received:  %s %s\n", amount.Format(q.MinimumOutput, out.Decimals), out.Symbol)
	fmt.Printf("  Trading fee:       %s %s\n", amount.Format(q.TradingFee, in.Decimals), in.Symbol)
	fmt.Printf("  Price impact:      %.2f%%\n", q.PriceImpact)
	fmt.Printf("  Slippage:          %.2f%%\n", q.Tolerance)
	fmt.Printf("  Rate:              1 %s ≈ %.6f %s\n", in.Symbol, q.ExchangeRate, out.Symbol)
	fmt.Println("\n" + strings.Repeat("=", 60))
}

func printQuoteJSON(q *types.SwapQuote, in, out *types.TokenInfo) {
	output := map[string]interface{}{
		"input":          amount.Format(q.InputAmount, in.Decimals),
		"input_token":    in.Symbol,
		"expected":       amount.Format(q.OutputAmount, out.Decimals),
		"minimum_out":    amount.Format(q.MinimumOutput, out.Decimals),
		"output_token":   out.Symbol,
		"fee":            amount.Format(q.TradingFee, in.Decimals),
		"price_impact":   q.PriceImpact,
		"tolerance":      q.Tolerance,
		"exchange_rate":  q.ExchangeRate,
		"status":         "quote_generated",
	}
	jsonData, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(jsonData))
}

// reportExecutionError names the remedy for the failure classes that have
// one.
func reportExecutionError(err error) {
	switch {
	case errors.Is(err, execution.ErrCancelled):
		printCancelled()
	case errors.Is(err, execution.ErrSlippageExceeded):
		color.Red("\n✗ %v", err)
		color.Yellow("Try again with a higher --tolerance or a smaller amount.\n")
	case errors.Is(err, execution.ErrDeadlineExpired):
		color.Red("\n✗ %v", err)
		color.Yellow("The transaction was not included in time. No funds moved; try again.\n")
	case errors.Is(err, execution.ErrInsufficientBalance):
		color.Red("\n✗ %v", err)
	default:
		printError(err)
	}
}
