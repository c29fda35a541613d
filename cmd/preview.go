package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ammswap/pkg/amount"
	"ammswap/pkg/parser"
	"ammswap/pkg/preview"
	"ammswap/pkg/quote"
	"ammswap/pkg/slippage"
	"ammswap/pkg/types"
)

var (
	watchPreview    bool
	previewInterval int
)

var previewCmd = &cobra.Command{
	Use:   "preview <amount> <source-token> to <dest-token>",
	Short: "Preview a swap without executing it",
	Long: `Quote a swap and display the expected output, minimum received, fee and
price impact. Nothing is signed or submitted.

With --watch the preview refreshes periodically until interrupted, so the
displayed quote tracks the live pool state.

Examples:
  ammswap preview 1 TKA to TKB
  ammswap preview 1 TKA to TKB --watch
  ammswap preview 1 TKA to TKB --watch --interval 10`,
	Args: cobra.MinimumNArgs(1),
	Run:  runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().BoolVarP(&watchPreview, "watch", "w", false, "Refresh the preview continuously")
	previewCmd.Flags().IntVar(&previewInterval, "interval", 30, "Refresh interval in seconds (when watching)")
}

func runPreview(cmd *cobra.Command, args []string) {
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

	quoteFn := func(ctx context.Context, d types.Direction, amountIn *big.Int) (*types.SwapQuote, error) {
		pool, err := a.client.PoolState(ctx)
		if err != nil {
			return nil, err
		}
		q, err := a.engine.Swap(ctx, pool, d, amountIn)
		if err != nil {
			return nil, err
		}
		tier := slippage.TierForDepth(quote.PoolDepth(pool, d), a.thinBelow, a.moderateBelow)
		q.Tolerance = a.slip.Working(q.PriceImpact, tier)
		q.MinimumOutput = slippage.MinimumOutput(q.OutputAmount, q.Tolerance)
		return q, nil
	}

	if !watchPreview {
		q, err := quoteFn(ctx, d, amountIn)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if jsonOutput {
			printQuoteJSON(q, in, out)
		} else {
			displayQuote(q, in, out)
		}
		return
	}

	onUpdate := func(r preview.Result) {
		if r.Err != nil {
			color.Red("\n[%s] quote failed: %v", time.Now().Format("15:04:05"), r.Err)
			return
		}
		fmt.Printf("\n[%s]", time.Now().Format("15:04:05"))
		displayQuote(r.Quote, in, out)
	}

	r := preview.New(quoteFn, onUpdate,
		preview.WithRefreshInterval(time.Duration(previewInterval)*time.Second))
	r.Start()
	defer r.Stop()
	r.SetInput(d, amountIn)

	fmt.Println("Watching. Press Ctrl+C to stop.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Println("\nStopped.")
}
