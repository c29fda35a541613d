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

var balancesCmd = &cobra.Command{
	Use:     "balances",
	Aliases: []string{"balance", "bal"},
	Short:   "Show token balances and authorizations",
	Long: `Show the account's balance and router authorization for both pool tokens,
plus the pool-token balance.

Examples:
  ammswap balances
  ammswap balances --json`,
	Run: runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)
}

func runBalances(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Reading balances..."
		s.Start()
	}

	infoA, errA := a.session.Token(ctx, a.tokenA)
	infoB, errB := a.session.Token(ctx, a.tokenB)
	lpBalance, errLP := a.client.LPBalance(ctx, a.session.Account)

	if !jsonOutput {
		s.Stop()
	}
	for _, err := range []error{errA, errB, errLP} {
		if err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	if jsonOutput {
		output := map[string]interface{}{
			"account": a.session.Account.Hex(),
			"tokens": []map[string]string{
				{
					"symbol":    infoA.Symbol,
					"balance":   amount.Format(infoA.Balance, infoA.Decimals),
					"allowance": amount.Format(infoA.Allowance, infoA.Decimals),
				},
				{
					"symbol":    infoB.Symbol,
					"balance":   amount.Format(infoB.Balance, infoB.Decimals),
					"allowance": amount.Format(infoB.Allowance, infoB.Decimals),
				},
			},
			"lp_balance": amount.Format(lpBalance, lpDecimals),
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                      BALANCES")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\n  Account: %s\n\n", color.CyanString(a.session.Account.Hex()))
	fmt.Printf("  %-8s balance %-24s authorized %s\n",
		color.YellowString(infoA.Symbol),
		amount.Format(infoA.Balance, infoA.Decimals),
		amount.Format(infoA.Allowance, infoA.Decimals))
	fmt.Printf("  %-8s balance %-24s authorized %s\n",
		color.YellowString(infoB.Symbol),
		amount.Format(infoB.Balance, infoB.Decimals),
		amount.Format(infoB.Allowance, infoB.Decimals))
	fmt.Printf("  %-8s balance %s\n", "LP", amount.Format(lpBalance, lpDecimals))
	fmt.Println("\n" + strings.Repeat("=", 60))
}
