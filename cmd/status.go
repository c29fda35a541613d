package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	watchTxStatus bool
	watchTxEvery  int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the status of a submitted transaction",
	Long: `Look up a transaction by hash and report whether it is pending, confirmed
or reverted.

Examples:
  ammswap status 0x1234...abcd
  ammswap status 0x1234...abcd --watch
  ammswap status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchTxStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchTxEvery, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	hash := args[0]
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()

	if !watchTxStatus {
		checkTxStatus(ctx, a, hash, jsonOutput)
		return
	}

	for {
		done := checkTxStatus(ctx, a, hash, jsonOutput)
		if done {
			return
		}
		time.Sleep(time.Duration(watchTxEvery) * time.Second)
	}
}

// checkTxStatus reports the transaction state once and returns true when the
// transaction has settled.
func checkTxStatus(ctx context.Context, a *app, hash string, jsonOutput bool) bool {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking transaction status..."
		s.Start()
	}

	info, err := a.client.TransactionInfo(ctx, hash)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		status := "pending"
		if !info.Pending {
			if info.Succeeded {
				status = "confirmed"
			} else {
				status = "reverted"
			}
		}
		output := map[string]interface{}{
			"tx_hash": info.Hash,
			"status":  status,
		}
		if !info.Pending {
			output["block"] = info.BlockNumber
			output["gas_used"] = info.GasUsed
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return !info.Pending
	}

	switch {
	case info.Pending:
		color.Yellow("\n⏳ Transaction %s is pending...\n", info.Hash)
		return false
	case info.Succeeded:
		color.Green("\n✓ Transaction confirmed")
		fmt.Printf("  Hash:     %s\n", color.CyanString(info.Hash))
		fmt.Printf("  Block:    %d\n", info.BlockNumber)
		fmt.Printf("  Gas used: %d\n", info.GasUsed)
		return true
	default:
		color.Red("\n✗ Transaction reverted")
		fmt.Printf("  Hash:  %s\n", color.CyanString(info.Hash))
		fmt.Printf("  Block: %d\n", info.BlockNumber)
		return true
	}
}
