package cmd

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/types"
	"github.com/spf13/cobra"
)

var (
	txFrom        string
	txTo          string
	mineTimeout   time.Duration
	clientTimeout = 10 * time.Second
)

var txCmd = &cobra.Command{
	Use:   "tx <amount>",
	Short: "Submit a transaction to a running node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[0], err)
		}
		tx := types.NewTransaction(txFrom, txTo, amount)
		if err := newAPIClient(apiURL, clientTimeout).do(http.MethodPost, "/txs", tx, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "[+] Transaction added:", tx.String())
		return nil
	},
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask a running node to mine a block from its pending transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		var rec block.Record
		if err := newAPIClient(apiURL, mineTimeout).do(http.MethodPost, "/mine", nil, &rec); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[✓] Block %d mined and broadcasted: %s\n", rec.Index, rec.Hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(mineCmd)

	txCmd.Flags().StringVar(&txFrom, "from", "", "Sender account")
	txCmd.Flags().StringVar(&txTo, "to", "", "Recipient account")
	_ = txCmd.MarkFlagRequired("from")
	_ = txCmd.MarkFlagRequired("to")

	mineCmd.Flags().DurationVar(&mineTimeout, "timeout", 10*time.Minute, "How long to wait for the proof of work")
}
