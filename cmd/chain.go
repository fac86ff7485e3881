package cmd

import (
	"fmt"
	"io"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/chain"
	"github.com/spf13/cobra"
)

var offline bool

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the chain, one line per block",
	RunE: func(cmd *cobra.Command, args []string) error {
		blocks, err := fetchChain()
		if err != nil {
			return err
		}
		printChain(cmd.OutOrStdout(), blocks)
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <account>",
	Short: "Print an account's balance over the chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		account := args[0]
		var balance float64
		if offline {
			blocks, err := loadLocalChain()
			if err != nil {
				return err
			}
			balance = chain.Balance(account, blocks)
		} else {
			var err error
			if balance, err = newAPIClient(apiURL, clientTimeout).balance(account); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Balance of %s: %g\n", account, balance)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(balanceCmd)
	for _, c := range []*cobra.Command{chainCmd, balanceCmd} {
		c.Flags().BoolVar(&offline, "offline", false, "Read the persisted chain instead of asking a running node")
	}
}

func fetchChain() ([]*block.Block, error) {
	if offline {
		return loadLocalChain()
	}
	records, err := newAPIClient(apiURL, clientTimeout).chain()
	if err != nil {
		return nil, err
	}
	oracle := block.NewPowOracle()
	blocks := make([]*block.Block, 0, len(records))
	for _, rec := range records {
		b, err := oracle.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func loadLocalChain() ([]*block.Block, error) {
	cfg, err := loadConfiguration()
	if err != nil {
		return nil, err
	}
	persister, err := openPersister(cfg)
	if err != nil {
		return nil, err
	}
	defer persister.Close()
	return chain.Load(persister, block.NewPowOracle())
}

func printChain(w io.Writer, blocks []*block.Block) {
	for _, b := range blocks {
		fmt.Fprintln(w, b.String())
	}
}
