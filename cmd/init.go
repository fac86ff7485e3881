package cmd

import (
	"os"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/chain"
	"github.com/mezonai/powchain/logx"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the data directory with a genesis chain and an empty peer list",
	Long: `Initialize a node by:
- Creating the data directory
- Writing a chain holding only the genesis block (kept if a chain already exists)
- Creating an empty peers file (kept if it already exists)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initializeDataDir()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// initializeDataDir is idempotent and safe to run multiple times.
func initializeDataDir() error {
	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Node.DataDir, 0o755); err != nil {
		return err
	}

	persister, err := openPersister(cfg)
	if err != nil {
		return err
	}
	defer persister.Close()

	store, err := chain.NewStore(persister, block.NewPowOracle())
	if err != nil {
		return err
	}
	if store.Len() == 1 {
		if err := store.Save(); err != nil {
			return err
		}
		logx.Info("INIT", "Genesis chain written to ", cfg.ChainPath())
	} else {
		logx.Info("INIT", "Existing chain kept, height ", store.Height())
	}

	peersPath := cfg.PeersPath()
	if _, err := os.Stat(peersPath); os.IsNotExist(err) {
		if err := os.WriteFile(peersPath, nil, 0o644); err != nil {
			return err
		}
		logx.Info("INIT", "Empty peers file created at ", peersPath)
	}
	return nil
}
