package cmd

import (
	"os"

	"github.com/mezonai/powchain/logx"
	"github.com/spf13/cobra"
)

var (
	nodeConfigPath   string
	tuningConfigPath string
	apiURL           string
)

var rootCmd = &cobra.Command{
	Use:   "powchain",
	Short: "Proof-of-work ledger node CLI",
	Long:  "Command line interface for running and driving a proof-of-work ledger node.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&nodeConfigPath, "config", "config/node.yml", "Path to the node YAML config")
	rootCmd.PersistentFlags().StringVar(&tuningConfigPath, "tuning", "config/config.ini", "Path to the INI tuning config")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://127.0.0.1:8080", "Base URL of a running node's API")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
