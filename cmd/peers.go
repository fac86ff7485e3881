package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mezonai/powchain/p2p"
	"github.com/spf13/cobra"
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List or edit the static peer file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfiguration()
		if err != nil {
			return err
		}
		peers, err := p2p.ListPeers(cfg.PeersPath())
		if err != nil {
			return err
		}
		for _, peer := range peers {
			fmt.Fprintln(cmd.OutOrStdout(), p2p.PeerAddress(peer, cfg.Network.Port))
		}
		return nil
	},
}

var peersAddCmd = &cobra.Command{
	Use:   "add <host[:port]>...",
	Short: "Append peers to the peer file, skipping ones already listed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfiguration()
		if err != nil {
			return err
		}
		return addPeers(cfg.PeersPath(), args)
	},
}

func init() {
	rootCmd.AddCommand(peersCmd)
	peersCmd.AddCommand(peersAddCmd)
}

func addPeers(path string, entries []string) error {
	existing, err := p2p.ListPeers(path)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, e := range existing {
		known[e] = true
	}

	var added []string
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" || known[e] {
			continue
		}
		known[e] = true
		added = append(added, e)
	}
	if len(added) == 0 {
		return nil
	}

	content := strings.Join(added, "\n") + "\n"
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 && data[len(data)-1] != '\n' {
		content = "\n" + content
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}
