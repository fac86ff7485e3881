package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/mezonai/powchain/abuse"
	"github.com/mezonai/powchain/api"
	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/chain"
	"github.com/mezonai/powchain/config"
	"github.com/mezonai/powchain/consensus"
	"github.com/mezonai/powchain/events"
	"github.com/mezonai/powchain/exception"
	"github.com/mezonai/powchain/logx"
	"github.com/mezonai/powchain/monitoring"
	"github.com/mezonai/powchain/node"
	"github.com/mezonai/powchain/p2p"
	"github.com/mezonai/powchain/ratelimit"
	"github.com/spf13/cobra"
)

var (
	logToFile    bool
	syncOnStart  bool
	mineInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the node: sync server, HTTP API and optional miner",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNode()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&logToFile, "log-file", true, "Also write logs to a rotating file under ./logs")
	runCmd.Flags().BoolVar(&syncOnStart, "sync", true, "Pull every peer's chain on start-up")
	runCmd.Flags().DurationVar(&mineInterval, "mine-interval", 0, "Mine a block at this interval (0 disables)")
}

func runNode() error {
	if logToFile {
		logx.InitWithLogFile(true)
	}
	monitoring.InitMetrics()

	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, policy, err := initializeNode(cfg)
	if err != nil {
		return err
	}
	defer policy.Stop()

	if err := n.Start(ctx, cfg.Node.ListenAddr, p2p.ServerOptions{
		MaxMessageBytes: int64(cfg.Network.MaxMessageBytes),
		WriteTimeout:    cfg.RequestTimeout(),
		Policy:          policy,
	}); err != nil {
		n.Stop()
		return err
	}
	defer n.Stop()

	startEventLogger(ctx, n.Events())

	apiServer := api.NewAPIServer(n, cfg.Node.APIAddr)
	if err := apiServer.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logx.Warn("API", "Shutdown:", err)
		}
	}()

	if syncOnStart {
		replaced := n.SyncWithPeers(ctx)
		logx.Info("NODE", "Start-up sync done, chain replaced ", replaced, " times, height ", n.Store().Height())
	}
	if mineInterval > 0 {
		exception.SafeGoWithPanic("Miner", func() { mineLoop(ctx, n, mineInterval) })
	}

	<-ctx.Done()
	logx.Info("NODE", "Shutting down")
	return nil
}

func initializeNode(cfg *config.Config) (*node.Node, *p2p.IPAccessControl, error) {
	persister, err := openPersister(cfg)
	if err != nil {
		return nil, nil, err
	}
	oracle := block.NewPowOracle()
	store, err := chain.NewStore(persister, oracle)
	if err != nil {
		persister.Close()
		return nil, nil, err
	}

	engine := consensus.NewEngine(oracle, cfg.Consensus.Difficulty)
	client := p2p.NewClient(cfg.DialTimeout(), cfg.RequestTimeout(), int64(cfg.Network.MaxMessageBytes))
	broadcaster := p2p.NewBroadcaster(cfg.PeersPath(), cfg.Network.Port, cfg.Network.BroadcastWorkers, client)

	limiter := ratelimit.NewRateLimiter(&ratelimit.RateLimiterConfig{
		MaxRequests:     cfg.Network.GetChainPerMinute,
		WindowSize:      time.Minute,
		CleanupInterval: 5 * time.Minute,
	})
	policy := p2p.NewIPAccessControl(cfg.Node.AllowedIPs, cfg.Node.DeniedIPs, limiter, abuse.NewAbuseDetector(nil))

	n := node.New(node.Options{
		NodeID: cfg.Node.NodeID,
		Reward: cfg.Consensus.Reward,
		Port:   cfg.Network.Port,
	}, store, engine, broadcaster, client, events.NewEventBus())
	return n, policy, nil
}

// startEventLogger logs every state change published by the node.
func startEventLogger(ctx context.Context, bus *events.EventBus) {
	id, ch := bus.Subscribe()
	exception.SafeGo("EventLogger", func() {
		defer bus.Unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				logx.Info("EVENT", ev.Summary())
			}
		}
	})
}

func mineLoop(ctx context.Context, n *node.Node, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := n.Mine(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logx.Warn("MINER", "Mining round failed:", err)
			}
		}
	}
}
