package node

import (
	"context"
	"errors"
	"sync"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/chain"
	"github.com/mezonai/powchain/consensus"
	"github.com/mezonai/powchain/events"
	"github.com/mezonai/powchain/logx"
	"github.com/mezonai/powchain/monitoring"
	"github.com/mezonai/powchain/p2p"
	"github.com/mezonai/powchain/types"
)

// Options identifies the node and how it reaches peers.
type Options struct {
	NodeID string
	Reward float64
	// Port is dialled on a sender's host when pulling its chain.
	Port int
}

// Node ties the chain store, consensus engine and network together. It is
// the p2p.ChainHandler for its sync server.
type Node struct {
	opts        Options
	store       *chain.Store
	engine      *consensus.Engine
	broadcaster *p2p.Broadcaster
	client      *p2p.Client
	bus         *events.EventBus

	serverMu sync.Mutex
	server   *p2p.Server

	pullMu  sync.Mutex
	pulling map[string]bool
}

func New(opts Options, store *chain.Store, engine *consensus.Engine, broadcaster *p2p.Broadcaster, client *p2p.Client, bus *events.EventBus) *Node {
	if client == nil {
		client = p2p.NewClient(0, 0, 0)
	}
	if bus == nil {
		bus = events.NewEventBus()
	}
	return &Node{
		opts:        opts,
		store:       store,
		engine:      engine,
		broadcaster: broadcaster,
		client:      client,
		bus:         bus,
		pulling:     make(map[string]bool),
	}
}

func (n *Node) ID() string                    { return n.opts.NodeID }
func (n *Node) Store() *chain.Store           { return n.store }
func (n *Node) Engine() *consensus.Engine     { return n.engine }
func (n *Node) Events() *events.EventBus      { return n.bus }
func (n *Node) Broadcaster() *p2p.Broadcaster { return n.broadcaster }

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("node already started")

// Start runs the sync server on listenAddr until ctx ends or Stop is called.
func (n *Node) Start(ctx context.Context, listenAddr string, opts p2p.ServerOptions) error {
	n.serverMu.Lock()
	defer n.serverMu.Unlock()
	if n.server != nil {
		return ErrAlreadyStarted
	}

	server := p2p.NewServer(listenAddr, n, opts)
	if err := server.Start(ctx); err != nil {
		return err
	}
	n.server = server
	logx.Info("NODE", "Node ", n.opts.NodeID, " started at height ", n.store.Height())
	return nil
}

// SyncAddr is the sync server's bound address, or "" when not started.
func (n *Node) SyncAddr() string {
	n.serverMu.Lock()
	server := n.server
	n.serverMu.Unlock()

	if server == nil || server.Addr() == nil {
		return ""
	}
	return server.Addr().String()
}

func (n *Node) Stop() {
	n.serverMu.Lock()
	server := n.server
	n.serverMu.Unlock()

	if server != nil {
		server.Stop()
	}
	if err := n.store.Close(); err != nil {
		logx.Warn("NODE", "Closing chain store:", err)
	}
}

// Mine builds a block from the current pending transactions on top of the
// tip, commits it and broadcasts it. chain.ErrStaleTip is returned when the
// tip moved while mining; nothing is committed then.
func (n *Node) Mine(ctx context.Context) (*block.Block, error) {
	tip, txs := n.store.MiningSnapshot()
	b, err := n.engine.Oracle().CreateBlock(ctx, txs, tip.Hash, n.opts.NodeID, tip.Index+1, n.opts.Reward, n.engine.Difficulty())
	if err != nil {
		return nil, err
	}
	if err := n.store.CommitMined(b, len(txs)); err != nil {
		logx.Warn("MINER", "Discarding mined block ", b.Index, ": ", err)
		return nil, err
	}

	monitoring.IncreaseMinedBlockCount()
	n.bus.Publish(events.NewBlockMined(b))
	logx.Info("MINER", "Block ", b.Index, " mined and broadcasted: ", b.ShortHash())

	if n.broadcaster != nil {
		n.broadcaster.BroadcastBlock(ctx, b)
	}
	return b, nil
}

// SubmitTransaction queues tx locally and broadcasts it. Transactions are not
// validated.
func (n *Node) SubmitTransaction(ctx context.Context, tx types.Transaction) {
	n.store.AddPending(tx)
	n.bus.Publish(events.NewTransactionReceived(tx, n.opts.NodeID))
	logx.Info("NODE", "Transaction added: ", tx.String())

	if n.broadcaster != nil {
		n.broadcaster.BroadcastTransaction(ctx, tx)
	}
}

func (n *Node) Balance(accountID string) float64 {
	return n.store.Balance(accountID)
}

func (n *Node) Blocks() []*block.Block {
	return n.store.Blocks()
}

func (n *Node) Pending() []types.Transaction {
	return n.store.Pending()
}
