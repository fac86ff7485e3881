package node

import (
	"context"
	"errors"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/consensus"
	"github.com/mezonai/powchain/events"
	"github.com/mezonai/powchain/logx"
	"github.com/mezonai/powchain/monitoring"
	"github.com/mezonai/powchain/p2p"
	"github.com/mezonai/powchain/types"
)

// HandleBlock appends a peer's block when it extends the local tip. Any
// validation failure means the peer may be on a longer fork, so its chain is
// pulled.
func (n *Node) HandleBlock(ctx context.Context, rec block.Record, from string) {
	b, err := n.engine.Oracle().FromRecord(rec)
	if err != nil {
		monitoring.RecordRejectedBlock(monitoring.BlockMalformed)
		logx.Warn("SYNC", "Malformed block from ", from, ": ", err)
		return
	}

	err = n.store.AppendIfValid(b, n.engine.CheckBlock)
	if err == nil {
		monitoring.IncreaseAcceptedBlockCount()
		n.bus.Publish(events.NewBlockAccepted(b, from))
		logx.Info("SYNC", "Accepted block ", b.Index, " from ", from)
		return
	}

	reason := rejectReason(err)
	monitoring.RecordRejectedBlock(reason)
	if reason == monitoring.BlockPersistFailed {
		logx.Error("SYNC", "Failed to persist block ", b.Index, " from ", from, ": ", err)
		return
	}
	logx.Info("SYNC", "Block ", b.Index, " from ", from, " rejected (", err, "), requesting chain")
	n.PullChain(ctx, p2p.PeerAddress(from, n.opts.Port))
}

func rejectReason(err error) monitoring.BlockRejectedReason {
	switch {
	case errors.Is(err, consensus.ErrPrevHashMismatch):
		return monitoring.BlockPrevHashMismatch
	case errors.Is(err, consensus.ErrIndexMismatch):
		return monitoring.BlockIndexMismatch
	case errors.Is(err, consensus.ErrInsufficientWork):
		return monitoring.BlockInsufficientWork
	case errors.Is(err, consensus.ErrHashMismatch):
		return monitoring.BlockHashMismatch
	default:
		return monitoring.BlockPersistFailed
	}
}

// HandleTransaction queues a peer's transaction unless an identical one is
// already pending.
func (n *Node) HandleTransaction(_ context.Context, tx types.Transaction, from string) {
	if !n.store.AddPendingIfAbsent(tx) {
		logx.Debug("SYNC", "Duplicate transaction from ", from, ": ", tx.String())
		return
	}
	monitoring.IncreaseReceivedTxCount()
	n.bus.Publish(events.NewTransactionReceived(tx, from))
	logx.Info("SYNC", "Transaction from ", from, ": ", tx.String())
}

// HandleChain applies the longest-valid-chain rule to a pushed chain.
func (n *Node) HandleChain(_ context.Context, records []block.Record, from string) {
	n.applyChain(records, from)
}

func (n *Node) ChainRecords() []block.Record {
	return n.store.Records()
}

// PullChain requests addr's chain and adopts it if it is better. Concurrent
// pulls from the same address collapse into one.
func (n *Node) PullChain(ctx context.Context, addr string) bool {
	n.pullMu.Lock()
	if n.pulling[addr] {
		n.pullMu.Unlock()
		return false
	}
	n.pulling[addr] = true
	n.pullMu.Unlock()
	defer func() {
		n.pullMu.Lock()
		delete(n.pulling, addr)
		n.pullMu.Unlock()
	}()

	monitoring.IncreaseChainPullCount()
	records, err := n.client.RequestChain(ctx, addr)
	if err != nil {
		logx.Warn("SYNC", "Chain request to ", addr, " failed: ", err)
		return false
	}
	return n.applyChain(records, addr)
}

// SyncWithPeers pulls the chain of every listed peer, returning how many
// replaced the local chain.
func (n *Node) SyncWithPeers(ctx context.Context) int {
	if n.broadcaster == nil {
		return 0
	}
	peers, err := n.broadcaster.Peers()
	if err != nil {
		logx.Error("SYNC", "Failed to read peers:", err)
		return 0
	}
	replaced := 0
	for _, addr := range peers {
		if ctx.Err() != nil {
			break
		}
		if n.PullChain(ctx, addr) {
			replaced++
		}
	}
	return replaced
}

func (n *Node) applyChain(records []block.Record, source string) bool {
	before := n.store.Len()
	replaced, err := n.store.ReplaceIfBetter(n.engine, records)
	if err != nil {
		logx.Error("SYNC", "Failed to persist chain from ", source, ": ", err)
		return false
	}
	if !replaced {
		logx.Debug("SYNC", "Kept local chain over ", len(records), " blocks from ", source)
		return false
	}

	tip := n.store.Tip()
	monitoring.IncreaseChainReplacementCount()
	n.bus.Publish(events.NewChainReplaced(before, n.store.Len(), tip, source))
	logx.Info("SYNC", "Local chain replaced by longer valid chain from ", source, " (", before, " -> ", tip.Index+1, " blocks)")
	return true
}
