package p2p

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/logx"
	"github.com/mezonai/powchain/monitoring"
	"github.com/mezonai/powchain/types"
)

const DefaultBroadcastWorkers = 8

// Broadcaster pushes blocks and transactions to every peer in the peers file.
// Delivery is best effort: a failing peer is logged and skipped.
type Broadcaster struct {
	peersPath string
	port      int
	workers   int
	client    *Client
}

func NewBroadcaster(peersPath string, port, workers int, client *Client) *Broadcaster {
	if workers <= 0 {
		workers = DefaultBroadcastWorkers
	}
	if client == nil {
		client = NewClient(0, 0, 0)
	}
	return &Broadcaster{
		peersPath: peersPath,
		port:      port,
		workers:   workers,
		client:    client,
	}
}

// Peers returns the dialable addresses currently listed in the peers file.
func (b *Broadcaster) Peers() ([]string, error) {
	entries, err := ListPeers(b.peersPath)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(entries))
	for _, e := range entries {
		addrs = append(addrs, PeerAddress(e, b.port))
	}
	monitoring.SetPeerCount(len(addrs))
	return addrs, nil
}

// BroadcastBlock sends blk to all peers and returns how many accepted the
// connection.
func (b *Broadcaster) BroadcastBlock(ctx context.Context, blk *block.Block) int {
	msg, err := NewBlockMessage(blk)
	if err != nil {
		logx.Error("BROADCAST", "Failed to encode block:", err)
		return 0
	}
	return b.broadcast(ctx, msg)
}

func (b *Broadcaster) BroadcastTransaction(ctx context.Context, tx types.Transaction) int {
	msg, err := NewTransactionMessage(tx)
	if err != nil {
		logx.Error("BROADCAST", "Failed to encode transaction:", err)
		return 0
	}
	return b.broadcast(ctx, msg)
}

func (b *Broadcaster) broadcast(ctx context.Context, msg *Message) int {
	peers, err := b.Peers()
	if err != nil {
		logx.Error("BROADCAST", "Failed to read peers:", err)
		return 0
	}
	if len(peers) == 0 {
		return 0
	}

	var delivered atomic.Int32
	var g errgroup.Group
	g.SetLimit(b.workers)
	for _, addr := range peers {
		addr := addr
		g.Go(func() error {
			if err := b.client.Send(ctx, addr, msg); err != nil {
				monitoring.RecordBroadcastFailure(string(msg.Type))
				logx.Warn("BROADCAST", "Peer unreachable:", addr, " err=", err)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	logx.Debug("BROADCAST", "Sent ", msg.Type, " to ", delivered.Load(), "/", len(peers), " peers")
	return int(delivered.Load())
}
