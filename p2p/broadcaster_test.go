package p2p

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/types"
)

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func writePeers(t *testing.T, addrs ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "peers.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(addrs, "\n")+"\n"), 0o644))
	return path
}

func TestBroadcastBlockSkipsUnreachablePeers(t *testing.T) {
	h1, h2 := newRecordingHandler(), newRecordingHandler()
	s1 := startTestServer(t, h1, ServerOptions{})
	s2 := startTestServer(t, h2, ServerOptions{})
	path := writePeers(t, s1.Addr().String(), closedAddr(t), s2.Addr().String())

	b := NewBroadcaster(path, 5000, 2, testClient())
	genesis := block.NewPowOracle().CreateGenesisBlock()

	delivered := b.BroadcastBlock(context.Background(), genesis)
	assert.Equal(t, 2, delivered)

	h1.wait(t)
	h2.wait(t)
	h1.mu.Lock()
	assert.Equal(t, genesis.ToRecord(), h1.blocks[0])
	h1.mu.Unlock()
}

func TestBroadcastTransaction(t *testing.T) {
	h := newRecordingHandler()
	s := startTestServer(t, h, ServerOptions{})
	b := NewBroadcaster(writePeers(t, s.Addr().String()), 5000, 0, testClient())

	tx := types.NewTransaction("alice", "bob", 1.5)
	assert.Equal(t, 1, b.BroadcastTransaction(context.Background(), tx))
	h.wait(t)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []types.Transaction{tx}, h.txs)
}

func TestBroadcastWithoutPeersFile(t *testing.T) {
	b := NewBroadcaster(filepath.Join(t.TempDir(), "missing.txt"), 5000, 4, nil)
	tx := types.NewTransaction("a", "b", 1)
	assert.Equal(t, 0, b.BroadcastTransaction(context.Background(), tx))
}

func TestBroadcasterPeersAddsDefaultPort(t *testing.T) {
	b := NewBroadcaster(writePeers(t, "10.1.1.1", "10.1.1.2:7000"), 5000, 1, nil)
	peers, err := b.Peers()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1.1.1:5000", "10.1.1.2:7000"}, peers)
}
