package mempool

import (
	"sync"

	"github.com/mezonai/powchain/types"
)

// Mempool provides a thread-safe ordered queue of pending transactions.
type Mempool struct {
	mu    sync.Mutex
	txs   []types.Transaction
	index map[string]int // tx hash -> occurrences in txs
}

// NewMempool creates a new, empty mempool.
func NewMempool() *Mempool {
	return &Mempool{
		txs:   make([]types.Transaction, 0),
		index: make(map[string]int),
	}
}

// Add pushes a transaction into the mempool without any duplicate check.
func (m *Mempool) Add(tx types.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(tx)
}

// AddIfAbsent pushes tx unless an identical transaction is already pending.
// It reports whether tx was added.
func (m *Mempool) AddIfAbsent(tx types.Transaction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index[tx.Hash()] > 0 {
		return false
	}
	m.add(tx)
	return true
}

func (m *Mempool) add(tx types.Transaction) {
	m.txs = append(m.txs, tx)
	m.index[tx.Hash()]++
}

// Contains reports whether an identical transaction is pending.
func (m *Mempool) Contains(tx types.Transaction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index[tx.Hash()] > 0
}

// Len returns the number of transactions in the mempool.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

// GetBatch returns up to max transactions without removing them.
// A non-positive max returns everything.
func (m *Mempool) GetBatch(max int) []types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max <= 0 || len(m.txs) < max {
		max = len(m.txs)
	}
	batch := make([]types.Transaction, max)
	copy(batch, m.txs[:max])
	return batch
}

// RemoveBatch removes the first n transactions from the mempool.
func (m *Mempool) RemoveBatch(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.txs) {
		n = len(m.txs)
	}
	for _, tx := range m.txs[:n] {
		h := tx.Hash()
		if m.index[h] <= 1 {
			delete(m.index, h)
		} else {
			m.index[h]--
		}
	}
	m.txs = append(m.txs[:0:0], m.txs[n:]...)
}

// Clear drops every pending transaction.
func (m *Mempool) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = make([]types.Transaction, 0)
	m.index = make(map[string]int)
}
