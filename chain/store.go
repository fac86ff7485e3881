package chain

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/consensus"
	"github.com/mezonai/powchain/logx"
	"github.com/mezonai/powchain/mempool"
	"github.com/mezonai/powchain/monitoring"
	"github.com/mezonai/powchain/types"
)

// ErrStaleTip is returned when a mined block no longer extends the chain tip.
var ErrStaleTip = errors.New("chain tip moved while mining")

// Load reads the persisted chain, or returns a chain holding only the
// oracle's genesis block when nothing was saved.
func Load(p Persister, oracle block.Oracle) ([]*block.Block, error) {
	records, found, err := p.LoadRecords()
	if err != nil {
		return nil, err
	}
	if !found || len(records) == 0 {
		return []*block.Block{oracle.CreateGenesisBlock()}, nil
	}
	if records[0].Index != 0 || records[0].Hash != block.GenesisHash {
		return nil, errors.Errorf("persisted chain does not start at genesis (index=%d hash=%q)",
			records[0].Index, records[0].Hash)
	}
	chain := make([]*block.Block, 0, len(records))
	for i, rec := range records {
		b, err := oracle.FromRecord(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "persisted block %d", i)
		}
		chain = append(chain, b)
	}
	return chain, nil
}

// Save writes every block of chain, replacing the previous content.
func Save(p Persister, chain []*block.Block) error {
	return p.SaveRecords(block.ToRecords(chain))
}

// Balance sums amounts received minus amounts sent by accountID over chain.
func Balance(accountID string, chain []*block.Block) float64 {
	var balance float64
	for _, b := range chain {
		for _, tx := range b.Transactions {
			if tx.To == accountID {
				balance += tx.Amount
			}
			if tx.From == accountID {
				balance -= tx.Amount
			}
		}
	}
	return balance
}

// Store owns the live chain and the pending pool. Every mutation of either
// goes through its lock, so tip checks and appends are atomic together.
type Store struct {
	mu        sync.RWMutex
	chain     []*block.Block
	pool      *mempool.Mempool
	persister Persister
}

// NewStore loads the chain through p.
func NewStore(p Persister, oracle block.Oracle) (*Store, error) {
	loaded, err := Load(p, oracle)
	if err != nil {
		return nil, err
	}
	if !consensus.LinkageValid(loaded) {
		logx.Warn("CHAIN", "Loaded chain has broken prev_hash linkage")
	}
	s := &Store{
		chain:     loaded,
		pool:      mempool.NewMempool(),
		persister: p,
	}
	monitoring.SetBlockHeight(s.tipLocked().Index)
	return s, nil
}

func (s *Store) tipLocked() *block.Block {
	return s.chain[len(s.chain)-1]
}

// Blocks returns a copy of the chain; the blocks themselves are immutable.
func (s *Store) Blocks() []*block.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*block.Block, len(s.chain))
	copy(out, s.chain)
	return out
}

func (s *Store) Records() []block.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return block.ToRecords(s.chain)
}

func (s *Store) Tip() *block.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tipLocked()
}

// Len is the number of blocks including genesis.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chain)
}

// Height is the index of the tip block.
func (s *Store) Height() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tipLocked().Index
}

func (s *Store) Balance(accountID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Balance(accountID, s.chain)
}

// Save persists the current chain.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Save(s.persister, s.chain)
}

// AppendAndPersist appends b and persists the whole chain. The append is
// undone if persisting fails.
func (s *Store) AppendAndPersist(b *block.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(b)
}

func (s *Store) appendLocked(b *block.Block) error {
	s.chain = append(s.chain, b)
	if err := Save(s.persister, s.chain); err != nil {
		s.chain[len(s.chain)-1] = nil
		s.chain = s.chain[:len(s.chain)-1]
		return errors.Wrapf(err, "persist block %d", b.Index)
	}
	monitoring.SetBlockHeight(b.Index)
	return nil
}

// AppendIfValid runs check against the current tip and appends b when it
// passes, all under the write lock. A check failure is returned unwrapped.
func (s *Store) AppendIfValid(b *block.Block, check func(tip, b *block.Block) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := check(s.tipLocked(), b); err != nil {
		return err
	}
	return s.appendLocked(b)
}

// MiningSnapshot returns the tip and the pending transactions to mine on.
func (s *Store) MiningSnapshot() (*block.Block, []types.Transaction) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tipLocked(), s.pool.GetBatch(0)
}

// CommitMined appends a locally mined block built from the first minedTxs
// pending transactions, and drops those transactions from the pool.
func (s *Store) CommitMined(b *block.Block, minedTxs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tip := s.tipLocked()
	if b.PrevHash != tip.Hash || b.Index != tip.Index+1 {
		return ErrStaleTip
	}
	if err := s.appendLocked(b); err != nil {
		return err
	}
	s.pool.RemoveBatch(minedTxs)
	monitoring.SetMempoolSize(s.pool.Len())
	return nil
}

// ReplaceIfBetter swaps in the chain described by records when the engine
// prefers it, and persists the result. On a persistence failure the previous
// chain is restored and the error returned.
func (s *Store) ReplaceIfBetter(engine *consensus.Engine, records []block.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidate, replaced := engine.ReplaceIfBetter(s.chain, records)
	if !replaced {
		return false, nil
	}
	previous := s.chain
	s.chain = candidate
	if err := Save(s.persister, s.chain); err != nil {
		s.chain = previous
		return false, errors.Wrap(err, "persist replacement chain")
	}
	monitoring.SetBlockHeight(s.tipLocked().Index)
	return true, nil
}

// AddPending queues tx for the next mined block.
func (s *Store) AddPending(tx types.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool.Add(tx)
	monitoring.SetMempoolSize(s.pool.Len())
}

// AddPendingIfAbsent queues tx unless an identical one is already pending.
func (s *Store) AddPendingIfAbsent(tx types.Transaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := s.pool.AddIfAbsent(tx)
	monitoring.SetMempoolSize(s.pool.Len())
	return added
}

func (s *Store) Pending() []types.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool.GetBatch(0)
}

func (s *Store) Close() error {
	return s.persister.Close()
}
