package consensus

import (
	"errors"
	"fmt"

	"github.com/mezonai/powchain/block"
)

var (
	ErrPrevHashMismatch = errors.New("prev_hash does not match chain tip")
	ErrInsufficientWork = errors.New("hash does not meet difficulty")
	ErrHashMismatch     = errors.New("stored hash does not match recomputed hash")
	ErrIndexMismatch    = errors.New("index does not follow chain tip")
)

// Engine applies the validity and fork-choice rules for a fixed difficulty.
type Engine struct {
	oracle     block.Oracle
	difficulty int
}

func NewEngine(oracle block.Oracle, difficulty int) *Engine {
	return &Engine{oracle: oracle, difficulty: difficulty}
}

func (e *Engine) Difficulty() int {
	return e.difficulty
}

func (e *Engine) Oracle() block.Oracle {
	return e.oracle
}

// IsValidChain validates a chain received from a peer. The first record must
// be the genesis anchor (index 0, hash "0"); genesis itself is not re-hashed.
func (e *Engine) IsValidChain(records []block.Record) bool {
	_, err := e.decodeValidChain(records)
	return err == nil
}

// ValidateChain is IsValidChain with the reason for rejection.
func (e *Engine) ValidateChain(records []block.Record) error {
	_, err := e.decodeValidChain(records)
	return err
}

func (e *Engine) decodeValidChain(records []block.Record) ([]*block.Block, error) {
	if len(records) == 0 {
		return nil, errors.New("empty chain")
	}
	if records[0].Index != 0 || records[0].Hash != block.GenesisHash {
		return nil, fmt.Errorf("first block is not genesis (index=%d hash=%q)", records[0].Index, records[0].Hash)
	}

	blocks := make([]*block.Block, len(records))
	for i, rec := range records {
		b, err := e.oracle.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		blocks[i] = b
	}

	for i := 1; i < len(blocks); i++ {
		prev, curr := blocks[i-1], blocks[i]
		if curr.Index != prev.Index+1 {
			return nil, fmt.Errorf("block %d: index gap after %d", curr.Index, prev.Index)
		}
		if curr.PrevHash != prev.Hash {
			return nil, fmt.Errorf("block %d: %w", curr.Index, ErrPrevHashMismatch)
		}
		if err := e.checkWork(curr); err != nil {
			return nil, fmt.Errorf("block %d: %w", curr.Index, err)
		}
	}
	return blocks, nil
}

func (e *Engine) checkWork(b *block.Block) error {
	if e.oracle.HashBlock(b) != b.Hash {
		return ErrHashMismatch
	}
	if !block.HasLeadingZeros(b.Hash, e.difficulty) {
		return ErrInsufficientWork
	}
	return nil
}

// ReplaceIfBetter applies the strict longest-chain rule. It returns a freshly
// decoded chain and true when records form a valid chain longer than local;
// otherwise local is returned untouched with false.
func (e *Engine) ReplaceIfBetter(local []*block.Block, records []block.Record) ([]*block.Block, bool) {
	if len(records) <= len(local) {
		return local, false
	}
	blocks, err := e.decodeValidChain(records)
	if err != nil {
		return local, false
	}
	return blocks, true
}

// MeetsDifficulty reports whether hash carries the engine's proof-of-work
// prefix.
func (e *Engine) MeetsDifficulty(hash string) bool {
	return block.HasLeadingZeros(hash, e.difficulty)
}

// CheckBlock decides whether b can be appended directly on top of tip.
func (e *Engine) CheckBlock(tip, b *block.Block) error {
	if b.PrevHash != tip.Hash {
		return ErrPrevHashMismatch
	}
	if b.Index != tip.Index+1 {
		return ErrIndexMismatch
	}
	if !e.MeetsDifficulty(b.Hash) {
		return ErrInsufficientWork
	}
	if e.oracle.HashBlock(b) != b.Hash {
		return ErrHashMismatch
	}
	return nil
}

// LinkageValid only checks that every block points at its predecessor.
func LinkageValid(chain []*block.Block) bool {
	for i := 1; i < len(chain); i++ {
		if chain[i].PrevHash != chain[i-1].Hash {
			return false
		}
	}
	return true
}
