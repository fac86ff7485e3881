package block

import (
	"context"
	"fmt"

	"github.com/mezonai/powchain/types"
)

// nonces tried between two context checks while mining
const ctxCheckInterval = 4096

// Oracle builds, hashes and (de)serializes blocks.
type Oracle interface {
	// CreateBlock searches for a nonce whose hash meets difficulty.
	CreateBlock(ctx context.Context, txs []types.Transaction, prevHash, miner string, index uint64, reward float64, difficulty int) (*Block, error)
	CreateGenesisBlock() *Block
	FromRecord(rec Record) (*Block, error)
	HashBlock(b *Block) string
}

// PowOracle is the sha256 proof-of-work Oracle.
type PowOracle struct {
	now func() int64
}

func NewPowOracle() *PowOracle {
	return &PowOracle{now: nowNano}
}

func (o *PowOracle) CreateBlock(
	ctx context.Context,
	txs []types.Transaction,
	prevHash string,
	miner string,
	index uint64,
	reward float64,
	difficulty int,
) (*Block, error) {
	if difficulty < 0 {
		return nil, fmt.Errorf("negative difficulty %d", difficulty)
	}
	b := &Block{
		Index:        index,
		PrevHash:     prevHash,
		Transactions: types.CloneTransactions(txs),
		Miner:        miner,
		Reward:       reward,
		Difficulty:   difficulty,
		Timestamp:    o.now(),
	}
	for nonce := uint64(0); ; nonce++ {
		if nonce%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("mining block %d: %w", index, err)
			}
		}
		b.Nonce = nonce
		hash := b.computeHash()
		if HasLeadingZeros(hash, difficulty) {
			b.Hash = hash
			return b, nil
		}
	}
}

// CreateGenesisBlock returns the fixed index-0 block shared by every node.
func (o *PowOracle) CreateGenesisBlock() *Block {
	return &Block{
		Index:        0,
		Hash:         GenesisHash,
		PrevHash:     GenesisPrevHash,
		Transactions: []types.Transaction{},
		Miner:        GenesisMiner,
	}
}

func (o *PowOracle) FromRecord(rec Record) (*Block, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid block record: %w", err)
	}
	return &Block{
		Index:        uint64(rec.Index),
		Hash:         rec.Hash,
		PrevHash:     rec.PrevHash,
		Transactions: types.CloneTransactions(rec.Transactions),
		Miner:        rec.Miner,
		Reward:       rec.Reward,
		Difficulty:   rec.Difficulty,
		Nonce:        rec.Nonce,
		Timestamp:    rec.Timestamp,
	}, nil
}

func (o *PowOracle) HashBlock(b *Block) string {
	return b.computeHash()
}
