package block

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mezonai/powchain/jsonx"
	"github.com/mezonai/powchain/types"
)

const (
	// GenesisHash anchors every chain: a peer chain is only accepted when its
	// first block carries this hash.
	GenesisHash     = "0"
	GenesisPrevHash = "0"
	GenesisMiner    = "genesis"
)

// Block is one ledger step. It is never modified after creation.
type Block struct {
	Index        uint64
	Hash         string
	PrevHash     string
	Transactions []types.Transaction
	Miner        string
	Reward       float64
	Difficulty   int
	Nonce        uint64
	Timestamp    int64 // unix nanoseconds
}

// hashPayload is every hashed field of a Block, in a fixed order.
type hashPayload struct {
	Index        uint64              `json:"index"`
	PrevHash     string              `json:"prev_hash"`
	Transactions []types.Transaction `json:"transactions"`
	Miner        string              `json:"miner"`
	Reward       float64             `json:"reward"`
	Difficulty   int                 `json:"difficulty"`
	Nonce        uint64              `json:"nonce"`
	Timestamp    int64               `json:"timestamp"`
}

func (b *Block) payload() hashPayload {
	txs := b.Transactions
	if txs == nil {
		txs = []types.Transaction{}
	}
	return hashPayload{
		Index:        b.Index,
		PrevHash:     b.PrevHash,
		Transactions: txs,
		Miner:        b.Miner,
		Reward:       b.Reward,
		Difficulty:   b.Difficulty,
		Nonce:        b.Nonce,
		Timestamp:    b.Timestamp,
	}
}

// computeHash returns the hex sha256 of the canonical JSON payload.
func (b *Block) computeHash() string {
	data, err := jsonx.Marshal(b.payload())
	if err != nil {
		// NaN or Inf amounts cannot be encoded
		data = []byte(fmt.Sprintf("%+v", b.payload()))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (b *Block) IsGenesis() bool {
	return b.Index == 0
}

// ShortHash is the first ten characters of the hash, for logs.
func (b *Block) ShortHash() string {
	if len(b.Hash) <= 10 {
		return b.Hash
	}
	return b.Hash[:10]
}

func (b *Block) String() string {
	return fmt.Sprintf("Index: %d, Hash: %s..., Tx: %d", b.Index, b.ShortHash(), len(b.Transactions))
}

// HasLeadingZeros reports whether hash starts with difficulty '0' characters.
func HasLeadingZeros(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	return strings.HasPrefix(hash, strings.Repeat("0", difficulty))
}

func nowNano() int64 {
	return time.Now().UnixNano()
}
