package block

import (
	"fmt"

	"github.com/mezonai/powchain/types"
)

// Record is the transport form of a Block, used on the wire and on disk.
type Record struct {
	Index        int64               `json:"index"`
	Hash         string              `json:"hash"`
	PrevHash     string              `json:"prev_hash"`
	Transactions []types.Transaction `json:"transactions"`
	Miner        string              `json:"miner"`
	Reward       float64             `json:"reward"`
	Difficulty   int                 `json:"difficulty"`
	Nonce        uint64              `json:"nonce"`
	Timestamp    int64               `json:"timestamp"`
}

func (b *Block) ToRecord() Record {
	return Record{
		Index:        int64(b.Index),
		Hash:         b.Hash,
		PrevHash:     b.PrevHash,
		Transactions: types.CloneTransactions(b.Transactions),
		Miner:        b.Miner,
		Reward:       b.Reward,
		Difficulty:   b.Difficulty,
		Nonce:        b.Nonce,
		Timestamp:    b.Timestamp,
	}
}

// Validate checks the fields every record must carry. The genesis record is
// anchored by its index and hash alone, so its prev_hash may be empty.
func (r Record) Validate() error {
	if r.Index < 0 {
		return fmt.Errorf("negative index %d", r.Index)
	}
	if r.Hash == "" {
		return fmt.Errorf("block %d: missing hash", r.Index)
	}
	if r.Index > 0 && r.PrevHash == "" {
		return fmt.Errorf("block %d: missing prev_hash", r.Index)
	}
	if r.Difficulty < 0 {
		return fmt.Errorf("block %d: negative difficulty %d", r.Index, r.Difficulty)
	}
	return nil
}

// ToRecords converts a chain into its transport form.
func ToRecords(chain []*Block) []Record {
	records := make([]Record, len(chain))
	for i, b := range chain {
		records[i] = b.ToRecord()
	}
	return records
}
