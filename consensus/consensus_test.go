package consensus

import (
	"context"
	"testing"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDifficulty = 2

// buildChain mines n blocks on top of genesis; miner differentiates forks.
func buildChain(t *testing.T, o block.Oracle, n int, miner string) []*block.Block {
	t.Helper()
	chain := []*block.Block{o.CreateGenesisBlock()}
	for i := 0; i < n; i++ {
		tip := chain[len(chain)-1]
		b, err := o.CreateBlock(context.Background(),
			[]types.Transaction{types.NewTransaction(miner, "bob", float64(i+1))},
			tip.Hash, miner, tip.Index+1, 50, testDifficulty)
		require.NoError(t, err)
		chain = append(chain, b)
	}
	return chain
}

func newTestEngine() (*Engine, block.Oracle) {
	o := block.NewPowOracle()
	return NewEngine(o, testDifficulty), o
}

func TestIsValidChainAcceptsMinedChain(t *testing.T) {
	e, o := newTestEngine()
	chain := buildChain(t, o, 3, "alice")

	assert.True(t, e.IsValidChain(block.ToRecords(chain)))
	assert.True(t, LinkageValid(chain))
}

func TestIsValidChainRejects(t *testing.T) {
	e, o := newTestEngine()
	chain := buildChain(t, o, 3, "alice")

	tests := []struct {
		name   string
		mutate func(records []block.Record) []block.Record
	}{
		{
			name:   "empty chain",
			mutate: func(records []block.Record) []block.Record { return nil },
		},
		{
			name: "genesis hash is not the anchor",
			mutate: func(records []block.Record) []block.Record {
				records[0].Hash = "1"
				return records
			},
		},
		{
			name: "first index is not zero",
			mutate: func(records []block.Record) []block.Record {
				return records[1:]
			},
		},
		{
			name: "index gap",
			mutate: func(records []block.Record) []block.Record {
				return []block.Record{records[0], records[1], records[3]}
			},
		},
		{
			name: "broken linkage",
			mutate: func(records []block.Record) []block.Record {
				records[2].PrevHash = records[0].Hash
				return records
			},
		},
		{
			name: "stored hash differs from recomputed",
			mutate: func(records []block.Record) []block.Record {
				records[2].Transactions[0].Amount = 1000
				return records
			},
		},
		{
			name: "malformed record",
			mutate: func(records []block.Record) []block.Record {
				records[1].PrevHash = ""
				return records
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := tt.mutate(block.ToRecords(chain))
			assert.False(t, e.IsValidChain(records))
			assert.Error(t, e.ValidateChain(records))
		})
	}
}

func TestIsValidChainRejectsWrongGenesisEvenIfConsistent(t *testing.T) {
	e, o := newTestEngine()
	chain := buildChain(t, o, 2, "alice")
	records := block.ToRecords(chain)
	records[0].Hash = "ff"
	// relink so the rest of the chain is internally consistent
	next, err := o.CreateBlock(context.Background(), nil, "ff", "alice", 1, 50, testDifficulty)
	require.NoError(t, err)
	records = []block.Record{records[0], next.ToRecord()}

	assert.False(t, e.IsValidChain(records))
}

func TestIsValidChainIgnoresGenesisPrevHash(t *testing.T) {
	e, o := newTestEngine()
	chain := buildChain(t, o, 2, "alice")

	for _, prev := range []string{"", "anything"} {
		records := block.ToRecords(chain)
		records[0].PrevHash = prev
		assert.True(t, e.IsValidChain(records), "genesis prev_hash %q", prev)

		local := buildChain(t, o, 0, "bob")
		adopted, replaced := e.ReplaceIfBetter(local, records)
		require.True(t, replaced)
		assert.Len(t, adopted, 3)
	}
}

func TestIsValidChainRejectsInsufficientWork(t *testing.T) {
	o := block.NewPowOracle()
	chain := buildChain(t, o, 2, "alice")

	// no sha256 hex digest has 64 leading zeros
	strict := NewEngine(o, 64)
	assert.False(t, strict.IsValidChain(block.ToRecords(chain)))
}

func TestIsValidChainGenesisOnly(t *testing.T) {
	e, o := newTestEngine()
	assert.True(t, e.IsValidChain([]block.Record{o.CreateGenesisBlock().ToRecord()}))
}

func TestReplaceIfBetterKeepsLocalOnTie(t *testing.T) {
	e, o := newTestEngine()
	local := buildChain(t, o, 2, "alice")
	candidate := buildChain(t, o, 2, "carol")
	before := block.ToRecords(local)

	got, replaced := e.ReplaceIfBetter(local, block.ToRecords(candidate))

	assert.False(t, replaced)
	assert.Equal(t, before, block.ToRecords(local))
	assert.Equal(t, before, block.ToRecords(got))
}

func TestReplaceIfBetterKeepsLocalWhenShorter(t *testing.T) {
	e, o := newTestEngine()
	local := buildChain(t, o, 3, "alice")
	candidate := buildChain(t, o, 1, "carol")

	got, replaced := e.ReplaceIfBetter(local, block.ToRecords(candidate))

	assert.False(t, replaced)
	assert.Len(t, got, 4)
}

func TestReplaceIfBetterRejectsInvalidLonger(t *testing.T) {
	e, o := newTestEngine()
	local := buildChain(t, o, 1, "alice")
	records := block.ToRecords(buildChain(t, o, 4, "carol"))
	records[3].Hash = records[2].Hash

	got, replaced := e.ReplaceIfBetter(local, records)

	assert.False(t, replaced)
	assert.Len(t, got, 2)
}

func TestReplaceIfBetterAdoptsLongerValidChain(t *testing.T) {
	e, o := newTestEngine()
	local := buildChain(t, o, 1, "alice")
	candidate := buildChain(t, o, 2, "carol")
	records := block.ToRecords(candidate)

	got, replaced := e.ReplaceIfBetter(local, records)

	require.True(t, replaced)
	require.Len(t, got, 3)
	assert.Equal(t, records, block.ToRecords(got))
	for i := range got {
		assert.NotSame(t, candidate[i], got[i])
	}
}

func TestCheckBlock(t *testing.T) {
	e, o := newTestEngine()
	chain := buildChain(t, o, 2, "alice")
	tip := chain[1]

	assert.NoError(t, e.CheckBlock(tip, chain[2]))

	t.Run("prev hash mismatch", func(t *testing.T) {
		assert.ErrorIs(t, e.CheckBlock(chain[0], chain[2]), ErrPrevHashMismatch)
	})

	t.Run("tampered hash", func(t *testing.T) {
		tampered := *chain[2]
		tampered.Miner = "mallory"
		assert.ErrorIs(t, e.CheckBlock(tip, &tampered), ErrHashMismatch)
	})

	t.Run("insufficient work", func(t *testing.T) {
		weak, err := o.CreateBlock(context.Background(), nil, tip.Hash, "alice", tip.Index+1, 50, 0)
		require.NoError(t, err)
		if block.HasLeadingZeros(weak.Hash, testDifficulty) {
			t.Skip("zero-difficulty block happened to meet difficulty")
		}
		assert.ErrorIs(t, e.CheckBlock(tip, weak), ErrInsufficientWork)
	})

	t.Run("index does not follow tip", func(t *testing.T) {
		skipped, err := o.CreateBlock(context.Background(), nil, tip.Hash, "alice", tip.Index+5, 50, testDifficulty)
		require.NoError(t, err)
		assert.ErrorIs(t, e.CheckBlock(tip, skipped), ErrIndexMismatch)
	})
}

func TestMeetsDifficulty(t *testing.T) {
	e, _ := newTestEngine()
	assert.True(t, e.MeetsDifficulty("00ff"))
	assert.False(t, e.MeetsDifficulty("0fff"))
}
