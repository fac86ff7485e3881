package mempool

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mezonai/powchain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddIfAbsentSuppressesDuplicates(t *testing.T) {
	mp := NewMempool()
	tx := types.NewTransaction("alice", "bob", 10)

	assert.True(t, mp.AddIfAbsent(tx))
	assert.False(t, mp.AddIfAbsent(types.NewTransaction("alice", "bob", 10)))
	assert.Equal(t, 1, mp.Len())

	// differs in amount only
	assert.True(t, mp.AddIfAbsent(types.NewTransaction("alice", "bob", 11)))
	assert.Equal(t, 2, mp.Len())
}

func TestAddKeepsDuplicates(t *testing.T) {
	mp := NewMempool()
	tx := types.NewTransaction("alice", "bob", 1)

	mp.Add(tx)
	mp.Add(tx)

	assert.Equal(t, 2, mp.Len())
	assert.True(t, mp.Contains(tx))
}

func TestGetBatchDoesNotRemove(t *testing.T) {
	mp := NewMempool()
	for i := 0; i < 5; i++ {
		mp.Add(types.NewTransaction("a", "b", float64(i)))
	}

	batch := mp.GetBatch(3)
	require.Len(t, batch, 3)
	assert.Equal(t, 0.0, batch[0].Amount)
	assert.Equal(t, 5, mp.Len())

	assert.Len(t, mp.GetBatch(0), 5)
	assert.Len(t, mp.GetBatch(100), 5)
}

func TestRemoveBatch(t *testing.T) {
	mp := NewMempool()
	dup := types.NewTransaction("a", "b", 1)
	mp.Add(dup)
	mp.Add(dup)
	mp.Add(types.NewTransaction("a", "b", 2))

	mp.RemoveBatch(1)
	assert.Equal(t, 2, mp.Len())
	assert.True(t, mp.Contains(dup), "second copy still pending")

	mp.RemoveBatch(10)
	assert.Equal(t, 0, mp.Len())
	assert.False(t, mp.Contains(dup))
	assert.True(t, mp.AddIfAbsent(dup))
}

func TestRemoveBatchKeepsLaterAdds(t *testing.T) {
	mp := NewMempool()
	mp.Add(types.NewTransaction("a", "b", 1))
	snapshot := mp.GetBatch(0)
	mp.Add(types.NewTransaction("a", "b", 2))

	mp.RemoveBatch(len(snapshot))

	remaining := mp.GetBatch(0)
	require.Len(t, remaining, 1)
	assert.Equal(t, 2.0, remaining[0].Amount)
}

func TestClear(t *testing.T) {
	mp := NewMempool()
	mp.Add(types.NewTransaction("a", "b", 1))
	mp.Clear()
	assert.Equal(t, 0, mp.Len())
	assert.True(t, mp.AddIfAbsent(types.NewTransaction("a", "b", 1)))
}

func TestConcurrentAddIfAbsent(t *testing.T) {
	mp := NewMempool()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mp.AddIfAbsent(types.NewTransaction(fmt.Sprintf("sender-%d", i%10), "bob", 1))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, mp.Len())
}
