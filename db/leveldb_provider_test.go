package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelDBProviderGetPut(t *testing.T) {
	p, err := NewMemLevelDBProvider()
	require.NoError(t, err)
	defer p.Close()

	v, err := p.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, p.Put([]byte("k"), []byte("v")))
	v, err = p.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	ok, err := p.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLevelDBBatchAndIteratePrefix(t *testing.T) {
	p, err := NewLevelDBProvider(t.TempDir())
	require.NoError(t, err)
	defer p.Close()

	batch := p.Batch()
	batch.Put([]byte("a:1"), []byte("one"))
	batch.Put([]byte("a:2"), []byte("two"))
	batch.Put([]byte("b:1"), []byte("other"))
	require.NoError(t, batch.Write())

	var keys []string
	err = p.IteratePrefix([]byte("a:"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "a:2"}, keys)

	batch.Reset()
	batch.Delete([]byte("a:1"))
	require.NoError(t, batch.Write())
	v, err := p.Get([]byte("a:1"))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestLevelDBProviderDoubleClose(t *testing.T) {
	p, err := NewMemLevelDBProvider()
	require.NoError(t, err)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}
