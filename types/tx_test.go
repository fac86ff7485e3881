package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionEqual(t *testing.T) {
	a := NewTransaction("alice", "bob", 1)
	assert.True(t, a.Equal(NewTransaction("alice", "bob", 1)))
	assert.False(t, a.Equal(NewTransaction("alice", "bob", 2)))
	assert.False(t, a.Equal(NewTransaction("bob", "alice", 1)))
	assert.Equal(t, a.Hash(), NewTransaction("alice", "bob", 1).Hash())
}

func TestParseTransaction(t *testing.T) {
	tx, err := ParseTransaction([]byte(`{"from":"","to":"b","amount":-4}`))
	require.NoError(t, err)
	assert.Equal(t, NewTransaction("", "b", -4), tx)

	_, err = ParseTransaction([]byte(`{"from":"a","to":"b"}`))
	assert.ErrorIs(t, err, ErrIncompleteTransaction)

	_, err = ParseTransaction([]byte(`{"from":"a",`))
	assert.Error(t, err)
}

func TestCloneTransactionsNeverNil(t *testing.T) {
	assert.NotNil(t, CloneTransactions(nil))

	src := []Transaction{NewTransaction("a", "b", 1)}
	cp := CloneTransactions(src)
	src[0].Amount = 5
	assert.Equal(t, 1.0, cp[0].Amount)
}

func TestParseTransactionDropsUnknownKeys(t *testing.T) {
	plain, err := ParseTransaction([]byte(`{"from":"a","to":"b","amount":1}`))
	require.NoError(t, err)
	withMemo, err := ParseTransaction([]byte(`{"from":"a","to":"b","amount":1,"memo":"rent"}`))
	require.NoError(t, err)

	assert.True(t, plain.Equal(withMemo))
	assert.Equal(t, plain.Hash(), withMemo.Hash())
	assert.JSONEq(t, `{"from":"a","to":"b","amount":1}`, string(withMemo.Bytes()))
}
