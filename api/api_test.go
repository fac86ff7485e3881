package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/chain"
	apierrors "github.com/mezonai/powchain/errors"
	"github.com/mezonai/powchain/jsonx"
	"github.com/mezonai/powchain/types"
)

type fakeNode struct {
	mu      sync.Mutex
	oracle  block.Oracle
	chain   []*block.Block
	pending []types.Transaction
	mineErr error
}

func newFakeNode() *fakeNode {
	o := block.NewPowOracle()
	return &fakeNode{oracle: o, chain: []*block.Block{o.CreateGenesisBlock()}}
}

func (f *fakeNode) SubmitTransaction(_ context.Context, tx types.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, tx)
}

func (f *fakeNode) Mine(ctx context.Context) (*block.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mineErr != nil {
		return nil, f.mineErr
	}
	tip := f.chain[len(f.chain)-1]
	b, err := f.oracle.CreateBlock(ctx, f.pending, tip.Hash, "api-test", tip.Index+1, 50, 1)
	if err != nil {
		return nil, err
	}
	f.chain = append(f.chain, b)
	f.pending = nil
	return b, nil
}

func (f *fakeNode) Balance(accountID string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return chain.Balance(accountID, f.chain)
}

func (f *fakeNode) Blocks() []*block.Block {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*block.Block(nil), f.chain...)
}

func (f *fakeNode) Pending() []types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.CloneTransactions(f.pending)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apierrors.NetworkError {
	t.Helper()
	var ne apierrors.NetworkError
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &ne))
	return ne
}

func TestSubmitMineAndQuery(t *testing.T) {
	node := newFakeNode()
	h := NewAPIServer(node, "").Handler()

	rec := do(t, h, http.MethodPost, "/txs", `{"from":"alice","to":"bob","amount":7}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, h, http.MethodGet, "/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []types.Transaction
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &pending))
	assert.Equal(t, []types.Transaction{types.NewTransaction("alice", "bob", 7)}, pending)

	rec = do(t, h, http.MethodPost, "/mine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mined block.Record
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &mined))
	assert.Equal(t, int64(1), mined.Index)
	assert.Len(t, mined.Transactions, 1)

	rec = do(t, h, http.MethodGet, "/balance?account=bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bal BalanceResponse
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, BalanceResponse{Account: "bob", Balance: 7}, bal)

	rec = do(t, h, http.MethodGet, "/chain", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []block.Record
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 2)
	assert.Equal(t, block.GenesisHash, records[0].Hash)
}

func TestSubmitTransactionRejectsBadInput(t *testing.T) {
	h := NewAPIServer(newFakeNode(), "").Handler()

	tests := []struct {
		name string
		body string
		code apierrors.NetworkErrorCode
	}{
		{name: "empty body", body: "", code: apierrors.ErrCodeInvalidRequest},
		{name: "not json", body: "amount=1", code: apierrors.ErrCodeInvalidTransaction},
		{name: "missing field", body: `{"from":"a","amount":1}`, code: apierrors.ErrCodeInvalidTransaction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/txs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewAPIServer(newFakeNode(), "").Handler()
	for _, target := range []string{"/txs", "/mine"} {
		rec := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, target)
	}
	rec := do(t, h, http.MethodPost, "/chain", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBalanceRequiresAccount(t *testing.T) {
	h := NewAPIServer(newFakeNode(), "").Handler()
	rec := do(t, h, http.MethodGet, "/balance", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.ErrCodeInvalidAccount, decodeError(t, rec).Code)
}

func TestMineStaleTip(t *testing.T) {
	node := newFakeNode()
	node.mineErr = chain.ErrStaleTip
	h := NewAPIServer(node, "").Handler()

	rec := do(t, h, http.MethodPost, "/mine", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierrors.ErrCodeStaleTip, decodeError(t, rec).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewAPIServer(newFakeNode(), "").Handler()
	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartAndStop(t *testing.T) {
	s := NewAPIServer(newFakeNode(), "127.0.0.1:0")
	require.NoError(t, s.Start())

	resp, err := http.Get("http://" + s.Addr() + "/chain")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
}
