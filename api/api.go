package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/chain"
	apierrors "github.com/mezonai/powchain/errors"
	"github.com/mezonai/powchain/exception"
	"github.com/mezonai/powchain/jsonx"
	"github.com/mezonai/powchain/logx"
	"github.com/mezonai/powchain/monitoring"
	"github.com/mezonai/powchain/types"
)

const maxRequestBodyBytes = 1 << 20

// NodeService is the part of the node the API drives.
type NodeService interface {
	SubmitTransaction(ctx context.Context, tx types.Transaction)
	Mine(ctx context.Context) (*block.Block, error)
	Balance(accountID string) float64
	Blocks() []*block.Block
	Pending() []types.Transaction
}

type BalanceResponse struct {
	Account string  `json:"account"`
	Balance float64 `json:"balance"`
}

type APIServer struct {
	Node       NodeService
	ListenAddr string

	// one mining request at a time; a second would only race for the same tip
	mineMu sync.Mutex

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

func NewAPIServer(node NodeService, addr string) *APIServer {
	return &APIServer{
		Node:       node,
		ListenAddr: addr,
	}
}

// Handler returns the API routes, including /metrics.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/txs", s.handleTxs)
	mux.HandleFunc("/mine", s.handleMine)
	mux.HandleFunc("/balance", s.handleBalance)
	mux.HandleFunc("/chain", s.handleChain)
	mux.HandleFunc("/pending", s.handlePending)
	monitoring.RegisterMetrics(mux)
	return mux
}

// Start binds ListenAddr and serves in the background.
func (s *APIServer) Start() error {
	ln, err := net.Listen("tcp", s.ListenAddr)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.ListenAddr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	exception.SafeGo("APIServer", func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error("API", "Server stopped:", err)
		}
	})
	logx.Info("API", "API listen on ", ln.Addr().String())
	return nil
}

// Addr is the bound address, or "" before Start.
func (s *APIServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *APIServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *APIServer) handleTxs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, apierrors.ErrCodeMethodNotAllowed, apierrors.ErrMsgMethodNotAllowed)
		return
	}
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidRequest, apierrors.ErrMsgInvalidRequest)
		return
	}

	tx, err := types.ParseTransaction(body)
	if err != nil {
		logx.Warn("API", "Rejected transaction: ", err)
		writeError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidTransaction, apierrors.ErrMsgInvalidTransaction)
		return
	}

	s.Node.SubmitTransaction(r.Context(), tx)
	writeJSON(w, http.StatusAccepted, tx)
}

func (s *APIServer) handleMine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, apierrors.ErrCodeMethodNotAllowed, apierrors.ErrMsgMethodNotAllowed)
		return
	}

	s.mineMu.Lock()
	b, err := s.Node.Mine(r.Context())
	s.mineMu.Unlock()

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, b.ToRecord())
	case errors.Is(err, chain.ErrStaleTip):
		writeError(w, http.StatusConflict, apierrors.ErrCodeStaleTip, apierrors.ErrMsgStaleTip)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, apierrors.ErrCodeMiningAborted, apierrors.ErrMsgMiningAborted)
	default:
		logx.Error("API", "Mining failed:", err)
		writeError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, apierrors.ErrMsgInternal)
	}
}

func (s *APIServer) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, apierrors.ErrCodeMethodNotAllowed, apierrors.ErrMsgMethodNotAllowed)
		return
	}
	account := r.URL.Query().Get("account")
	if account == "" {
		writeError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidAccount, apierrors.ErrMsgInvalidAccount)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Account: account, Balance: s.Node.Balance(account)})
}

func (s *APIServer) handleChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, apierrors.ErrCodeMethodNotAllowed, apierrors.ErrMsgMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, block.ToRecords(s.Node.Blocks()))
}

func (s *APIServer) handlePending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, apierrors.ErrCodeMethodNotAllowed, apierrors.ErrMsgMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.Node.Pending())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonx.NewEncoder(w).Encode(v); err != nil {
		logx.Warn("API", "Failed to write response:", err)
	}
}

func writeError(w http.ResponseWriter, status int, code apierrors.NetworkErrorCode, message string) {
	writeJSON(w, status, apierrors.NetworkError{Code: code, Message: message})
}
