package p2p

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mezonai/powchain/exception"
	"github.com/mezonai/powchain/logx"
)

// ServerOptions tunes the sync server. Zero values pick defaults.
type ServerOptions struct {
	MaxMessageBytes int64
	// ReadTimeout bounds how long a peer may take to send its message.
	// Zero waits until the server stops.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Policy       AccessPolicy
}

// Server accepts one JSON message per TCP connection and dispatches it to a
// ChainHandler.
type Server struct {
	listenAddr string
	handler    ChainHandler
	opts       ServerOptions

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	cancel   context.CancelFunc
	stopped  bool
	wg       sync.WaitGroup
}

func NewServer(listenAddr string, handler ChainHandler, opts ServerOptions) *Server {
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultRequestTimeout
	}
	if opts.Policy == nil {
		opts.Policy = OpenPolicy{}
	}
	return &Server{
		listenAddr: listenAddr,
		handler:    handler,
		opts:       opts,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start binds the listen address and serves in the background until ctx is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("sync server already started")
	}
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.listenAddr)
	}
	ctx, cancel := context.WithCancel(ctx)
	s.listener = ln
	s.cancel = cancel

	s.wg.Add(1)
	exception.SafeGo("SyncServerAccept", func() {
		defer s.wg.Done()
		s.acceptLoop(ctx, ln)
	})
	exception.SafeGo("SyncServerShutdown", func() {
		<-ctx.Done()
		s.Stop()
	})

	logx.Info("SYNC", "Listening on ", ln.Addr().String())
	return nil
}

// Addr is the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || s.isStopped() {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			logx.Error("SYNC", "Accept failed:", err)
			return
		}

		host := RemoteHost(conn.RemoteAddr())
		if !s.opts.Policy.AllowConnection(host) {
			logx.Warn("SYNC", "Refusing connection from ", host)
			conn.Close()
			continue
		}
		if !s.track(conn) {
			conn.Close()
			return
		}

		s.wg.Add(1)
		exception.SafeGo("SyncServerConn", func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(ctx, conn, host)
		})
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Stop closes the listener and every open connection, then waits for the
// handlers to return. It is safe to call more than once.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped || s.listener == nil {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cancel()
	if err := s.listener.Close(); err != nil {
		logx.Warn("SYNC", "Closing listener:", err)
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	logx.Info("SYNC", "Sync server stopped")
}
