package p2p

import (
	"context"
	"net"
	"time"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/logx"
	"github.com/mezonai/powchain/monitoring"
	"github.com/mezonai/powchain/types"
)

// ChainHandler applies inbound protocol messages to node state. from is the
// sender's host without a port.
type ChainHandler interface {
	HandleBlock(ctx context.Context, rec block.Record, from string)
	HandleTransaction(ctx context.Context, tx types.Transaction, from string)
	HandleChain(ctx context.Context, records []block.Record, from string)
	ChainRecords() []block.Record
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn, host string) {
	if s.opts.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	}
	msg, err := ReadMessage(conn, s.opts.MaxMessageBytes)
	if err != nil {
		monitoring.RecordInboundMessage("malformed")
		logx.Warn("SYNC", "Dropping unreadable message from ", host, ": ", err)
		s.opts.Policy.ReportMisbehavior(host, err.Error())
		return
	}

	if !s.opts.Policy.AllowMessage(host, msg.Type) {
		monitoring.RecordInboundMessage("rejected")
		logx.Warn("SYNC", "Rate limited ", msg.Type, " from ", host)
		return
	}

	switch msg.Type {
	case MessageBlock:
		monitoring.RecordInboundMessage(string(msg.Type))
		rec, err := msg.BlockRecord()
		if err != nil {
			logx.Warn("SYNC", "Bad block from ", host, ": ", err)
			s.opts.Policy.ReportMisbehavior(host, err.Error())
			return
		}
		s.handler.HandleBlock(ctx, rec, host)

	case MessageTransaction:
		monitoring.RecordInboundMessage(string(msg.Type))
		tx, err := msg.Transaction()
		if err != nil {
			logx.Warn("SYNC", "Bad transaction from ", host, ": ", err)
			s.opts.Policy.ReportMisbehavior(host, err.Error())
			return
		}
		s.handler.HandleTransaction(ctx, tx, host)

	case MessageGetChain:
		monitoring.RecordInboundMessage(string(msg.Type))
		s.replyChain(conn, host)

	case MessageChain:
		monitoring.RecordInboundMessage(string(msg.Type))
		records, err := msg.ChainRecords()
		if err != nil {
			logx.Warn("SYNC", "Bad chain from ", host, ": ", err)
			s.opts.Policy.ReportMisbehavior(host, err.Error())
			return
		}
		s.handler.HandleChain(ctx, records, host)

	default:
		monitoring.RecordInboundMessage("unknown")
		logx.Warn("SYNC", "Ignoring unknown message type ", msg.Type, " from ", host)
	}
}

func (s *Server) replyChain(conn net.Conn, host string) {
	reply, err := NewChainMessage(s.handler.ChainRecords())
	if err != nil {
		logx.Error("SYNC", "Failed to encode chain:", err)
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	if err := WriteMessage(conn, reply); err != nil {
		logx.Warn("SYNC", "Failed to send chain to ", host, ": ", err)
	}
}
