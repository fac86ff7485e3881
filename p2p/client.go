package p2p

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/mezonai/powchain/block"
)

const (
	DefaultDialTimeout    = 5 * time.Second
	DefaultRequestTimeout = 5 * time.Second
)

// Client opens one short-lived connection per message.
type Client struct {
	DialTimeout     time.Duration
	RequestTimeout  time.Duration
	MaxMessageBytes int64
}

func NewClient(dialTimeout, requestTimeout time.Duration, maxMessageBytes int64) *Client {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	if maxMessageBytes <= 0 {
		maxMessageBytes = DefaultMaxMessageBytes
	}
	return &Client{
		DialTimeout:     dialTimeout,
		RequestTimeout:  requestTimeout,
		MaxMessageBytes: maxMessageBytes,
	}
}

func (c *Client) dial(ctx context.Context, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	deadline := time.Now().Add(c.RequestTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "set deadline")
	}
	return conn, nil
}

// Send delivers msg to addr and closes the connection.
func (c *Client) Send(ctx context.Context, addr string, msg *Message) error {
	conn, err := c.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return errors.Wrapf(WriteMessage(conn, msg), "send %s to %s", msg.Type, addr)
}

// RequestChain asks addr for its chain and reads the reply on the same
// connection.
func (c *Client) RequestChain(ctx context.Context, addr string) ([]block.Record, error) {
	conn, err := c.dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := WriteMessage(conn, NewGetChainMessage()); err != nil {
		return nil, errors.Wrapf(err, "request chain from %s", addr)
	}
	reply, err := ReadMessage(conn, c.MaxMessageBytes)
	if err != nil {
		return nil, errors.Wrapf(err, "read chain from %s", addr)
	}
	if reply.Type != MessageChain {
		return nil, errors.Errorf("unexpected reply %q from %s", reply.Type, addr)
	}
	return reply.ChainRecords()
}
