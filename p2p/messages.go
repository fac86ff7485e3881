package p2p

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/jsonx"
	"github.com/mezonai/powchain/types"
)

// MessageType tags the payload carried in Message.Data.
type MessageType string

const (
	MessageBlock       MessageType = "block"
	MessageTransaction MessageType = "tx"
	MessageGetChain    MessageType = "get_chain"
	MessageChain       MessageType = "chain"
)

// DefaultMaxMessageBytes bounds a single inbound message.
const DefaultMaxMessageBytes = 8 << 20

var (
	ErrMissingData      = errors.New("message has no data")
	ErrUnknownType      = errors.New("unknown message type")
	ErrMalformedPayload = errors.New("malformed message payload")
)

// Message is the single JSON object exchanged per connection.
type Message struct {
	Type MessageType      `json:"type"`
	Data jsonx.RawMessage `json:"data,omitempty"`
}

func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	msg := &Message{Type: msgType}
	if data == nil {
		return msg, nil
	}
	raw, err := jsonx.Marshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s payload", msgType)
	}
	msg.Data = raw
	return msg, nil
}

func NewBlockMessage(b *block.Block) (*Message, error) {
	return NewMessage(MessageBlock, b.ToRecord())
}

func NewTransactionMessage(tx types.Transaction) (*Message, error) {
	return NewMessage(MessageTransaction, tx)
}

func NewGetChainMessage() *Message {
	return &Message{Type: MessageGetChain}
}

func NewChainMessage(records []block.Record) (*Message, error) {
	if records == nil {
		records = []block.Record{}
	}
	return NewMessage(MessageChain, records)
}

// ReadMessage decodes one message from r, reading at most maxBytes.
func ReadMessage(r io.Reader, maxBytes int64) (*Message, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMessageBytes
	}
	var msg Message
	if err := jsonx.NewDecoder(io.LimitReader(r, maxBytes)).Decode(&msg); err != nil {
		return nil, errors.Wrap(err, "decode message")
	}
	if msg.Type == "" {
		return nil, errors.Wrap(ErrMalformedPayload, "missing type")
	}
	return &msg, nil
}

// WriteMessage encodes msg as a single JSON object.
func WriteMessage(w io.Writer, msg *Message) error {
	data, err := jsonx.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "write message")
}

func (m *Message) hasData() bool {
	return len(m.Data) > 0 && string(m.Data) != "null"
}

// BlockRecord returns the block carried by a "block" message.
func (m *Message) BlockRecord() (block.Record, error) {
	var rec block.Record
	if !m.hasData() {
		return rec, ErrMissingData
	}
	if err := jsonx.Unmarshal(m.Data, &rec); err != nil {
		return rec, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	if err := rec.Validate(); err != nil {
		return rec, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	return rec, nil
}

// Transaction returns the transaction carried by a "tx" message. All three
// fields must be present.
func (m *Message) Transaction() (types.Transaction, error) {
	if !m.hasData() {
		return types.Transaction{}, ErrMissingData
	}
	tx, err := types.ParseTransaction(m.Data)
	if err != nil {
		return types.Transaction{}, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	return tx, nil
}

// ChainRecords returns the chain carried by a "chain" message.
func (m *Message) ChainRecords() ([]block.Record, error) {
	if !m.hasData() {
		return nil, ErrMissingData
	}
	var records []block.Record
	if err := jsonx.Unmarshal(m.Data, &records); err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	return records, nil
}
