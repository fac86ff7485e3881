package events

import (
	"fmt"
	"time"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/types"
)

// EventType is an enum-like string type for chain state changes
type EventType string

const (
	EventBlockMined          EventType = "BlockMined"
	EventBlockAccepted       EventType = "BlockAccepted"
	EventChainReplaced       EventType = "ChainReplaced"
	EventTransactionReceived EventType = "TransactionReceived"
)

// BlockchainEvent represents any state change of the local chain or pool
type BlockchainEvent interface {
	Type() EventType
	Timestamp() time.Time
	Summary() string
}

// BlockEvent is emitted when a block is appended, locally mined or received.
type BlockEvent struct {
	eventType EventType
	block     *block.Block
	source    string
	timestamp time.Time
}

func NewBlockMined(b *block.Block) *BlockEvent {
	return &BlockEvent{eventType: EventBlockMined, block: b, source: "local", timestamp: time.Now()}
}

func NewBlockAccepted(b *block.Block, source string) *BlockEvent {
	return &BlockEvent{eventType: EventBlockAccepted, block: b, source: source, timestamp: time.Now()}
}

func (e *BlockEvent) Type() EventType {
	return e.eventType
}

func (e *BlockEvent) Timestamp() time.Time {
	return e.timestamp
}

func (e *BlockEvent) Block() *block.Block {
	return e.block
}

func (e *BlockEvent) Source() string {
	return e.source
}

func (e *BlockEvent) Summary() string {
	return fmt.Sprintf("index=%d hash=%s source=%s", e.block.Index, e.block.ShortHash(), e.source)
}

// ChainReplaced is emitted when a longer valid peer chain replaced ours.
type ChainReplaced struct {
	oldLength int
	newLength int
	tip       *block.Block
	source    string
	timestamp time.Time
}

func NewChainReplaced(oldLength, newLength int, tip *block.Block, source string) *ChainReplaced {
	return &ChainReplaced{
		oldLength: oldLength,
		newLength: newLength,
		tip:       tip,
		source:    source,
		timestamp: time.Now(),
	}
}

func (e *ChainReplaced) Type() EventType {
	return EventChainReplaced
}

func (e *ChainReplaced) Timestamp() time.Time {
	return e.timestamp
}

func (e *ChainReplaced) OldLength() int {
	return e.oldLength
}

func (e *ChainReplaced) NewLength() int {
	return e.newLength
}

func (e *ChainReplaced) Tip() *block.Block {
	return e.tip
}

func (e *ChainReplaced) Summary() string {
	return fmt.Sprintf("length %d -> %d tip=%s source=%s", e.oldLength, e.newLength, e.tip.ShortHash(), e.source)
}

// TransactionReceived is emitted when a transaction enters the pending pool.
type TransactionReceived struct {
	tx        types.Transaction
	source    string
	timestamp time.Time
}

func NewTransactionReceived(tx types.Transaction, source string) *TransactionReceived {
	return &TransactionReceived{tx: tx, source: source, timestamp: time.Now()}
}

func (e *TransactionReceived) Type() EventType {
	return EventTransactionReceived
}

func (e *TransactionReceived) Timestamp() time.Time {
	return e.timestamp
}

func (e *TransactionReceived) Transaction() types.Transaction {
	return e.tx
}

func (e *TransactionReceived) Summary() string {
	return fmt.Sprintf("tx=%s source=%s", e.tx, e.source)
}
