package events

import (
	"testing"
	"time"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/types"
)

func TestEventBus(t *testing.T) {
	eventBus := NewEventBus()

	id, eventChan := eventBus.Subscribe()
	if count := eventBus.GetTotalSubscriptions(); count != 1 {
		t.Errorf("Expected 1 subscriber, got %d", count)
	}
	if !eventBus.HasSubscriber(id) {
		t.Errorf("Expected subscriber %s to exist", id)
	}

	b := block.NewPowOracle().CreateGenesisBlock()
	eventBus.Publish(NewBlockAccepted(b, "10.0.0.2:5000"))

	select {
	case received := <-eventChan:
		if received.Type() != EventBlockAccepted {
			t.Errorf("Expected %s, got %s", EventBlockAccepted, received.Type())
		}
		blockEvent, ok := received.(*BlockEvent)
		if !ok {
			t.Fatalf("Expected *BlockEvent, got %T", received)
		}
		if blockEvent.Block() != b {
			t.Errorf("Expected the published block")
		}
	case <-time.After(1 * time.Second):
		t.Error("Timeout waiting for event")
	}

	if !eventBus.Unsubscribe(id) {
		t.Errorf("Expected unsubscribe to succeed")
	}
	if count := eventBus.GetTotalSubscriptions(); count != 0 {
		t.Errorf("Expected 0 subscribers after unsubscribe, got %d", count)
	}
	if _, open := <-eventChan; open {
		t.Errorf("Expected channel to be closed after unsubscribe")
	}
	if eventBus.Unsubscribe(id) {
		t.Errorf("Expected second unsubscribe to fail")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	eventBus := NewEventBus()
	_, ch1 := eventBus.Subscribe()
	_, ch2 := eventBus.Subscribe()

	tx := types.NewTransaction("alice", "bob", 5)
	eventBus.Publish(NewTransactionReceived(tx, "local"))

	for i, ch := range []<-chan BlockchainEvent{ch1, ch2} {
		select {
		case received := <-ch:
			txEvent, ok := received.(*TransactionReceived)
			if !ok {
				t.Fatalf("subscriber %d: expected *TransactionReceived, got %T", i, received)
			}
			if !txEvent.Transaction().Equal(tx) {
				t.Errorf("subscriber %d: unexpected transaction %s", i, txEvent.Transaction())
			}
		case <-time.After(1 * time.Second):
			t.Errorf("Timeout waiting for event on subscriber %d", i)
		}
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	eventBus := NewEventBus()
	eventBus.Subscribe()

	g := block.NewPowOracle().CreateGenesisBlock()
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			eventBus.Publish(NewChainReplaced(1, 2, g, "peer"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestEventSummaries(t *testing.T) {
	g := block.NewPowOracle().CreateGenesisBlock()

	mined := NewBlockMined(g)
	if mined.Type() != EventBlockMined || mined.Source() != "local" {
		t.Errorf("unexpected mined event %s/%s", mined.Type(), mined.Source())
	}

	replaced := NewChainReplaced(2, 5, g, "peer")
	if replaced.OldLength() != 2 || replaced.NewLength() != 5 {
		t.Errorf("unexpected lengths %d -> %d", replaced.OldLength(), replaced.NewLength())
	}
	if replaced.Summary() == "" || mined.Summary() == "" {
		t.Errorf("summaries must not be empty")
	}
}
