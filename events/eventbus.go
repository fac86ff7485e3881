package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mezonai/powchain/logx"
)

const subscriberBuffer = 64

type SubscriberID string

type Subscriber struct {
	ID      SubscriberID
	Channel chan BlockchainEvent
}

// EventBus fans chain events out to subscribers. It doubles as the node's
// state-change notifier.
type EventBus struct {
	subscribers map[SubscriberID]*Subscriber
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[SubscriberID]*Subscriber),
	}
}

func newSubscriberID() SubscriberID {
	return SubscriberID(uuid.Must(uuid.NewV7()).String())
}

func (eb *EventBus) Subscribe() (SubscriberID, <-chan BlockchainEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	sub := &Subscriber{
		ID:      newSubscriberID(),
		Channel: make(chan BlockchainEvent, subscriberBuffer),
	}
	eb.subscribers[sub.ID] = sub

	logx.Info("EVENTBUS", fmt.Sprintf("Subscribed to chain events | subscriber_id=%s | total_subscribers=%d", sub.ID, len(eb.subscribers)))
	return sub.ID, sub.Channel
}

// Unsubscribe removes a subscription and closes its channel.
func (eb *EventBus) Unsubscribe(id SubscriberID) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	sub, exists := eb.subscribers[id]
	if !exists {
		logx.Warn("EVENTBUS", fmt.Sprintf("Attempted to unsubscribe non-existent subscriber | subscriber_id=%s", id))
		return false
	}
	delete(eb.subscribers, id)
	close(sub.Channel)

	logx.Info("EVENTBUS", fmt.Sprintf("Unsubscribed | subscriber_id=%s | remaining_subscribers=%d", id, len(eb.subscribers)))
	return true
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (eb *EventBus) Publish(event BlockchainEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if len(eb.subscribers) == 0 {
		logx.Debug("EVENTBUS", fmt.Sprintf("No subscribers | event_type=%s | %s", event.Type(), event.Summary()))
		return
	}

	logx.Info("EVENTBUS", fmt.Sprintf("Publishing | event_type=%s | %s | subscribers=%d", event.Type(), event.Summary(), len(eb.subscribers)))
	for id, sub := range eb.subscribers {
		select {
		case sub.Channel <- event:
		default:
			logx.Warn("EVENTBUS", fmt.Sprintf("Subscriber channel full | subscriber_id=%s | event_type=%s", id, event.Type()))
		}
	}
}

func (eb *EventBus) GetTotalSubscriptions() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

func (eb *EventBus) HasSubscriber(id SubscriberID) bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	_, exists := eb.subscribers[id]
	return exists
}
