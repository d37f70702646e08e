// Package relay fans bridge events out to subscribed UI collaborators. The
// search/open pipeline reports completion here rather than responding
// in-band, so panels can drop their loading state even when the original
// request came from another surface.
package relay

import (
	"sync"
	"sync/atomic"
	"time"
)

const subscriberBufSize = 64

// Event actions published by the coordinator.
const (
	ActionSearchComplete = "sgpSearchComplete"
	ActionFormFilled     = "sgpFormFilled"
)

// Event is one completion notice.
type Event struct {
	Action   string    `json:"action"`
	Success  bool      `json:"success"`
	ClientID string    `json:"client_id,omitempty"`
	Message  string    `json:"message,omitempty"`
	At       time.Time `json:"at"`
}

// Broker fans out events to all subscribers. Slow consumers have events
// dropped rather than blocking the pipeline.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	nextID      atomic.Int64
}

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[int64]chan Event)}
}

// Subscribe registers a client and returns its id plus a buffered receive
// channel.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers evt to every subscriber without blocking.
func (b *Broker) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
