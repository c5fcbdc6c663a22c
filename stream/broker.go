// Package stream fans payment status transitions out to live client
// connections keyed by invoice reference. Nothing is persisted: a
// client that misses an event falls back to the one-shot status poll.
package stream

import (
	"log"
	"sync"

	"github.com/kamaundungu/soko_events/models"
)

type Event struct {
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	Payment        *models.Payment `json:"payment,omitempty"`
	FailureDetails string          `json:"failureDetails,omitempty"`
}

func (e Event) IsTerminal() bool {
	return models.IsTerminalStatus(e.Type)
}

func HeartbeatEvent() Event {
	return Event{Type: "heartbeat"}
}

func TimeoutEvent() Event {
	return Event{Type: "timeout"}
}

// TerminalEvent builds the last event a subscriber sees for a payment.
func TerminalEvent(payment *models.Payment) Event {
	ev := Event{Type: payment.Status, Status: payment.Status, Payment: payment}
	if payment.FailureReason != nil {
		ev.FailureDetails = *payment.FailureReason
	}
	return ev
}

type Subscription struct {
	InvoiceRef string
	C          chan Event
	closed     bool
}

type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

var Hub = NewBroker()

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a live connection for one invoice reference.
// Multiple subscriptions per reference are fine (several browser tabs).
func (b *Broker) Subscribe(invoiceRef string) *Subscription {
	sub := &Subscription{InvoiceRef: invoiceRef, C: make(chan Event, 8)}

	b.mu.Lock()
	if b.subs[invoiceRef] == nil {
		b.subs[invoiceRef] = make(map[*Subscription]struct{})
	}
	b.subs[invoiceRef][sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes one connection without touching its siblings.
// Safe to call after the broker already closed the subscription.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sub)
}

// Publish delivers the event to every subscriber of the invoice
// reference and returns how many received it. A terminal event closes
// and deregisters the subscribers it reached; an event with nobody
// listening is dropped.
func (b *Broker) Publish(invoiceRef string, ev Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	group := b.subs[invoiceRef]
	if len(group) == 0 {
		return 0
	}

	delivered := 0
	for sub := range group {
		select {
		case sub.C <- ev:
			delivered++
		default:
			log.Printf("Dropping status event for slow subscriber on %s", invoiceRef)
		}
		if ev.IsTerminal() {
			b.removeLocked(sub)
		}
	}
	return delivered
}

func (b *Broker) SubscriberCount(invoiceRef string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[invoiceRef])
}

func (b *Broker) removeLocked(sub *Subscription) {
	group := b.subs[sub.InvoiceRef]
	if _, ok := group[sub]; !ok {
		return
	}
	delete(group, sub)
	if len(group) == 0 {
		delete(b.subs, sub.InvoiceRef)
	}
	if !sub.closed {
		sub.closed = true
		close(sub.C)
	}
}
