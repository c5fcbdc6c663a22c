package stream

import (
	"testing"
	"time"

	"github.com/kamaundungu/soko_events/models"
)

func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed before event arrived")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func assertClosed(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case _, ok := <-sub.C:
		if ok {
			t.Fatal("expected channel to be closed, got another event")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBrokerTerminalDelivery(t *testing.T) {
	b := NewBroker()

	t.Run("each subscriber gets exactly one terminal event then close", func(t *testing.T) {
		subA := b.Subscribe("REF-1-AAAAAA")
		subB := b.Subscribe("REF-1-AAAAAA")

		payment := &models.Payment{InvoiceRef: "REF-1-AAAAAA", Status: models.PaymentCompleted}
		delivered := b.Publish("REF-1-AAAAAA", TerminalEvent(payment))
		if delivered != 2 {
			t.Errorf("expected 2 deliveries, got %d", delivered)
		}

		for _, sub := range []*Subscription{subA, subB} {
			ev := recvEvent(t, sub)
			if ev.Type != models.PaymentCompleted {
				t.Errorf("expected completed event, got %s", ev.Type)
			}
			assertClosed(t, sub)
		}

		if b.SubscriberCount("REF-1-AAAAAA") != 0 {
			t.Error("expected subscribers to be deregistered after terminal event")
		}
	})

	t.Run("publish with nobody listening is dropped", func(t *testing.T) {
		payment := &models.Payment{InvoiceRef: "REF-2-BBBBBB", Status: models.PaymentFailed}
		if delivered := b.Publish("REF-2-BBBBBB", TerminalEvent(payment)); delivered != 0 {
			t.Errorf("expected 0 deliveries, got %d", delivered)
		}
	})
}

func TestBrokerNonTerminalKeepsSubscription(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("REF-3-CCCCCC")

	b.Publish("REF-3-CCCCCC", HeartbeatEvent())

	ev := recvEvent(t, sub)
	if ev.Type != "heartbeat" {
		t.Errorf("expected heartbeat, got %s", ev.Type)
	}
	if b.SubscriberCount("REF-3-CCCCCC") != 1 {
		t.Error("heartbeat must not deregister the subscriber")
	}
	b.Unsubscribe(sub)
}

func TestBrokerUnsubscribeLeavesSiblings(t *testing.T) {
	b := NewBroker()
	subA := b.Subscribe("REF-4-DDDDDD")
	subB := b.Subscribe("REF-4-DDDDDD")

	b.Unsubscribe(subA)

	if b.SubscriberCount("REF-4-DDDDDD") != 1 {
		t.Fatalf("expected 1 remaining subscriber, got %d", b.SubscriberCount("REF-4-DDDDDD"))
	}

	payment := &models.Payment{InvoiceRef: "REF-4-DDDDDD", Status: models.PaymentCancelled}
	b.Publish("REF-4-DDDDDD", TerminalEvent(payment))

	ev := recvEvent(t, subB)
	if ev.Type != models.PaymentCancelled {
		t.Errorf("expected cancelled, got %s", ev.Type)
	}
}

func TestBrokerUnsubscribeAfterTerminalIsSafe(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("REF-5-EEEEEE")

	payment := &models.Payment{InvoiceRef: "REF-5-EEEEEE", Status: models.PaymentCompleted}
	b.Publish("REF-5-EEEEEE", TerminalEvent(payment))

	// The transport handler still calls Unsubscribe on disconnect.
	b.Unsubscribe(sub)
}

func TestTerminalEventCarriesFailureDetails(t *testing.T) {
	reason := "Insufficient funds"
	payment := &models.Payment{InvoiceRef: "REF-6", Status: models.PaymentFailed, FailureReason: &reason}

	ev := TerminalEvent(payment)
	if ev.FailureDetails != reason {
		t.Errorf("expected failure details %q, got %q", reason, ev.FailureDetails)
	}
	if !ev.IsTerminal() {
		t.Error("failed event must be terminal")
	}
}
