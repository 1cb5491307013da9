package events

import (
	"testing"
	"time"
)

type ownedPayload struct {
	UserID string
	Value  string
}

func (p ownedPayload) OwnerID() string { return p.UserID }

func receive(t *testing.T, ch <-chan any, timeout time.Duration) (any, bool) {
	t.Helper()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(timeout):
		return nil, false
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventCalculationSaved, 1)
	defer unsub()

	bus.Publish(EventCalculationSaved, "hello")

	msg, ok := receive(t, ch, time.Second)
	if !ok {
		t.Fatal("expected a delivery")
	}
	if msg != "hello" {
		t.Fatalf("payload=%v, expected hello", msg)
	}
}

func TestOwnedByFilterScopesDelivery(t *testing.T) {
	bus := NewBus()

	ownerCh, unsubOwner := bus.Subscribe(EventCalculationSaved, 4, OwnedBy("user-a"))
	defer unsubOwner()
	otherCh, unsubOther := bus.Subscribe(EventCalculationSaved, 4, OwnedBy("user-b"))
	defer unsubOther()

	bus.Publish(EventCalculationSaved, ownedPayload{UserID: "user-a", Value: "private"})

	msg, ok := receive(t, ownerCh, time.Second)
	if !ok {
		t.Fatal("owner did not receive their payload")
	}
	if p := msg.(ownedPayload); p.Value != "private" {
		t.Fatalf("payload=%+v, expected the published value", p)
	}

	if msg, ok := receive(t, otherCh, 100*time.Millisecond); ok {
		t.Fatalf("foreign subscriber received %v, expected nothing", msg)
	}
}

func TestOwnedByRejectsUnownedPayloads(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventCalculationSaved, 1, OwnedBy("user-a"))
	defer unsub()

	// Plain payloads carry no owner and must not leak through a scoped subscription.
	bus.Publish(EventCalculationSaved, "anonymous payload")

	if msg, ok := receive(t, ch, 100*time.Millisecond); ok {
		t.Fatalf("received %v, expected nothing", msg)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventHistoryCleared, 1)
	unsub()

	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}

	// Publishing after unsubscribe must not panic or deliver.
	bus.Publish(EventHistoryCleared, "late")
}
