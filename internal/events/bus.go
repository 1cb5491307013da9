package events

import (
	"sync"
)

// Filter decides whether a published payload is delivered to a subscriber.
type Filter func(payload any) bool

// Owned is implemented by payloads that belong to a single user.
type Owned interface {
	OwnerID() string
}

// OwnedBy returns a filter that admits only payloads owned by userID.
// Payloads that do not implement Owned are never admitted.
func OwnedBy(userID string) Filter {
	return func(payload any) bool {
		o, ok := payload.(Owned)
		return ok && o.OwnerID() == userID
	}
}

type subscriber struct {
	ch     chan any
	filter Filter
}

// Bus is a lightweight pub/sub broker using channels. Subscriptions may
// carry filters so user-scoped payloads stay with their owner.
type Bus struct {
	mu   sync.RWMutex
	subs map[Event][]*subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]*subscriber)}
}

// Subscribe registers a listener for an event and returns the channel and an
// unsubscribe function. When filters are given, every one of them must admit
// a payload for it to be delivered.
func (b *Bus) Subscribe(e Event, buffer int, filters ...Filter) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{ch: make(chan any, buffer), filter: combine(filters)}
	b.subs[e] = append(b.subs[e], sub)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[e]
		for i, s := range subs {
			if s == sub {
				close(s.ch)
				b.subs[e] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return sub.ch, unsub
}

func combine(filters []Filter) Filter {
	if len(filters) == 0 {
		return nil
	}
	return func(payload any) bool {
		for _, f := range filters {
			if !f(payload) {
				return false
			}
		}
		return true
	}
}

// Publish fan-outs the payload to matching subscribers asynchronously to avoid blocking.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[e] {
		if sub.filter != nil && !sub.filter(payload) {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
			// drop if subscriber is slow; keep broker non-blocking
		}
	}
}
