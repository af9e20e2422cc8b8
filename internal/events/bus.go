// Package events provides the in-process update fan-out: mutating a room
// publishes its code, and every live dashboard stream subscribed to that
// code receives a signal telling it to re-fetch the summary.
package events

import "sync"

// Update carries the minimal payload of a room-changed signal. Subscribers
// re-fetch the tally themselves, so nothing else travels on the bus.
type Update struct {
	Code string
}

// subscriberBuffer bounds each subscriber channel. A full buffer drops the
// publish for that subscriber; since every signal means "re-fetch", a
// dropped signal coalesces with the one already queued.
const subscriberBuffer = 4

// Bus is a publish/subscribe channel keyed by room code. The zero value is
// not usable; construct with NewBus.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[chan Update]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[chan Update]struct{})}
}

// Subscribe registers a listener for one room code and returns its channel
// together with an unsubscribe func. Unsubscribe is idempotent and must be
// called on every exit path of the listener.
func (b *Bus) Subscribe(code string) (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)

	b.mu.Lock()
	set, ok := b.subs[code]
	if !ok {
		set = make(map[chan Update]struct{})
		b.subs[code] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[code]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(b.subs, code)
				}
			}
			b.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

// Publish signals every subscriber of the given room code without blocking.
func (b *Bus) Publish(code string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[code] {
		select {
		case ch <- Update{Code: code}:
		default:
		}
	}
}

// SubscriberCount reports the number of live listeners for a room code.
func (b *Bus) SubscriberCount(code string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[code])
}
