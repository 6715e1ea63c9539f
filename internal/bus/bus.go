// Package bus is the in-process publish/subscribe channel used to broadcast
// scan lifecycle events to any number of listening UI surfaces. Delivery is
// best-effort: publishing with zero listeners is not an error, and a
// listener that falls behind misses events rather than blocking the
// publisher. Surfaces that attach late must resynchronize from the
// persistent store.
package bus

import "sync"

// Kind identifies the logical message type carried by an event.
type Kind string

// Event kinds, mirroring the message taxonomy between orchestrator and UI.
const (
	KindScanResult     Kind = "SCAN_RESULT"
	KindAIResult       Kind = "AI_RESULT"
	KindSiteStatus     Kind = "SITE_STATUS"
	KindHistoryUpdated Kind = "HISTORY_UPDATED"
)

// Event is one broadcast message.
type Event struct {
	Kind    Kind
	Payload any
}

// subscriberBuffer bounds how many undelivered events a listener may lag
// behind before events are dropped for it.
const subscriberBuffer = 16

type subscriber struct {
	match func(Event) bool
	ch    chan Event
}

// Bus fans events out to subscribers.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers a listener for events matching the predicate. A nil
// predicate matches every event. The returned function unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe(match func(Event) bool) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	sub := &subscriber{
		match: match,
		ch:    make(chan Event, subscriberBuffer),
	}
	b.subs[id] = sub

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
		})
	}
	return sub.ch, unsubscribe
}

// Publish delivers an event to every matching subscriber. It never fails
// and never blocks: a full subscriber buffer drops the event for that
// subscriber only.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.match != nil && !sub.match(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}
