package deck

import (
	"log"
	"sync"
)

// EventType identifies a variant of the closed deck event set.
type EventType string

const (
	EventPageChanged EventType = "pageChanged"
	EventChatToggled EventType = "chatToggled"
)

// Event is the tagged union of deck events. The set of implementations is
// closed: PageChanged and ChatToggled.
type Event interface {
	Type() EventType
}

// PageChanged is published exactly once per accepted page change.
type PageChanged struct {
	PreviousPage int `json:"previousPage"`
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
}

func (PageChanged) Type() EventType { return EventPageChanged }

// ChatToggled is published when a viewer opens or closes the chat panel.
type ChatToggled struct {
	Open bool `json:"open"`
}

func (ChatToggled) Type() EventType { return EventChatToggled }

type subscription struct {
	id int
	fn func(Event)
}

// Bus is a synchronous publish/subscribe dispatcher over deck events.
// Listeners for a type run in registration order. A panicking listener is
// recovered and logged so later listeners still run. Publishing from inside
// a listener of the same event type is the caller's responsibility to avoid;
// the bus does not guard against event storms.
type Bus struct {
	mu        sync.Mutex
	nextID    int
	listeners map[EventType][]subscription
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[EventType][]subscription)}
}

// Subscribe registers fn for events of type t and returns an unsubscribe
// handle. Go functions are not comparable, so removal is by handle rather
// than by function value.
func (b *Bus) Subscribe(t EventType, fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[t] = append(b.listeners[t], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.listeners[t]
		for i, s := range subs {
			if s.id == id {
				b.listeners[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e synchronously to every listener registered for its
// type, in registration order.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := make([]subscription, len(b.listeners[e.Type()]))
	copy(subs, b.listeners[e.Type()])
	b.mu.Unlock()

	for _, s := range subs {
		invoke(s.fn, e)
	}
}

// invoke isolates listener panics so one faulty observer cannot break the rest.
func invoke(fn func(Event), e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("deck: event listener panicked on %s: %v", e.Type(), r)
		}
	}()
	fn(e)
}
