// Package events carries state-change notifications between independent
// consumers (dashboard counters, websocket clients) without shared globals.
// A Bus is created once in main and injected where it is needed.
package events

import (
	"sort"
	"sync"
	"time"
)

// Type names the kind of change an Event reports.
type Type string

const (
	TypeComplete Type = "complete"
	TypeRemove   Type = "remove"
	TypeRestore  Type = "restore"
)

// ItemType names the kind of tracked entity.
type ItemType string

const (
	ItemMedication  ItemType = "medication"
	ItemAppointment ItemType = "appointment"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Type      Type      `json:"type"`
	ItemID    string    `json:"itemId"`
	ItemType  ItemType  `json:"itemType"`
	PatientID string    `json:"patientId,omitempty"`
	Hora      string    `json:"hora,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Publisher is implemented by anything that accepts events.
type Publisher interface {
	Publish(Event)
}

// Bus is an in-memory publish/subscribe service.
type Bus struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[uint64]Handler
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[uint64]Handler)}
}

// Subscribe registers fn and returns the function that removes it.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every current subscriber in subscription order.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	ids := make([]uint64, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		b.mu.RLock()
		fn, ok := b.handlers[id]
		b.mu.RUnlock()
		if ok {
			fn(e)
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
