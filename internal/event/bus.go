// Package event provides a pub/sub event system using watermill.
package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventType represents the type of event.
type EventType string

const (
	BuildSnapshot    EventType = "build.snapshot"
	ProjectCreated   EventType = "project.created"
	ProjectUpdated   EventType = "project.updated"
	ProjectDeleted   EventType = "project.deleted"
	FileEdited       EventType = "file.edited"
	FilesSynced      EventType = "files.synced"
	FilesUnavailable EventType = "files.unavailable"
)

// Event represents an event to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Subscriber is a function that receives events.
type Subscriber func(event Event)

// subscriberEntry wraps a subscriber with an ID.
type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus is the event bus that manages pub/sub using watermill.
// It uses watermill's gochannel for infrastructure while keeping direct-call
// subscriber dispatch to preserve type information.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[EventType][]subscriberEntry
	global      []subscriberEntry

	nextID       uint64
	closed       bool
	closedCancel context.CancelFunc
	closedCtx    context.Context
}

// globalBus is the default event bus instance.
var globalBus = newBus()

// newBus creates a new event bus with watermill infrastructure.
func newBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		subscribers:  make(map[EventType][]subscriberEntry),
		closedCtx:    ctx,
		closedCancel: cancel,
	}
}

// NewBus creates a new event bus instance.
func NewBus() *Bus {
	return newBus()
}

// Default returns the global event bus.
func Default() *Bus {
	return globalBus
}

// newID generates a unique subscriber ID.
func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers a subscriber for a specific event type on the global
// bus. Returns an unsubscribe function.
func Subscribe(eventType EventType, fn Subscriber) func() {
	return globalBus.Subscribe(eventType, fn)
}

func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	entry := subscriberEntry{id: id, fn: fn}
	b.subscribers[eventType] = append(b.subscribers[eventType], entry)

	return func() {
		b.unsubscribe(eventType, id)
	}
}

// SubscribeAll registers a subscriber for all events on the global bus.
// Returns an unsubscribe function.
func SubscribeAll(fn Subscriber) func() {
	return globalBus.SubscribeAll(fn)
}

func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	entry := subscriberEntry{id: id, fn: fn}
	b.global = append(b.global, entry)

	return func() {
		b.unsubscribeGlobal(id)
	}
}

// unsubscribe removes a subscriber for a specific event type.
func (b *Bus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, entry := range subs {
		if entry.id == id {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// unsubscribeGlobal removes a global subscriber.
func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all global-bus subscribers asynchronously.
func Publish(event Event) {
	globalBus.Publish(event)
}

// Publish sends an event to all subscribers asynchronously. Each subscriber
// is called in its own goroutine to prevent blocking.
func (b *Bus) Publish(event Event) {
	for _, sub := range b.collect(event.Type) {
		go sub(event)
	}
}

// PublishSync sends an event to all global-bus subscribers synchronously.
func PublishSync(event Event) {
	globalBus.PublishSync(event)
}

// PublishSync sends an event to all subscribers synchronously, in the current
// goroutine, before returning. Snapshot publication relies on this to keep
// observers in event-arrival order.
func (b *Bus) PublishSync(event Event) {
	for _, sub := range b.collect(event.Type) {
		sub(event)
	}
}

// collect gathers the subscribers for an event type under the read lock.
func (b *Bus) collect(t EventType) []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	subs := make([]Subscriber, 0, len(b.subscribers[t])+len(b.global))
	for _, entry := range b.subscribers[t] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	return subs
}

// Reset clears all subscribers from the global bus (for testing).
func Reset() {
	globalBus.mu.Lock()
	globalBus.closed = true
	globalBus.closedCancel()
	globalBus.mu.Unlock()

	_ = globalBus.pubsub.Close()

	// Small delay to allow goroutines to clean up
	time.Sleep(10 * time.Millisecond)

	globalBus = newBus()
}

// Close closes the bus and drops all its subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.closedCancel()

	b.subscribers = make(map[EventType][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}

// PubSub returns the underlying watermill GoChannel for advanced use cases,
// such as middleware or switching to a distributed backend.
func (b *Bus) PubSub() *gochannel.GoChannel {
	return b.pubsub
}
