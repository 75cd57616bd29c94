package event

import (
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Bus.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Handler receives events. It runs on the publishing goroutine and must
// return promptly; long work belongs on the handler's own goroutine.
type Handler func(Event)

// subscription is a handler bound to a whole category (id == "") or to a
// single event id.
type subscription struct {
	id      ID
	handler Handler
}

// Bus delivers lifecycle events to subscribed handlers.
//
// Delivery is synchronous on the publishing goroutine, in subscription
// order within a category, exactly once per matching handler, with no
// retries. A slow handler delays the handlers after it.
//
// Subscriptions are made at startup and frozen by Seal(). All public
// methods are thread-safe.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Category][]subscription
	sealed bool

	logger Logger
	now    func() time.Time
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[Category][]subscription),
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the bus.
func (b *Bus) SetLogger(logger Logger) {
	b.logger = logger
}

// Subscribe registers h for every event of category cat.
func (b *Bus) Subscribe(cat Category, h Handler) error {
	if !knownCategory(cat) {
		return fmt.Errorf("%w: category %q", ErrUnknownEvent, cat)
	}
	return b.add(cat, subscription{handler: h})
}

// SubscribeID registers h for the single event (cat, id).
func (b *Bus) SubscribeID(cat Category, id ID, h Handler) error {
	if !Known(cat, id) {
		return fmt.Errorf("%w: %s/%s", ErrUnknownEvent, cat, id)
	}
	return b.add(cat, subscription{id: id, handler: h})
}

func (b *Bus) add(cat Category, sub subscription) error {
	if sub.handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return ErrSealed
	}
	b.subs[cat] = append(b.subs[cat], sub)
	return nil
}

// Seal freezes the subscription table. It is idempotent.
func (b *Bus) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true
}

// SubscriberCount returns the number of subscriptions on a category.
func (b *Bus) SubscriberCount(cat Category) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[cat])
}

// Raise publishes a new event stamped with the current time.
func (b *Bus) Raise(cat Category, id ID, payload any) int {
	return b.Publish(Event{Category: cat, ID: id, Payload: payload, Time: b.now().UTC()})
}

// Publish delivers e to every matching handler and returns how many ran.
//
// Unknown (category, id) pairs are logged and dropped. A known event with
// no subscribers is a no-op. A panicking handler is logged and the
// remaining handlers still run.
func (b *Bus) Publish(e Event) int {
	if !Known(e.Category, e.ID) {
		b.logger.Warn("unhandled event", "category", e.Category, "id", e.ID)
		return 0
	}
	if e.Time.IsZero() {
		e.Time = b.now().UTC()
	}

	b.mu.RLock()
	subs := b.subs[e.Category]
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if sub.id != "" && sub.id != e.ID {
			continue
		}
		b.deliver(sub.handler, e)
		delivered++
	}
	return delivered
}

// deliver runs one handler with panic recovery.
func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panic recovered",
				"category", e.Category,
				"id", e.ID,
				"panic", r,
			)
		}
	}()
	h(e)
}
