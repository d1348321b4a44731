package events

import (
	"io"
	"log/slog"
	"sort"
	"sync"
)

// Payload carries the named values posted alongside an event.
type Payload map[string]any

// Handler receives a posted event. Handlers run synchronously on the
// posting goroutine and must not block.
type Handler func(name string, payload Payload)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	name string
	id   uint64
}

// Bus is a minimal synchronous publish/subscribe event dispatcher.
// It is safe for concurrent use.
type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]Handler
}

// NewBus returns an empty bus. A nil logger disables dispatch logging.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[string]map[uint64]Handler),
	}
}

// Subscribe registers handler for the named event and returns a
// subscription token for later removal. A nil handler is ignored.
func (b *Bus) Subscribe(name string, handler Handler) Subscription {
	if handler == nil {
		return Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	slot, ok := b.handlers[name]
	if !ok {
		slot = make(map[uint64]Handler)
		b.handlers[name] = slot
	}
	slot[id] = handler
	return Subscription{name: name, id: id}
}

// Unsubscribe removes a previously registered handler. Unknown
// subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	if sub.id == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if slot, ok := b.handlers[sub.name]; ok {
		delete(slot, sub.id)
		if len(slot) == 0 {
			delete(b.handlers, sub.name)
		}
	}
}

// Post dispatches the event to every handler subscribed to its name.
// Handlers registered earlier run first.
func (b *Bus) Post(name string, payload Payload) {
	b.mu.RLock()
	slot := b.handlers[name]
	ids := make([]uint64, 0, len(slot))
	for id := range slot {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	targets := make([]Handler, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, slot[id])
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	b.logger.Debug("posting event", "event", name, "handlers", len(targets))
	for _, h := range targets {
		h(name, payload)
	}
}
