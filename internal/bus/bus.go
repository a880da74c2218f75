package bus

import (
	"sync"
	"sync/atomic"
	"time"
)

// subscriberBufferSize is the per-subscriber event buffer.
// Events beyond this are dropped for that subscriber, never queued.
const subscriberBufferSize = 64

// Operation identifies the kind of mutation that produced an event.
type Operation string

// Operations reported in change events.
const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Event is a change notification for one committed mutation.
type Event struct {
	// Path is the logical resource path that changed, e.g. "regions" or
	// "regions/42".
	Path string `json:"path"`

	// Resource is the collection the path belongs to ("regions",
	// "region_bounds"), useful for subscribers filtering by table.
	Resource string `json:"resource"`

	// Op is the mutation kind.
	Op Operation `json:"op"`

	// Affected is the number of rows the mutation touched.
	Affected int64 `json:"affected"`

	// At is when the event was published (after commit).
	At time.Time `json:"at"`
}

// Logger is the minimal logging interface the bus needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Subscriber receives events on C until Unsubscribe is called.
type Subscriber struct {
	// C delivers events. Closed by Unsubscribe.
	C <-chan Event

	ch        chan Event
	resources map[string]struct{} // empty = all resources
	dropped   atomic.Int64
}

// Dropped returns the number of events this subscriber missed because its
// buffer was full.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// matches reports whether the subscriber wants events for the resource.
func (s *Subscriber) matches(resource string) bool {
	if len(s.resources) == 0 {
		return true
	}
	_, ok := s.resources[resource]
	return ok
}

// Bus is the change-notification broadcaster.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	logger Logger
}

// New creates a new Bus.
func New() *Bus {
	return &Bus{
		subs:   make(map[*Subscriber]struct{}),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger used to report dropped events.
func (b *Bus) SetLogger(logger Logger) {
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
}

// Subscribe registers a new subscriber. With no resources given, the
// subscriber receives every event; otherwise only events whose Resource is
// in the list.
func (b *Bus) Subscribe(resources ...string) *Subscriber {
	sub := &Subscriber{
		ch:        make(chan Event, subscriberBufferSize),
		resources: make(map[string]struct{}, len(resources)),
	}
	sub.C = sub.ch
	for _, r := range resources {
		sub.resources[r] = struct{}{}
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
// Unsubscribing twice is safe.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	_, existed := b.subs[sub]
	delete(b.subs, sub)
	b.mu.Unlock()

	if existed {
		close(sub.ch)
	}
}

// Publish delivers an event to every matching subscriber.
//
// Publish never blocks: subscribers with a full buffer miss the event.
// It is called after the originating transaction has committed, so observer
// behaviour can never affect the mutation's outcome.
func (b *Bus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	b.mu.RLock()
	logger := b.logger
	for sub := range b.subs {
		if !sub.matches(evt.Resource) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			sub.dropped.Add(1)
			logger.Warn("change event dropped for slow subscriber",
				"path", evt.Path,
				"dropped", sub.Dropped(),
			)
		}
	}
	b.mu.RUnlock()
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
