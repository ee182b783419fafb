package progress

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"scribe/internal/logging"
)

// Sink receives events from a producer. Implementations must not block the
// producer for longer than a short, bounded interval.
type Sink interface {
	Send(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Send calls f(e).
func (f SinkFunc) Send(e Event) {
	if f != nil {
		f(e)
	}
}

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(nil)

const (
	// DefaultCapacity is the bridge buffer size used when none is configured.
	DefaultCapacity = 64
	// DefaultSendTimeout bounds how long Send waits on a full buffer.
	DefaultSendTimeout = 50 * time.Millisecond
)

// Bridge carries events from a blocking producer goroutine to a consumer over
// a bounded channel. Order is preserved for delivered events. When the buffer
// is full, progress events are dropped at once and other events wait up to the
// send timeout before being dropped, so the producer never stalls.
type Bridge struct {
	ch      chan Event
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithSendTimeout overrides DefaultSendTimeout.
func WithSendTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithLogger attaches a logger for dropped-event warnings.
func WithLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBridge constructs a bridge with the given buffer capacity.
func NewBridge(capacity int, opts ...BridgeOption) *Bridge {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Bridge{
		ch:      make(chan Event, capacity),
		timeout: DefaultSendTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Send enqueues e. Sends after Close are ignored.
func (b *Bridge) Send(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	select {
	case b.ch <- e:
		return
	default:
	}

	if e.Kind == KindProgress {
		b.dropped.Add(1)
		return
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	select {
	case b.ch <- e:
	case <-timer.C:
		b.dropped.Add(1)
		logging.WarnWithContext(b.logger, "progress consumer lagging; event dropped", "progress_dropped",
			logging.String("event_kind", string(e.Kind)),
			logging.String(logging.FieldErrorHint, "consumer is not draining the event stream"),
			logging.String(logging.FieldImpact, "an intermediate status message was not delivered"),
		)
	}
}

// Events returns the consumer side of the bridge. It is closed by Close.
func (b *Bridge) Events() <-chan Event {
	return b.ch
}

// Close stops accepting events and closes the consumer channel once. Buffered
// events remain readable.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}

// Dropped returns the number of events discarded because the buffer was full.
func (b *Bridge) Dropped() int64 {
	return b.dropped.Load()
}
