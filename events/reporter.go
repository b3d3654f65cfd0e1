// Package events publishes notifications about committed vault changes.
package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-vault/metrics"
)

const subsystem = "events"

var (
	published = metrics.NewCounter("published_total", subsystem, "Published events", []string{"type"})
	dropped   = metrics.NewCounter("dropped_total", subsystem, "Events dropped by slow subscribers", []string{"type"})
)

// Subscription receives events published after it was created.
type Subscription struct {
	reporter *Reporter
	out      chan Event
	once     sync.Once
}

// Out returns channel with events. Channel is closed when subscription is closed.
func (s *Subscription) Out() <-chan Event {
	return s.out
}

// Close stops subscription.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.reporter.unsubscribe(s)
	})
}

// Opt for configuring Reporter.
type Opt func(*Reporter)

// WithLogger sets logger for Reporter.
func WithLogger(logger *zap.Logger) Opt {
	return func(r *Reporter) {
		r.logger = logger
	}
}

// WithBuffer sets the number of recent events kept in memory.
func WithBuffer(size int) Opt {
	return func(r *Reporter) {
		r.buffer = newRing[Event](size)
	}
}

// Reporter keeps recent events and fans them out to subscribers.
// Publishing never blocks: events are dropped for subscribers that are not keeping up.
type Reporter struct {
	logger *zap.Logger

	mu     sync.RWMutex
	buffer *ring[Event]
	subs   map[*Subscription]struct{}
}

// NewReporter creates Reporter.
func NewReporter(opts ...Opt) *Reporter {
	r := &Reporter{
		logger: zap.NewNop(),
		buffer: newRing[Event](1000),
		subs:   map[*Subscription]struct{}{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Publish event to recent buffer and all subscribers.
func (r *Reporter) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer.insert(ev)
	published.WithLabelValues(string(ev.Type)).Inc()
	r.logger.Info(string(ev.Type), zap.Object("event", &ev))
	for sub := range r.subs {
		select {
		case sub.out <- ev:
		default:
			dropped.WithLabelValues(string(ev.Type)).Inc()
			r.logger.Debug("subscriber is full, event dropped", zap.Object("event", &ev))
		}
	}
}

// Recent returns up to n most recent events, oldest first.
// Non-positive n returns every buffered event.
func (r *Reporter) Recent(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := r.buffer.len()
	if n <= 0 || n > total {
		n = total
	}
	skip := total - n
	rst := make([]Event, 0, n)
	r.buffer.iterate(func(ev Event) bool {
		if skip > 0 {
			skip--
			return true
		}
		rst = append(rst, ev)
		return true
	})
	return rst
}

// Subscribe to events. Buffer is the capacity of the subscription channel.
func (r *Reporter) Subscribe(buffer int) *Subscription {
	sub := &Subscription{reporter: r, out: make(chan Event, buffer)}
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	return sub
}

func (r *Reporter) unsubscribe(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, sub)
	close(sub.out)
}
