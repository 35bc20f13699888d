// Package eventbus provides the process-wide fan-out of pipeline progress events.
//
// Every subscriber owns a bounded queue. Publish appends to all queues under a
// single lock, so all subscribers see the same total order and events for one
// document arrive in the order they were published. When a queue is full the
// oldest queued event is dropped; Publish never waits on a subscriber.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

// DefaultQueueSize is the per-subscriber queue bound when none is configured.
const DefaultQueueSize = 256

// Ensure Bus implements the publisher port.
var _ driven.EventPublisher = (*Bus)(nil)

// Ensure Subscription implements the subscription port.
var _ driving.EventSubscription = (*Subscription)(nil)

// Option configures a Bus.
type Option func(*Bus)

// WithQueueSize sets the default per-subscriber queue bound.
func WithQueueSize(size int) Option {
	return func(b *Bus) {
		if size > 0 {
			b.queueSize = size
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// Bus broadcasts ProgressEvents to subscribers.
type Bus struct {
	mu        sync.Mutex
	seq       uint64
	nextID    uint64
	subs      map[uint64]*Subscription
	queueSize int
	closed    bool
	now       func() time.Time
}

// New creates an event bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:      make(map[uint64]*Subscription),
		queueSize: DefaultQueueSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish stamps the event and delivers it to every current subscriber.
// Events published after Close are discarded.
func (b *Bus) Publish(event domain.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.seq++
	event.Seq = b.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}
	if event.Level == "" {
		event.Level = domain.LevelInfo
	}

	for _, sub := range b.subs {
		sub.enqueue(event)
	}
}

// Subscribe registers an observer with the default queue bound.
func (b *Bus) Subscribe() *Subscription {
	return b.SubscribeWithSize(0)
}

// SubscribeWithSize registers an observer with its own queue bound.
// A size of 0 uses the bus default.
func (b *Bus) SubscribeWithSize(size int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if size <= 0 {
		size = b.queueSize
	}

	b.nextID++
	sub := newSubscription(b, b.nextID, size)
	if b.closed {
		sub.stop()
		close(sub.out)
		return sub
	}

	b.subs[sub.id] = sub
	go sub.pump()
	return sub
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close unsubscribes everyone and discards later publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*Subscription)
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Subscription is one observer's bounded view of the event stream.
type Subscription struct {
	bus *Bus
	id  uint64

	mu    sync.Mutex
	ring  []domain.ProgressEvent
	head  int
	count int

	dropped atomic.Uint64
	notify  chan struct{}
	out     chan domain.ProgressEvent
	done    chan struct{}
	once    sync.Once
}

func newSubscription(bus *Bus, id uint64, size int) *Subscription {
	return &Subscription{
		bus:    bus,
		id:     id,
		ring:   make([]domain.ProgressEvent, size),
		notify: make(chan struct{}, 1),
		out:    make(chan domain.ProgressEvent),
		done:   make(chan struct{}),
	}
}

// Events delivers events in publish order. The channel is closed after Unsubscribe.
func (s *Subscription) Events() <-chan domain.ProgressEvent {
	return s.out
}

// Dropped returns how many events were discarded because the queue was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe stops delivery and closes the Events channel.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.id)
	s.stop()
}

func (s *Subscription) stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

// enqueue appends without blocking, overwriting the oldest event when full.
func (s *Subscription) enqueue(event domain.ProgressEvent) {
	s.mu.Lock()
	size := len(s.ring)
	if s.count == size {
		s.head = (s.head + 1) % size
		s.count--
		s.dropped.Add(1)
	}
	s.ring[(s.head+s.count)%size] = event
	s.count++
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) pop() (domain.ProgressEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		return domain.ProgressEvent{}, false
	}
	event := s.ring[s.head]
	s.ring[s.head] = domain.ProgressEvent{}
	s.head = (s.head + 1) % len(s.ring)
	s.count--
	return event, true
}

// pump moves queued events to the consumer channel. Only the pump blocks on a
// slow consumer.
func (s *Subscription) pump() {
	defer close(s.out)

	for {
		event, ok := s.pop()
		if !ok {
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case s.out <- event:
		case <-s.done:
			return
		}
	}
}
