package events

import (
	"sync"
	"time"
)

// Bus fans events out to subscribers. Each subscriber receives events in
// publish order; delivery to one subscriber never blocks publishers or other
// subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]*Subscription
	nextID int
	closed bool
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*Subscription)}
}

// Subscribe registers a new subscriber and starts its delivery pump.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		bus:  b,
		ch:   make(chan Event),
		done: make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)

	if b.closed {
		sub.closed = true
		close(sub.ch)
		return sub
	}

	sub.id = b.nextID
	b.nextID++
	b.subs[sub.id] = sub
	go sub.pump()
	return sub
}

// Publish delivers the event to every current subscriber. A zero timestamp is
// stamped with the current time.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.enqueue(evt)
	}
}

// Close terminates all subscriptions. Publishing after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[int]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.shutdown()
	}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Subscription is one subscriber's ordered event feed.
type Subscription struct {
	id   int
	bus  *Bus
	ch   chan Event
	done chan struct{}

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
}

// Events returns the delivery channel. It is closed when the subscription or
// the bus shuts down.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close unregisters the subscriber and closes its channel once queued events
// are drained or discarded.
func (s *Subscription) Close() {
	if s.bus != nil {
		s.bus.unsubscribe(s.id)
	}
	s.shutdown()
}

func (s *Subscription) enqueue(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, evt)
	s.cond.Signal()
}

func (s *Subscription) shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.cond.Signal()
	s.mu.Unlock()
}

// pump moves events from the queue to the channel, preserving order. The
// queue is unbounded so a slow receiver delays only itself.
func (s *Subscription) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.queue = nil
			s.mu.Unlock()
			close(s.ch)
			return
		}
		evt := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.ch <- evt:
		case <-s.done:
			close(s.ch)
			return
		}
	}
}
