// Package provider holds helpers shared by identity provider adapters.
package provider

import (
	"sync"

	"github.com/goliatone/go-homie"
)

// Broadcaster implements the subscription half of a provider. Each
// subscriber is replayed the current session on subscribe and then receives
// every Publish in order, on its own goroutine.
type Broadcaster struct {
	mu      sync.Mutex
	current *homie.Session
	subs    map[uint64]*subscription
	nextID  uint64
}

// NewBroadcaster returns a broadcaster whose current session is initial.
func NewBroadcaster(initial *homie.Session) *Broadcaster {
	return &Broadcaster{
		current: initial,
		subs:    map[uint64]*subscription{},
	}
}

var _ homie.Subscriber = (*Broadcaster)(nil)

// Subscribe registers listener and schedules delivery of the current session.
func (b *Broadcaster) Subscribe(listener homie.Listener) homie.Unsubscribe {
	if listener == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	sub := newSubscription(listener)
	b.subs[id] = sub
	sub.push(b.current)
	b.mu.Unlock()

	go sub.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			sub.close()
		})
	}
}

// Publish sets the current session and notifies every subscriber. It
// reports whether the session changed; unchanged sessions are not
// re-published.
func (b *Broadcaster) Publish(session *homie.Session) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current.Equal(session) {
		return false
	}
	b.current = session
	for _, sub := range b.subs {
		sub.push(session)
	}
	return true
}

// Current returns the last published session.
func (b *Broadcaster) Current() *homie.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close releases every subscription.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = map[uint64]*subscription{}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

type subscription struct {
	listener homie.Listener

	mu     sync.Mutex
	queue  []*homie.Session
	closed bool
	wake   chan struct{}
}

func newSubscription(listener homie.Listener) *subscription {
	return &subscription{
		listener: listener,
		wake:     make(chan struct{}, 1),
	}
}

func (s *subscription) push(session *homie.Session) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, session)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	for range s.wake {
		for {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.listener(next)
		}
	}
}
