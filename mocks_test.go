package homie_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-homie"
)

// MockProvider implements homie.Provider. Subscriptions are tracked by hand
// so tests can emit notifications at will.
type MockProvider struct {
	mock.Mock

	mu        sync.Mutex
	listeners map[int]homie.Listener
	nextID    int
	released  int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{listeners: map[int]homie.Listener{}}
}

func (m *MockProvider) Subscribe(listener homie.Listener) homie.Unsubscribe {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.released++
			m.mu.Unlock()
		})
	}
}

func (m *MockProvider) SignIn(ctx context.Context, email, password string) (*homie.Session, error) {
	args := m.Called(ctx, email, password)
	session, _ := args.Get(0).(*homie.Session)
	return session, args.Error(1)
}

func (m *MockProvider) SignUp(ctx context.Context, email, password string) (*homie.Session, error) {
	args := m.Called(ctx, email, password)
	session, _ := args.Get(0).(*homie.Session)
	return session, args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Emit delivers session to every live listener.
func (m *MockProvider) Emit(session *homie.Session) {
	m.mu.Lock()
	listeners := make([]homie.Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(session)
	}
}

// Listeners returns the number of live subscriptions.
func (m *MockProvider) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// Released returns how many subscriptions were released.
func (m *MockProvider) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// capturingProvider keeps every listener it was handed, even released ones,
// so tests can simulate a notification already in flight.
type capturingProvider struct {
	*MockProvider
	captured []homie.Listener
}

func newCapturingProvider() *capturingProvider {
	return &capturingProvider{MockProvider: NewMockProvider()}
}

func (c *capturingProvider) Subscribe(listener homie.Listener) homie.Unsubscribe {
	c.captured = append(c.captured, listener)
	return c.MockProvider.Subscribe(listener)
}

type recordingSink struct {
	mu     sync.Mutex
	events []homie.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event homie.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) Types() []homie.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]homie.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

func alice() *homie.Session {
	return &homie.Session{UserID: "u1", Email: "alice@example.com", DisplayName: "alice", Token: "t1"}
}

func bob() *homie.Session {
	return &homie.Session{UserID: "u2", Email: "bob@example.com", DisplayName: "bob", Token: "t2"}
}
