package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/goliatone/go-homie"
)

// sessionFeed moves observer notifications onto the Bubble Tea event loop
// in the order they were emitted. push never blocks, so a provider may
// notify from inside Subscribe before the loop is running.
type sessionFeed struct {
	mu     sync.Mutex
	queue  []*homie.Session
	closed bool
	ready  chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newSessionFeed() *sessionFeed {
	return &sessionFeed{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// push queues session. It is dropped once the feed is closed.
func (f *sessionFeed) push(session *homie.Session) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.queue = append(f.queue, session)
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
}

// next pops the oldest queued session.
func (f *sessionFeed) next() (*homie.Session, bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false, true
	}
	if len(f.queue) == 0 {
		return nil, false, false
	}
	session := f.queue[0]
	f.queue[0] = nil
	f.queue = f.queue[1:]
	return session, true, false
}

func (f *sessionFeed) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func (f *sessionFeed) wait() tea.Cmd {
	return func() tea.Msg {
		for {
			session, ok, closed := f.next()
			switch {
			case closed:
				return nil
			case ok:
				return sessionChangedMsg{session: session}
			}

			select {
			case <-f.ready:
			case <-f.done:
				return nil
			}
		}
	}
}

func (f *sessionFeed) close() {
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.queue = nil
		f.mu.Unlock()
		close(f.done)
	})
}
