package homie

import "sync"

// SessionHandler receives session notifications forwarded by an Observer.
type SessionHandler func(session *Session)

// ObserverOption customizes an Observer.
type ObserverOption func(*Observer)

// WithObserverDispatcher routes handler invocations through dispatch, e.g.
// onto a UI event loop. The default runs the handler on the notifying
// goroutine.
func WithObserverDispatcher(dispatch func(func())) ObserverOption {
	return func(o *Observer) {
		if dispatch != nil {
			o.dispatch = dispatch
		}
	}
}

// WithObserverLogger sets the logger.
func WithObserverLogger(logger Logger) ObserverOption {
	return func(o *Observer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Observer holds a single provider subscription and mirrors the latest
// session it reported.
type Observer struct {
	provider Subscriber
	handler  SessionHandler
	dispatch func(func())
	logger   Logger

	mu           sync.Mutex
	unsubscribe  Unsubscribe
	generation   uint64
	initializing bool
	session      *Session
}

// NewObserver returns an inactive observer. Call Start to subscribe.
func NewObserver(provider Subscriber, handler SessionHandler, opts ...ObserverOption) *Observer {
	o := &Observer{
		provider:     provider,
		handler:      handler,
		dispatch:     func(fn func()) { fn() },
		logger:       defLogger{},
		initializing: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Start registers the observer's listener with the provider.
func (o *Observer) Start() error {
	o.mu.Lock()
	if o.unsubscribe != nil {
		o.mu.Unlock()
		return ErrObserverActive
	}
	o.generation++
	gen := o.generation
	o.mu.Unlock()

	unsubscribe := o.provider.Subscribe(func(session *Session) {
		o.notify(gen, session)
	})
	if unsubscribe == nil {
		unsubscribe = func() {}
	}

	o.mu.Lock()
	// Stop may have run while Subscribe was in flight.
	if o.generation != gen {
		o.mu.Unlock()
		unsubscribe()
		return nil
	}
	o.unsubscribe = unsubscribe
	o.mu.Unlock()

	o.logger.Debug("observer subscribed")
	return nil
}

// Stop releases the subscription. Notifications that arrive afterwards are
// dropped. Stop is idempotent.
func (o *Observer) Stop() {
	o.mu.Lock()
	unsubscribe := o.unsubscribe
	o.unsubscribe = nil
	o.generation++
	o.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		o.logger.Debug("observer unsubscribed")
	}
}

// Active reports whether the observer currently holds a subscription.
func (o *Observer) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.unsubscribe != nil
}

// Initializing is true until the first notification arrives.
func (o *Observer) Initializing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.initializing
}

// Session returns the last session reported by the provider.
func (o *Observer) Session() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

func (o *Observer) notify(gen uint64, session *Session) {
	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		o.logger.Debug("observer dropped notification after teardown")
		return
	}
	if o.initializing {
		o.initializing = false
	}
	o.session = session
	o.mu.Unlock()

	if o.handler == nil {
		return
	}
	o.dispatch(func() {
		if !o.current(gen) {
			return
		}
		o.handler(session)
	})
}

func (o *Observer) current(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation == gen
}
