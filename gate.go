package homie

import (
	"context"
	"sync"
)

// GateStatus is the variant tag of a GateState.
type GateStatus int

const (
	StatusInitializing GateStatus = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s GateStatus) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// View identifies the top level view mounted for a GateState.
type View int

const (
	ViewNone View = iota
	ViewUnauthenticated
	ViewAuthenticated
)

func (v View) String() string {
	switch v {
	case ViewUnauthenticated:
		return "Auth"
	case ViewAuthenticated:
		return "Home"
	default:
		return ""
	}
}

// GateState is the navigation gate state. Only the authenticated variant
// carries a session.
type GateState struct {
	status  GateStatus
	session *Session
}

// Initializing returns the initial gate state.
func Initializing() GateState {
	return GateState{status: StatusInitializing}
}

// Next applies a session notification. It is total: every state accepts
// every notification, and no result is ever Initializing.
func (s GateState) Next(session *Session) GateState {
	if session == nil {
		return GateState{status: StatusUnauthenticated}
	}
	return GateState{status: StatusAuthenticated, session: session}
}

func (s GateState) Status() GateStatus {
	return s.status
}

// Session returns the session for the authenticated variant, nil otherwise.
func (s GateState) Session() *Session {
	return s.session
}

// View returns the single view mounted for this state.
func (s GateState) View() View {
	switch s.status {
	case StatusUnauthenticated:
		return ViewUnauthenticated
	case StatusAuthenticated:
		return ViewAuthenticated
	default:
		return ViewNone
	}
}

// Equal reports whether both states are the same variant with the same
// session.
func (s GateState) Equal(other GateState) bool {
	return s.status == other.status && s.session.Equal(other.session)
}

func (s GateState) String() string {
	if s.status == StatusAuthenticated {
		return s.status.String() + "(" + s.session.UserID + ")"
	}
	return s.status.String()
}

// Transition describes the result of Gate.Handle.
type Transition struct {
	From    GateState
	To      GateState
	Changed bool
}

// GateOption customizes a Gate.
type GateOption func(*Gate)

// WithGateRenderer registers the function re-evaluated after every state
// change. It is not called when a notification leaves the state unchanged.
func WithGateRenderer(render func(GateState)) GateOption {
	return func(g *Gate) {
		g.render = render
	}
}

// WithGateLogger sets the logger.
func WithGateLogger(logger Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGateActivitySink records every state change.
func WithGateActivitySink(sink ActivitySink) GateOption {
	return func(g *Gate) {
		g.activitySink = normalizeActivitySink(sink)
	}
}

// Gate selects which top level view is mounted based on session
// notifications.
type Gate struct {
	mu           sync.Mutex
	state        GateState
	render       func(GateState)
	logger       Logger
	activitySink ActivitySink
}

// NewGate returns a gate in the Initializing state.
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		state:        Initializing(),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Handle applies a session notification and returns the transition.
func (g *Gate) Handle(session *Session) Transition {
	g.mu.Lock()
	from := g.state
	to := from.Next(session)
	changed := !from.Equal(to)
	if changed {
		g.state = to
	}
	render := g.render
	g.mu.Unlock()

	t := Transition{From: from, To: to, Changed: changed}
	if !changed {
		return t
	}

	g.logger.Debug("gate transition %s -> %s", from, to)
	RecordActivity(context.Background(), g.activitySink, g.logger, ActivityEvent{
		EventType: ActivityEventGateTransition,
		UserID:    userID(session),
		Metadata: map[string]any{
			"from": from.Status().String(),
			"to":   to.Status().String(),
		},
	})

	if render != nil {
		render(to)
	}
	return t
}

// State returns the current state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// View returns the view mounted for the current state.
func (g *Gate) View() View {
	return g.State().View()
}

func userID(session *Session) string {
	if session == nil {
		return ""
	}
	return session.UserID
}
