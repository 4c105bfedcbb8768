// Package tui is the terminal client. The root Model mounts exactly one of
// the auth and home views, chosen by a homie.Gate fed from the provider's
// session notifications.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-homie"
	"github.com/goliatone/go-homie/control"
)

const pressFeedback = 120 * time.Millisecond

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Padding(0, 2)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Option customizes the Model.
type Option func(*Model)

// WithTitle sets the home screen title.
func WithTitle(title string) Option {
	return func(m *Model) {
		if title != "" {
			m.title = title
		}
	}
}

// WithButton sets the variant and size of primary actions.
func WithButton(variant control.Variant, size control.Size) Option {
	return func(m *Model) {
		m.variant = variant
		m.size = size
	}
}

// WithTimeout bounds every provider operation.
func WithTimeout(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger homie.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithActivitySink records gate transitions and view outcomes.
func WithActivitySink(sink homie.ActivitySink) Option {
	return func(m *Model) {
		m.activitySink = sink
	}
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx          context.Context
	provider     homie.Provider
	gate         *homie.Gate
	observer     *homie.Observer
	feed         *sessionFeed
	spinner      spinner.Model
	logger       homie.Logger
	activitySink homie.ActivitySink

	title   string
	variant control.Variant
	size    control.Size
	timeout time.Duration

	mounts  uint64
	auth    *authView
	home    *homeView
	pending []tea.Cmd

	width  int
	height int
}

// New returns the root model. The provider subscription is taken in Init
// and released by Close.
func New(ctx context.Context, provider homie.Provider, opts ...Option) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctx:      ctx,
		provider: provider,
		feed:     newSessionFeed(),
		spinner:  sp,
		logger:   homie.DefaultLogger(),
		title:    "Homie",
		variant:  control.Primary,
		size:     control.Medium,
		timeout:  15 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.gate = homie.NewGate(
		homie.WithGateRenderer(m.mount),
		homie.WithGateLogger(m.logger),
		homie.WithGateActivitySink(m.activitySink),
	)
	m.observer = homie.NewObserver(provider, m.feed.push, homie.WithObserverLogger(m.logger))
	return m
}

// Init subscribes to the provider. Notifications replayed from inside
// Subscribe wait in the feed until the loop picks them up.
func (m *Model) Init() tea.Cmd {
	if err := m.observer.Start(); err != nil {
		m.logger.Error("observer start: %v", err)
	}
	return tea.Batch(m.feed.wait(), m.spinner.Tick)
}

// Close releases the provider subscription. Safe to call more than once.
func (m *Model) Close() {
	m.observer.Stop()
	m.feed.close()
}

// State returns the gate state.
func (m *Model) State() homie.GateState {
	return m.gate.State()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.Close()
			return m, tea.Quit
		}

	case sessionChangedMsg:
		m.gate.Handle(msg.session)
		return m, tea.Batch(append(m.drain(), m.feed.wait())...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case authDoneMsg:
		if m.auth == nil || m.auth.mount != msg.mount {
			m.logger.Debug("dropping auth result for unmounted view %d", msg.mount)
			return m, nil
		}

	case signOutDoneMsg:
		if m.home == nil || m.home.mount != msg.mount {
			m.logger.Debug("dropping sign out result for unmounted view %d", msg.mount)
			return m, nil
		}

	case pressReleasedMsg:
		if !m.mounted(msg.mount) {
			return m, nil
		}
	}

	switch {
	case m.auth != nil:
		return m, m.auth.update(msg)
	case m.home != nil:
		return m, m.home.update(msg)
	}
	return m, nil
}

func (m *Model) View() string {
	var body string
	state := m.gate.State()

	switch state.View() {
	case homie.ViewNone:
		return ""
	case homie.ViewUnauthenticated:
		body = m.auth.view(m.spinner.View())
	case homie.ViewAuthenticated:
		body = m.home.view(m.spinner.View())
	}

	header := headerStyle.Render(state.View().String())
	help := helpStyle.Render(helpLine(keys.Next, keys.Activate, keys.Quit))
	page := lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", help)

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, page)
	}
	return page
}

// mount is the gate renderer. It runs once per state change, on the event
// loop, and keeps exactly one view instance alive.
func (m *Model) mount(state homie.GateState) {
	switch state.View() {
	case homie.ViewUnauthenticated:
		if m.auth != nil {
			return
		}
		m.home = nil
		m.mounts++
		m.auth = newAuthView(m, m.mounts)
		m.pending = append(m.pending, m.auth.init())
	case homie.ViewAuthenticated:
		if m.home != nil {
			m.home.session = state.Session()
			return
		}
		m.auth = nil
		m.mounts++
		m.home = newHomeView(m, m.mounts, state.Session())
	}
}

func (m *Model) mounted(mount uint64) bool {
	return (m.auth != nil && m.auth.mount == mount) || (m.home != nil && m.home.mount == mount)
}

func (m *Model) drain() []tea.Cmd {
	cmds := m.pending
	m.pending = nil
	return cmds
}

// operation returns a context for one provider call.
func (m *Model) operation() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, m.timeout)
}

func releaseAfter(mount uint64) tea.Cmd {
	return tea.Tick(pressFeedback, func(time.Time) tea.Msg {
		return pressReleasedMsg{mount: mount}
	})
}
