package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-homie"
	"github.com/goliatone/go-homie/control"
)

var subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

// homeView is the authenticated screen.
type homeView struct {
	app     *Model
	mount   uint64
	session *homie.Session
	action  *homie.SignOutAction
	pressed bool
}

func newHomeView(app *Model, mount uint64, session *homie.Session) *homeView {
	return &homeView{
		app:     app,
		mount:   mount,
		session: session,
		action: homie.NewSignOutAction(
			homie.WithFormLogger(app.logger),
			homie.WithFormActivitySink(app.activitySink),
		),
	}
}

func (v *homeView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case signOutDoneMsg:
		v.action.Complete(msg.err)
	case pressReleasedMsg:
		v.pressed = false
	case tea.KeyMsg:
		if key.Matches(msg, keys.Activate) {
			return v.press()
		}
	}
	return nil
}

func (v *homeView) press() tea.Cmd {
	var cmd tea.Cmd
	props := v.props()
	props.OnPress = func() {
		v.pressed = true
		cmd = tea.Batch(v.signOut(), releaseAfter(v.mount))
	}
	if !control.Press(props) {
		return nil
	}
	return cmd
}

func (v *homeView) signOut() tea.Cmd {
	if !v.action.Begin() {
		return nil
	}
	mount, provider := v.mount, v.app.provider
	ctx, cancel := v.app.operation()
	return func() tea.Msg {
		defer cancel()
		return signOutDoneMsg{mount: mount, err: provider.SignOut(ctx)}
	}
}

func (v *homeView) props() control.Props {
	return control.Props{
		Title:   "Sign Out",
		Loading: v.action.Loading(),
		Pressed: v.pressed,
		Variant: v.app.variant,
		Size:    v.app.size,
	}
}

func (v *homeView) view(indicator string) string {
	rows := []string{
		titleStyle.Render(v.app.title),
		"Signed in as " + v.session.Name(),
	}
	if v.session.Email != "" && v.session.Email != v.session.Name() {
		rows = append(rows, subtleStyle.Render(v.session.Email))
	}
	if msg := v.action.Message(); msg != "" {
		rows = append(rows, errorStyle.Render(msg))
	}
	rows = append(rows, "", control.Render(v.props(), indicator))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
