package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-homie"
	"github.com/goliatone/go-homie/control"
)

type authFocus int

const (
	focusEmail authFocus = iota
	focusPassword
	focusSubmit
	focusToggle
	focusCount
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
	focusedStyle = lipgloss.NewStyle().Foreground(control.ColorAccent)
)

// authView is the unauthenticated screen.
type authView struct {
	app   *Model
	mount uint64
	form  *homie.AuthForm

	email    textinput.Model
	password textinput.Model
	focus    authFocus
	pressed  authFocus
}

func newAuthView(app *Model, mount uint64) *authView {
	email := textinput.New()
	email.Placeholder = "Email"
	email.CharLimit = 254
	email.Prompt = "  "

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.Prompt = "  "

	return &authView{
		app:   app,
		mount: mount,
		form: homie.NewAuthForm(
			homie.WithFormLogger(app.logger),
			homie.WithFormActivitySink(app.activitySink),
		),
		email:    email,
		password: password,
		pressed:  focusCount,
	}
}

func (v *authView) init() tea.Cmd {
	return tea.Batch(v.email.Focus(), textinput.Blink)
}

func (v *authView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case authDoneMsg:
		v.form.Complete(msg.err)
		return v.refocus()

	case pressReleasedMsg:
		v.pressed = focusCount
		return nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Next):
			return v.move(1)
		case key.Matches(msg, keys.Prev):
			return v.move(-1)
		case key.Matches(msg, keys.Activate):
			return v.activate()
		}
	}

	if !v.form.Editable() {
		return nil
	}

	var cmd tea.Cmd
	switch v.focus {
	case focusEmail:
		v.email, cmd = v.email.Update(msg)
		v.form.Email = v.email.Value()
	case focusPassword:
		v.password, cmd = v.password.Update(msg)
		v.form.Password = v.password.Value()
	}
	return cmd
}

func (v *authView) move(delta int) tea.Cmd {
	v.focus = (v.focus + authFocus(delta) + focusCount) % focusCount
	return v.refocus()
}

func (v *authView) refocus() tea.Cmd {
	v.email.Blur()
	v.password.Blur()
	if !v.form.Editable() {
		return nil
	}
	switch v.focus {
	case focusEmail:
		return v.email.Focus()
	case focusPassword:
		return v.password.Focus()
	}
	return nil
}

func (v *authView) activate() tea.Cmd {
	switch v.focus {
	case focusEmail:
		return v.move(1)
	case focusPassword, focusSubmit:
		return v.press(focusSubmit, v.submitProps(nil))
	case focusToggle:
		return v.press(focusToggle, v.toggleProps(nil))
	}
	return nil
}

// press activates the control at target through control.Press so disabled
// and loading controls ignore it.
func (v *authView) press(target authFocus, props control.Props) tea.Cmd {
	var cmd tea.Cmd
	props.OnPress = func() {
		v.pressed = target
		if target == focusToggle {
			v.form.Toggle()
			cmd = releaseAfter(v.mount)
			return
		}
		cmd = tea.Batch(v.submit(), releaseAfter(v.mount))
	}
	if !control.Press(props) {
		return nil
	}
	return cmd
}

func (v *authView) submit() tea.Cmd {
	creds, err := v.form.Begin()
	if err != nil {
		return nil
	}
	v.email.Blur()
	v.password.Blur()

	mount, mode, provider := v.mount, v.form.Mode(), v.app.provider
	ctx, cancel := v.app.operation()
	return func() tea.Msg {
		defer cancel()
		return authDoneMsg{mount: mount, err: homie.Authenticate(ctx, provider, mode, creds)}
	}
}

func (v *authView) submitProps(onPress func()) control.Props {
	return control.Props{
		OnPress: onPress,
		Title:   v.form.SubmitLabel(),
		Loading: v.form.Loading(),
		Pressed: v.pressed == focusSubmit,
		Variant: v.app.variant,
		Size:    v.app.size,
	}
}

func (v *authView) toggleProps(onPress func()) control.Props {
	return control.Props{
		OnPress:  onPress,
		Title:    v.form.ToggleLabel(),
		Disabled: v.form.Loading(),
		Pressed:  v.pressed == focusToggle,
		Variant:  control.Outline,
		Size:     control.Small,
	}
}

func (v *authView) view(indicator string) string {
	rows := []string{
		titleStyle.Render(v.form.Title()),
		v.field(focusEmail, v.email.View()),
		v.field(focusPassword, v.password.View()),
	}
	if msg := v.form.Message(); msg != "" {
		rows = append(rows, errorStyle.Render(msg))
	}
	rows = append(rows,
		"",
		v.field(focusSubmit, control.Render(v.submitProps(nil), indicator)),
		v.field(focusToggle, control.Render(v.toggleProps(nil), indicator)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *authView) field(target authFocus, content string) string {
	marker := "  "
	if v.focus == target {
		marker = focusedStyle.Render("> ")
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, marker, content)
}
