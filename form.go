package homie

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Validate checks that both credentials were provided.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

// AuthMode selects the provider operation the auth form performs.
type AuthMode int

const (
	ModeSignIn AuthMode = iota
	ModeSignUp
)

func (m AuthMode) String() string {
	if m == ModeSignUp {
		return "signup"
	}
	return "signin"
}

// Authenticate runs the provider operation for mode.
func Authenticate(ctx context.Context, provider Provider, mode AuthMode, creds Credentials) error {
	var err error
	if mode == ModeSignUp {
		_, err = provider.SignUp(ctx, creds.Email, creds.Password)
	} else {
		_, err = provider.SignIn(ctx, creds.Email, creds.Password)
	}
	return err
}

// FormOption customizes AuthForm and SignOutAction.
type FormOption func(*formDeps)

type formDeps struct {
	logger       Logger
	activitySink ActivitySink
}

// WithFormLogger sets the logger.
func WithFormLogger(logger Logger) FormOption {
	return func(d *formDeps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithFormActivitySink records operation outcomes.
func WithFormActivitySink(sink ActivitySink) FormOption {
	return func(d *formDeps) {
		d.activitySink = normalizeActivitySink(sink)
	}
}

func newFormDeps(opts []FormOption) formDeps {
	d := formDeps{logger: defLogger{}, activitySink: noopActivitySink{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	return d
}

// AuthForm is the state behind the unauthenticated view. It does not touch
// the gate: a successful operation is observed through the provider's
// subscription.
type AuthForm struct {
	Email    string
	Password string

	mode    AuthMode
	loading bool
	message string
	deps    formDeps
}

// NewAuthForm returns an empty form in sign in mode.
func NewAuthForm(opts ...FormOption) *AuthForm {
	return &AuthForm{deps: newFormDeps(opts)}
}

func (f *AuthForm) Mode() AuthMode { return f.mode }
func (f *AuthForm) Loading() bool  { return f.loading }

// Message is the last user visible error, empty when there is none.
func (f *AuthForm) Message() string { return f.message }

// Editable reports whether the inputs accept changes.
func (f *AuthForm) Editable() bool { return !f.loading }

func (f *AuthForm) Title() string {
	if f.mode == ModeSignUp {
		return "Create Account"
	}
	return "Welcome Back"
}

func (f *AuthForm) SubmitLabel() string {
	if f.mode == ModeSignUp {
		return "Sign Up"
	}
	return "Sign In"
}

func (f *AuthForm) ToggleLabel() string {
	if f.mode == ModeSignUp {
		return "Already have an account? Sign In"
	}
	return "Need an account? Sign Up"
}

// Toggle switches between sign in and sign up and clears the message.
// It does nothing while an operation is pending.
func (f *AuthForm) Toggle() bool {
	if f.loading {
		return false
	}
	if f.mode == ModeSignUp {
		f.mode = ModeSignIn
	} else {
		f.mode = ModeSignUp
	}
	f.message = ""
	return true
}

// Begin validates the fields and marks the form as loading. When it returns
// an error no provider call must be made and the form stays interactive.
func (f *AuthForm) Begin() (Credentials, error) {
	if f.loading {
		return Credentials{}, ErrFormPending
	}

	creds := Credentials{
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
	}
	if err := creds.Validate(); err != nil {
		missing := NewAuthError(KindMissingFields, err)
		f.message = Message(missing)
		return Credentials{}, missing
	}

	f.loading = true
	f.message = ""
	return creds, nil
}

// Complete ends a pending operation. It always clears loading; a failure
// sets the user visible message.
func (f *AuthForm) Complete(err error) {
	f.loading = false

	event := ActivityEvent{
		EventType: ActivityEventSignInSuccess,
		Metadata:  map[string]any{"email": strings.TrimSpace(f.Email)},
	}
	if f.mode == ModeSignUp {
		event.EventType = ActivityEventSignUpSuccess
	}

	if err != nil {
		f.message = Message(err)
		f.deps.logger.Error("%s failed: %v", f.mode, err)
		event.EventType = ActivityEventSignInFailure
		if f.mode == ModeSignUp {
			event.EventType = ActivityEventSignUpFailure
		}
		event.Metadata["kind"] = string(KindOf(err))
	}

	RecordActivity(context.Background(), f.deps.activitySink, f.deps.logger, event)
}

// Submit runs a whole sign in or sign up round trip synchronously.
func (f *AuthForm) Submit(ctx context.Context, provider Provider) (err error) {
	creds, err := f.Begin()
	if err != nil {
		return err
	}
	defer func() { f.Complete(err) }()

	return Authenticate(ctx, provider, f.mode, creds)
}

// SignOutAction is the state behind the authenticated view's sign out
// control.
type SignOutAction struct {
	loading bool
	message string
	deps    formDeps
}

// NewSignOutAction returns an idle action.
func NewSignOutAction(opts ...FormOption) *SignOutAction {
	return &SignOutAction{deps: newFormDeps(opts)}
}

func (a *SignOutAction) Loading() bool   { return a.loading }
func (a *SignOutAction) Message() string { return a.message }

// Begin marks the action as pending. It returns false if one already is.
func (a *SignOutAction) Begin() bool {
	if a.loading {
		return false
	}
	a.loading = true
	a.message = ""
	return true
}

// Complete ends a pending sign out.
func (a *SignOutAction) Complete(err error) {
	a.loading = false
	event := ActivityEvent{EventType: ActivityEventSignOutSuccess}
	if err != nil {
		a.message = Message(err)
		a.deps.logger.Error("sign out error: %v", err)
		event.EventType = ActivityEventSignOutFailure
		event.Metadata = map[string]any{"kind": string(KindOf(err))}
	}
	RecordActivity(context.Background(), a.deps.activitySink, a.deps.logger, event)
}

// Run performs the sign out synchronously.
func (a *SignOutAction) Run(ctx context.Context, provider Provider) (err error) {
	if !a.Begin() {
		return nil
	}
	defer func() { a.Complete(err) }()
	return provider.SignOut(ctx)
}
