package homie

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session is the identity a provider reports for the current user.
// A nil *Session means no user is signed in.
type Session struct {
	UserID      string    `json:"user_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Token       string    `json:"-"`
	IssuedAt    time.Time `json:"issued_at,omitempty"`
}

// Present reports whether the session identifies a user.
func (s *Session) Present() bool {
	return s != nil
}

// Name returns the display name, falling back to the email.
func (s *Session) Name() string {
	if s == nil {
		return ""
	}
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Email
}

// Equal compares two sessions by identity. Two absent sessions are equal.
func (s *Session) Equal(other *Session) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}
	return s.UserID == other.UserID &&
		s.Email == other.Email &&
		s.DisplayName == other.DisplayName &&
		s.Token == other.Token
}

func (s *Session) String() string {
	if s == nil {
		return "absent"
	}
	return fmt.Sprintf("present(id=%q)", s.UserID)
}

// Listener receives every session change, starting with the current one.
type Listener func(session *Session)

// Unsubscribe releases a subscription. Calling it more than once is safe.
type Unsubscribe func()

// Subscriber is the notification half of an identity provider.
type Subscriber interface {
	Subscribe(listener Listener) Unsubscribe
}

// Provider is the external identity provider consumed by the client.
// Successful mutations are reported through the subscription; the returned
// session is informational only.
type Provider interface {
	Subscriber
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
}

// Credentials are the values collected by the sign in form.
type Credentials struct {
	Email    string
	Password string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] HOMIE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] HOMIE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] HOMIE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] HOMIE "+newline(format), args...)
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
