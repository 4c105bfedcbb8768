package homie

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// AuthErrorKind classifies provider operation failures.
type AuthErrorKind string

const (
	KindUnknown           AuthErrorKind = ""
	KindInvalidEmail      AuthErrorKind = "auth/invalid-email"
	KindEmailAlreadyInUse AuthErrorKind = "auth/email-already-in-use"
	KindWeakPassword      AuthErrorKind = "auth/weak-password"
	KindUserNotFound      AuthErrorKind = "auth/user-not-found"
	KindWrongPassword     AuthErrorKind = "auth/wrong-password"
	KindInvalidCredential AuthErrorKind = "auth/invalid-credential"
	KindUserDisabled      AuthErrorKind = "auth/user-disabled"
	KindTooManyRequests   AuthErrorKind = "auth/too-many-requests"
	KindNetwork           AuthErrorKind = "auth/network-request-failed"
	KindInternal          AuthErrorKind = "auth/internal-error"
	KindMissingFields     AuthErrorKind = "form/missing-fields"
)

// ErrInvalidEmail is returned when the email is not a valid address.
var ErrInvalidEmail = goerrors.New("invalid email address", goerrors.CategoryValidation).
	WithTextCode(string(KindInvalidEmail)).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailAlreadyInUse is returned on sign up with a registered email.
var ErrEmailAlreadyInUse = goerrors.New("email already in use", goerrors.CategoryConflict).
	WithTextCode(string(KindEmailAlreadyInUse)).
	WithCode(goerrors.CodeConflict)

// ErrWeakPassword is returned on sign up when the password is too short.
var ErrWeakPassword = goerrors.New("password is too weak", goerrors.CategoryValidation).
	WithTextCode(string(KindWeakPassword)).
	WithCode(goerrors.CodeBadRequest)

// ErrUserNotFound is returned on sign in for an unknown email.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(string(KindUserNotFound)).
	WithCode(goerrors.CodeNotFound)

// ErrWrongPassword is returned on sign in when the password does not match.
var ErrWrongPassword = goerrors.New("wrong password", goerrors.CategoryAuth).
	WithTextCode(string(KindWrongPassword)).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredential is returned when the provider does not say which
// credential was wrong.
var ErrInvalidCredential = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(string(KindInvalidCredential)).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserDisabled is returned when the account exists but cannot sign in.
var ErrUserDisabled = goerrors.New("user disabled", goerrors.CategoryAuth).
	WithTextCode(string(KindUserDisabled)).
	WithCode(goerrors.CodeForbidden)

// ErrTooManyRequests is returned when the provider throttles the client.
var ErrTooManyRequests = goerrors.New("too many requests", goerrors.CategoryAuth).
	WithTextCode(string(KindTooManyRequests)).
	WithCode(goerrors.CodeTooManyRequests)

// ErrNetwork is returned when the provider could not be reached.
var ErrNetwork = goerrors.New("network request failed", goerrors.CategoryOperation).
	WithTextCode(string(KindNetwork)).
	WithCode(http.StatusServiceUnavailable)

// ErrInternal is returned for unexpected provider failures.
var ErrInternal = goerrors.New("internal provider error", goerrors.CategoryInternal).
	WithTextCode(string(KindInternal)).
	WithCode(goerrors.CodeInternal)

// ErrMissingFields is returned by the form when email or password is empty.
var ErrMissingFields = goerrors.New("email and password are required", goerrors.CategoryBadInput).
	WithTextCode(string(KindMissingFields)).
	WithCode(goerrors.CodeBadRequest)

// ErrObserverActive is returned when Start is called on a running observer.
var ErrObserverActive = goerrors.New("observer already subscribed", goerrors.CategoryOperation).
	WithTextCode("OBSERVER_ACTIVE").
	WithCode(goerrors.CodeConflict)

// ErrFormPending is returned when a form is submitted while a previous
// submission has not completed.
var ErrFormPending = goerrors.New("operation already in progress", goerrors.CategoryOperation).
	WithTextCode("FORM_PENDING").
	WithCode(goerrors.CodeConflict)

var errorsByKind = map[AuthErrorKind]*goerrors.Error{
	KindInvalidEmail:      ErrInvalidEmail,
	KindEmailAlreadyInUse: ErrEmailAlreadyInUse,
	KindWeakPassword:      ErrWeakPassword,
	KindUserNotFound:      ErrUserNotFound,
	KindWrongPassword:     ErrWrongPassword,
	KindInvalidCredential: ErrInvalidCredential,
	KindUserDisabled:      ErrUserDisabled,
	KindTooManyRequests:   ErrTooManyRequests,
	KindNetwork:           ErrNetwork,
	KindInternal:          ErrInternal,
	KindMissingFields:     ErrMissingFields,
}

// NewAuthError returns a copy of the sentinel for kind with cause attached.
// Unknown kinds produce an internal error.
func NewAuthError(kind AuthErrorKind, cause error) error {
	base, ok := errorsByKind[kind]
	if !ok {
		base = ErrInternal
	}

	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if cause != nil {
		clone.Source = cause
		clone.WithMetadata(map[string]any{"error": cause.Error()})
	}
	return clone
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) AuthErrorKind {
	for err != nil {
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) || rich == nil {
			return KindUnknown
		}
		kind := AuthErrorKind(rich.TextCode)
		if _, ok := errorsByKind[kind]; ok {
			return kind
		}
		err = rich.Source
	}
	return KindUnknown
}

// Message maps a failure to the copy shown to the user. It never returns an
// empty string for a non-nil error.
func Message(err error) string {
	if err == nil {
		return ""
	}

	switch KindOf(err) {
	case KindMissingFields:
		return "Please fill in all fields"
	case KindEmailAlreadyInUse:
		return "This email is already registered"
	case KindInvalidEmail:
		return "Please enter a valid email address"
	case KindWeakPassword:
		return "Password should be at least 6 characters"
	case KindUserNotFound, KindWrongPassword, KindInvalidCredential:
		return "Invalid email or password"
	case KindUserDisabled:
		return "This account has been disabled"
	case KindTooManyRequests:
		return "Too many attempts, please try again later"
	case KindNetwork:
		return "Network error, please try again"
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil && strings.TrimSpace(rich.Message) != "" {
		return rich.Message
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "Authentication failed"
}
