package identitytoolkit

import (
	"strings"

	"github.com/goliatone/go-homie"
)

const (
	PathSignIn = "/v1/accounts:signInWithPassword"
	PathSignUp = "/v1/accounts:signUp"
)

// Error messages returned in ErrorResponse.Error.Message.
const (
	MsgEmailExists             = "EMAIL_EXISTS"
	MsgInvalidEmail            = "INVALID_EMAIL"
	MsgWeakPassword            = "WEAK_PASSWORD"
	MsgEmailNotFound           = "EMAIL_NOT_FOUND"
	MsgInvalidPassword         = "INVALID_PASSWORD"
	MsgInvalidLoginCredentials = "INVALID_LOGIN_CREDENTIALS"
	MsgUserDisabled            = "USER_DISABLED"
	MsgTooManyAttempts         = "TOO_MANY_ATTEMPTS_TRY_LATER"
	MsgMissingPassword         = "MISSING_PASSWORD"
	MsgMissingEmail            = "MISSING_EMAIL"
	MsgAPIKeyInvalid           = "API_KEY_INVALID"
	MsgInternal                = "INTERNAL_ERROR"
)

// PasswordRequest is the body of both sign in and sign up.
type PasswordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// AuthResponse is returned by successful sign in and sign up calls.
type AuthResponse struct {
	Kind         string `json:"kind,omitempty"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName,omitempty"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    string `json:"expiresIn,omitempty"`
	Registered   bool   `json:"registered,omitempty"`
}

// ErrorResponse is returned by failed calls.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// KindForMessage classifies an error message. Messages may carry a detail
// suffix, as in "WEAK_PASSWORD : Password should be at least 6 characters".
func KindForMessage(msg string) homie.AuthErrorKind {
	code := strings.TrimSpace(msg)
	if i := strings.Index(code, " "); i > 0 {
		code = code[:i]
	}

	switch code {
	case MsgEmailExists:
		return homie.KindEmailAlreadyInUse
	case MsgInvalidEmail, MsgMissingEmail:
		return homie.KindInvalidEmail
	case MsgWeakPassword:
		return homie.KindWeakPassword
	case MsgEmailNotFound:
		return homie.KindUserNotFound
	case MsgInvalidPassword:
		return homie.KindWrongPassword
	case MsgInvalidLoginCredentials, MsgMissingPassword:
		return homie.KindInvalidCredential
	case MsgUserDisabled:
		return homie.KindUserDisabled
	case MsgTooManyAttempts:
		return homie.KindTooManyRequests
	default:
		return homie.KindInternal
	}
}

// MessageForKind is the inverse of KindForMessage.
func MessageForKind(kind homie.AuthErrorKind) string {
	switch kind {
	case homie.KindEmailAlreadyInUse:
		return MsgEmailExists
	case homie.KindInvalidEmail:
		return MsgInvalidEmail
	case homie.KindWeakPassword:
		return MsgWeakPassword + " : Password should be at least 6 characters"
	case homie.KindUserNotFound:
		return MsgEmailNotFound
	case homie.KindWrongPassword:
		return MsgInvalidPassword
	case homie.KindInvalidCredential:
		return MsgInvalidLoginCredentials
	case homie.KindUserDisabled:
		return MsgUserDisabled
	case homie.KindTooManyRequests:
		return MsgTooManyAttempts
	default:
		return MsgInternal
	}
}
