// Package server exposes a local account store over the Identity Toolkit
// REST shape so remote clients can sign in with the identitytoolkit
// provider.
package server

import (
	"context"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/goliatone/go-homie"
	"github.com/goliatone/go-homie/provider/identitytoolkit"
)

// Accounts verifies and registers identities. *local.Accounts satisfies it.
type Accounts interface {
	SignIn(ctx context.Context, email, password string) (*homie.Session, error)
	SignUp(ctx context.Context, email, password string) (*homie.Session, error)
}

// Config holds server options.
type Config interface {
	GetAPIKey() string
	GetTokenExpiration() int
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger homie.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server serves sign in and sign up endpoints.
type Server struct {
	app       *fiber.App
	accounts  Accounts
	apiKey    string
	expiresIn string
	logger    homie.Logger
}

// New builds the server and registers its routes.
func New(accounts Accounts, cfg Config, opts ...Option) *Server {
	hours := cfg.GetTokenExpiration()
	if hours <= 0 {
		hours = 1
	}

	s := &Server{
		accounts:  accounts,
		apiKey:    cfg.GetAPIKey(),
		expiresIn: strconv.Itoa(hours * 3600),
		logger:    homie.DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("identity server listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	s.app.Post(escape(identitytoolkit.PathSignIn), s.requireAPIKey, s.handle(homie.ModeSignIn))
	s.app.Post(escape(identitytoolkit.PathSignUp), s.requireAPIKey, s.handle(homie.ModeSignUp))
}

// escape keeps fiber from reading the colon in "accounts:signUp" as a
// route parameter.
func escape(path string) string {
	return strings.ReplaceAll(path, ":", "\\:")
}

func (s *Server) requireAPIKey(c *fiber.Ctx) error {
	if s.apiKey != "" && c.Query("key") != s.apiKey {
		return fail(c, fiber.StatusBadRequest, identitytoolkit.MsgAPIKeyInvalid)
	}
	return c.Next()
}

func missingField(p identitytoolkit.PasswordRequest) string {
	if err := validation.Validate(strings.TrimSpace(p.Email), validation.Required); err != nil {
		return identitytoolkit.MsgMissingEmail
	}
	if err := validation.Validate(p.Password, validation.Required); err != nil {
		return identitytoolkit.MsgMissingPassword
	}
	return ""
}

func (s *Server) handle(mode homie.AuthMode) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload identitytoolkit.PasswordRequest
		if err := c.BodyParser(&payload); err != nil {
			return fail(c, fiber.StatusBadRequest, identitytoolkit.MsgInvalidEmail)
		}
		if msg := missingField(payload); msg != "" {
			return fail(c, fiber.StatusBadRequest, msg)
		}

		var (
			session *homie.Session
			err     error
		)
		if mode == homie.ModeSignUp {
			session, err = s.accounts.SignUp(c.UserContext(), payload.Email, payload.Password)
		} else {
			session, err = s.accounts.SignIn(c.UserContext(), payload.Email, payload.Password)
		}
		if err != nil {
			kind := homie.KindOf(err)
			if kind == homie.KindInternal || kind == homie.KindUnknown {
				s.logger.Error("%s failed: %v", mode, err)
				return fail(c, fiber.StatusInternalServerError, identitytoolkit.MsgInternal)
			}
			s.logger.Debug("%s rejected: %s", mode, kind)
			return fail(c, fiber.StatusBadRequest, identitytoolkit.MessageForKind(kind))
		}

		return c.JSON(identitytoolkit.AuthResponse{
			Kind:         "identitytoolkit#VerifyPasswordResponse",
			LocalID:      session.UserID,
			Email:        session.Email,
			DisplayName:  session.DisplayName,
			IDToken:      session.Token,
			RefreshToken: uuid.NewString(),
			ExpiresIn:    s.expiresIn,
			Registered:   mode == homie.ModeSignIn,
		})
	}
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	s.logger.Error("request %s %s: %v", c.Method(), c.Path(), err)
	return fail(c, code, identitytoolkit.MsgInternal)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(identitytoolkit.ErrorResponse{
		Error: identitytoolkit.ErrorBody{Code: status, Message: message},
	})
}
