package local

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-homie"
)

// MinPasswordLength is the shortest password accepted on sign up.
const MinPasswordLength = 6

// Config holds local provider options.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetTokenExpiration() int
	GetBcryptCost() int
}

// Open opens a SQLite database through bun.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// AccountsOption customizes Accounts.
type AccountsOption func(*Accounts)

// WithAccountsLogger sets the logger.
func WithAccountsLogger(logger homie.Logger) AccountsOption {
	return func(a *Accounts) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithHashedIDs derives user ids from the email instead of random UUIDs.
func WithHashedIDs() AccountsOption {
	return func(a *Accounts) {
		a.hashedIDs = true
	}
}

// WithUsers replaces the users repository.
func WithUsers(users Users) AccountsOption {
	return func(a *Accounts) {
		if users != nil {
			a.users = users
		}
	}
}

// WithAccountsClock injects a custom clock (useful for tests).
func WithAccountsClock(now func() time.Time) AccountsOption {
	return func(a *Accounts) {
		if now != nil {
			a.now = now
			a.tokens.now = now
		}
	}
}

// Accounts verifies and registers email/password identities. It keeps no
// notion of a current session.
type Accounts struct {
	users     Users
	tokens    *TokenService
	cost      int
	hashedIDs bool
	logger    homie.Logger
	now       func() time.Time
}

// NewAccounts returns an Accounts service over db.
func NewAccounts(db *bun.DB, cfg Config, opts ...AccountsOption) *Accounts {
	a := &Accounts{
		users:  NewUsersRepository(db),
		tokens: NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetTokenExpiration(), cfg.GetIssuer()),
		cost:   cfg.GetBcryptCost(),
		logger: homie.DefaultLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Tokens returns the token service used to sign sessions.
func (a *Accounts) Tokens() *TokenService {
	return a.tokens
}

// SignIn verifies the credentials and returns a fresh session.
func (a *Accounts) SignIn(ctx context.Context, email, password string) (*homie.Session, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, homie.ErrInvalidCredential
	}

	user, err := a.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, homie.ErrUserDisabled
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, homie.NewAuthError(homie.KindWrongPassword, err)
		}
		return nil, homie.NewAuthError(homie.KindInternal, err)
	}

	return a.issue(ctx, user)
}

// SignUp registers a new account and returns its first session.
func (a *Accounts) SignUp(ctx context.Context, email, password string) (*homie.Session, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.Validate(password, validation.Required, validation.Length(MinPasswordLength, 0)); err != nil {
		return nil, homie.NewAuthError(homie.KindWeakPassword, err)
	}

	if _, err := a.users.GetByEmail(ctx, email); err == nil {
		return nil, homie.ErrEmailAlreadyInUse
	} else if !repository.IsRecordNotFound(err) {
		return nil, homie.NewAuthError(homie.KindInternal, err)
	}

	hash, err := HashPassword(password, a.cost)
	if err != nil {
		return nil, homie.NewAuthError(homie.KindInternal, err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName(email),
		PasswordHash: hash,
		CreatedAt:    a.now(),
		UpdatedAt:    a.now(),
	}
	if a.hashedIDs {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	user, err = a.users.Register(ctx, user)
	if err != nil {
		return nil, homie.NewAuthError(homie.KindInternal, err)
	}
	a.logger.Info("registered user %s", user.ID)

	return a.issue(ctx, user)
}

// Resolve returns the session for a previously issued token.
func (a *Accounts) Resolve(ctx context.Context, token string) (*homie.Session, error) {
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenMalformed
	}

	user, err := a.users.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, homie.ErrUserNotFound
		}
		return nil, homie.NewAuthError(homie.KindInternal, err)
	}
	if user.Disabled {
		return nil, homie.ErrUserDisabled
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	return user.Session(token, issuedAt), nil
}

// SetDisabled enables or disables an account.
func (a *Accounts) SetDisabled(ctx context.Context, email string, disabled bool) error {
	user, err := a.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := a.users.SetDisabled(ctx, user.ID, disabled, a.now()); err != nil {
		if repository.IsRecordNotFound(err) {
			return homie.ErrUserNotFound
		}
		return homie.NewAuthError(homie.KindInternal, err)
	}
	return nil
}

func (a *Accounts) findByEmail(ctx context.Context, email string) (*User, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, homie.ErrUserNotFound
		}
		return nil, homie.NewAuthError(homie.KindInternal, err)
	}
	return user, nil
}

func (a *Accounts) issue(ctx context.Context, user *User) (*homie.Session, error) {
	token, claims, err := a.tokens.Generate(user)
	if err != nil {
		return nil, homie.NewAuthError(homie.KindInternal, err)
	}

	if err := a.users.TrackSuccessfulLogin(ctx, user, a.now()); err != nil {
		a.logger.Warn("track login for %s: %v", user.ID, err)
	}

	return user.Session(token, claims.IssuedAt.Time), nil
}

func validateEmail(email string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return homie.NewAuthError(homie.KindInvalidEmail, err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func displayName(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
