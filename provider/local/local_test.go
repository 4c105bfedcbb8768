package local_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-homie"
	"github.com/goliatone/go-homie/provider/local"
)

type testConfig struct {
	expiration int
}

func (c testConfig) GetSigningKey() string { return "test-signing-key" }
func (c testConfig) GetIssuer() string     { return "homie-test" }
func (c testConfig) GetBcryptCost() int    { return bcrypt.MinCost }
func (c testConfig) GetTokenExpiration() int {
	if c.expiration == 0 {
		return 1
	}
	return c.expiration
}

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := local.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, local.Migrate(context.Background(), db))
	return db
}

func newAccounts(t *testing.T, db *bun.DB, opts ...local.AccountsOption) *local.Accounts {
	t.Helper()
	opts = append([]local.AccountsOption{local.WithAccountsLogger(homie.NopLogger())}, opts...)
	return local.NewAccounts(db, testConfig{}, opts...)
}

type sessions struct {
	mu  sync.Mutex
	got []*homie.Session
}

func (s *sessions) listen(session *homie.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, session)
}

func (s *sessions) last(t *testing.T, n int) *homie.Session {
	t.Helper()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.got) >= n
	}, time.Second, time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.got[n-1]
}

func TestAccountsSignUpThenSignIn(t *testing.T) {
	ctx := context.Background()
	accounts := newAccounts(t, openTestDB(t))

	created, err := accounts.SignUp(ctx, " Alice@Example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.Equal(t, "alice", created.DisplayName)
	assert.NotEmpty(t, created.Token)

	session, err := accounts.SignIn(ctx, "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, session.UserID)

	resolved, err := accounts.Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, created.UserID, resolved.UserID)
}

func TestAccountsErrorKinds(t *testing.T) {
	ctx := context.Background()
	accounts := newAccounts(t, openTestDB(t))

	_, err := accounts.SignUp(ctx, "bob@example.com", "secret")
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() error
		kind homie.AuthErrorKind
	}{
		{"invalid email", func() error { _, err := accounts.SignIn(ctx, "not-an-email", "secret"); return err }, homie.KindInvalidEmail},
		{"unknown user", func() error { _, err := accounts.SignIn(ctx, "nobody@example.com", "secret"); return err }, homie.KindUserNotFound},
		{"wrong password", func() error { _, err := accounts.SignIn(ctx, "bob@example.com", "wrong!"); return err }, homie.KindWrongPassword},
		{"empty password", func() error { _, err := accounts.SignIn(ctx, "bob@example.com", ""); return err }, homie.KindInvalidCredential},
		{"duplicate email", func() error { _, err := accounts.SignUp(ctx, "BOB@example.com", "secret"); return err }, homie.KindEmailAlreadyInUse},
		{"weak password", func() error { _, err := accounts.SignUp(ctx, "carol@example.com", "12345"); return err }, homie.KindWeakPassword},
		{"sign up invalid email", func() error { _, err := accounts.SignUp(ctx, "carol", "secret"); return err }, homie.KindInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.Equal(t, tt.kind, homie.KindOf(err))
		})
	}
}

func TestAccountsDisabledUser(t *testing.T) {
	ctx := context.Background()
	accounts := newAccounts(t, openTestDB(t))

	created, err := accounts.SignUp(ctx, "dave@example.com", "secret")
	require.NoError(t, err)
	require.NoError(t, accounts.SetDisabled(ctx, "dave@example.com", true))

	_, err = accounts.SignIn(ctx, "dave@example.com", "secret")
	assert.Equal(t, homie.KindUserDisabled, homie.KindOf(err))

	_, err = accounts.Resolve(ctx, created.Token)
	assert.Equal(t, homie.KindUserDisabled, homie.KindOf(err))

	err = accounts.SetDisabled(ctx, "ghost@example.com", true)
	assert.Equal(t, homie.KindUserNotFound, homie.KindOf(err))

	require.NoError(t, accounts.SetDisabled(ctx, "dave@example.com", false))
	_, err = accounts.SignIn(ctx, "dave@example.com", "secret")
	assert.NoError(t, err)
}

func TestUsersRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	users := local.NewUsersRepository(openTestDB(t))

	_, err := users.GetByEmail(ctx, "gina@example.com")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))

	created, err := users.Register(ctx, &local.User{
		Email:        " Gina@Example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "gina", created.DisplayName)

	found, err := users.GetByEmail(ctx, "GINA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Nil(t, found.LoggedInAt)

	require.NoError(t, users.TrackSuccessfulLogin(ctx, found, now.Add(time.Minute)))

	byID, err := users.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	require.NotNil(t, byID.LoggedInAt)
	assert.True(t, byID.LoggedInAt.Equal(now.Add(time.Minute)))
	assert.Equal(t, "hash", byID.PasswordHash)
	assert.Equal(t, "gina@example.com", byID.Email)

	require.NoError(t, users.SetDisabled(ctx, created.ID, true, now))
	byID, err = users.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.True(t, byID.Disabled)

	err = users.SetDisabled(ctx, uuid.New(), true, now)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsUseInjectedUsers(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := local.NewUsersRepository(db)
	accounts := newAccounts(t, db, local.WithUsers(users))

	session, err := accounts.SignUp(ctx, "hank@example.com", "secret")
	require.NoError(t, err)

	user, err := users.GetByEmail(ctx, "hank@example.com")
	require.NoError(t, err)
	assert.Equal(t, session.UserID, user.ID.String())
	assert.NotNil(t, user.LoggedInAt)
}

func TestAccountsHashedIDsAreStable(t *testing.T) {
	ctx := context.Background()

	first, err := newAccounts(t, openTestDB(t), local.WithHashedIDs()).SignUp(ctx, "erin@example.com", "secret")
	require.NoError(t, err)
	second, err := newAccounts(t, openTestDB(t), local.WithHashedIDs()).SignUp(ctx, "erin@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)
}

func TestTokenServiceExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	accounts := newAccounts(t, openTestDB(t), local.WithAccountsClock(clock))
	session, err := accounts.SignUp(context.Background(), "frank@example.com", "secret")
	require.NoError(t, err)

	claims, err := accounts.Tokens().Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "frank@example.com", claims.Email)
	assert.Equal(t, "homie-test", claims.Issuer)

	now = now.Add(2 * time.Hour)
	_, err = accounts.Tokens().Validate(session.Token)
	assert.ErrorIs(t, err, local.ErrTokenExpired)
}

func TestTokenServiceRejectsGarbage(t *testing.T) {
	ts := local.NewTokenService([]byte("key"), 1, "homie")
	_, err := ts.Validate("not.a.token")
	require.Error(t, err)

	other := local.NewTokenService([]byte("other"), 1, "homie")
	token, _, err := other.Generate(&local.User{ID: uuid.New(), Email: "x@example.com"})
	require.NoError(t, err)
	_, err = ts.Validate(token)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := local.HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, local.ComparePasswordAndHash("secret", hash))
	assert.ErrorIs(t, local.ComparePasswordAndHash("wrong", hash), local.ErrMismatchedHashAndPassword)

	_, err = local.HashPassword("", bcrypt.MinCost)
	assert.ErrorIs(t, err, local.ErrNoEmptyString)
}

func TestProviderPublishesSessionChanges(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sink := homie.ActivitySinkFunc(func(context.Context, homie.ActivityEvent) error { return nil })

	p, err := local.NewProvider(ctx, db, newAccounts(t, db),
		local.WithLogger(homie.NopLogger()),
		local.WithActivitySink(sink),
	)
	require.NoError(t, err)
	defer p.Close()

	got := &sessions{}
	p.Subscribe(got.listen)
	assert.Nil(t, got.last(t, 1))

	_, err = p.SignUp(ctx, "gina@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "gina@example.com", got.last(t, 2).Email)

	require.NoError(t, p.SignOut(ctx))
	assert.Nil(t, got.last(t, 3))
	assert.Nil(t, p.Current())

	_, err = p.SignIn(ctx, "gina@example.com", "bad-password")
	assert.Equal(t, homie.KindWrongPassword, homie.KindOf(err))
	assert.Nil(t, p.Current())
}

func TestProviderPersistsSession(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	accounts := newAccounts(t, db)

	first, err := local.NewProvider(ctx, db, accounts, local.WithLogger(homie.NopLogger()), local.WithPersistentSession(true))
	require.NoError(t, err)
	_, err = first.SignUp(ctx, "hank@example.com", "secret")
	require.NoError(t, err)
	first.Close()

	second, err := local.NewProvider(ctx, db, accounts, local.WithLogger(homie.NopLogger()), local.WithPersistentSession(true))
	require.NoError(t, err)
	defer second.Close()
	require.NotNil(t, second.Current())
	assert.Equal(t, "hank@example.com", second.Current().Email)

	got := &sessions{}
	second.Subscribe(got.listen)
	assert.Equal(t, "hank@example.com", got.last(t, 1).Email)

	require.NoError(t, second.SignOut(ctx))

	third, err := local.NewProvider(ctx, db, accounts, local.WithLogger(homie.NopLogger()), local.WithPersistentSession(true))
	require.NoError(t, err)
	defer third.Close()
	assert.Nil(t, third.Current())
}

func TestProviderHonoursCancellation(t *testing.T) {
	db := openTestDB(t)
	p, err := local.NewProvider(context.Background(), db, newAccounts(t, db),
		local.WithLogger(homie.NopLogger()),
		local.WithLatency(time.Minute),
	)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = p.SignIn(ctx, "ivy@example.com", "secret")
	assert.Equal(t, homie.KindNetwork, homie.KindOf(err))
}
