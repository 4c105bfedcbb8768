package local

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-homie"
	"github.com/goliatone/go-homie/provider"
)

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger.
func WithLogger(logger homie.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPersistentSession keeps the signed in session in the database so it
// survives restarts.
func WithPersistentSession(enabled bool) ProviderOption {
	return func(p *Provider) {
		p.persist = enabled
	}
}

// WithLatency delays every operation, simulating a remote provider.
func WithLatency(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.latency = d
	}
}

// WithActivitySink records provider operations.
func WithActivitySink(sink homie.ActivitySink) ProviderOption {
	return func(p *Provider) {
		p.activitySink = sink
	}
}

// Provider is an in-process identity provider. It owns the current session
// and publishes every change to its subscribers.
type Provider struct {
	db           bun.IDB
	accounts     *Accounts
	broadcaster  *provider.Broadcaster
	logger       homie.Logger
	activitySink homie.ActivitySink
	persist      bool
	latency      time.Duration
}

var _ homie.Provider = (*Provider)(nil)

// NewProvider returns a provider backed by accounts. When session
// persistence is enabled the stored session, if still valid, becomes the
// current session.
func NewProvider(ctx context.Context, db bun.IDB, accounts *Accounts, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		db:       db,
		accounts: accounts,
		logger:   homie.DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	var initial *homie.Session
	if p.persist {
		session, err := p.restore(ctx)
		if err != nil {
			return nil, err
		}
		initial = session
	}
	p.broadcaster = provider.NewBroadcaster(initial)
	return p, nil
}

// Subscribe implements homie.Subscriber.
func (p *Provider) Subscribe(listener homie.Listener) homie.Unsubscribe {
	return p.broadcaster.Subscribe(listener)
}

// SignIn implements homie.Provider.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*homie.Session, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	session, err := p.accounts.SignIn(ctx, email, password)
	if err != nil {
		p.record(ctx, homie.ActivityEventSignInFailure, "", err)
		return nil, err
	}
	if err := p.publish(ctx, session); err != nil {
		return nil, err
	}
	p.record(ctx, homie.ActivityEventSignInSuccess, session.UserID, nil)
	return session, nil
}

// SignUp implements homie.Provider. A new account is signed in immediately.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*homie.Session, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	session, err := p.accounts.SignUp(ctx, email, password)
	if err != nil {
		p.record(ctx, homie.ActivityEventSignUpFailure, "", err)
		return nil, err
	}
	if err := p.publish(ctx, session); err != nil {
		return nil, err
	}
	p.record(ctx, homie.ActivityEventSignUpSuccess, session.UserID, nil)
	return session, nil
}

// SignOut implements homie.Provider. Signing out without a session is a
// no-op.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.wait(ctx); err != nil {
		return err
	}

	current := p.broadcaster.Current()
	if err := p.publish(ctx, nil); err != nil {
		p.record(ctx, homie.ActivityEventSignOutFailure, userID(current), err)
		return err
	}
	if current != nil {
		p.record(ctx, homie.ActivityEventSignOutSuccess, current.UserID, nil)
	}
	return nil
}

// Current returns the signed in session, nil when signed out.
func (p *Provider) Current() *homie.Session {
	return p.broadcaster.Current()
}

// Accounts returns the account service backing the provider.
func (p *Provider) Accounts() *Accounts {
	return p.accounts
}

// Close releases every subscription.
func (p *Provider) Close() {
	p.broadcaster.Close()
}

func (p *Provider) publish(ctx context.Context, session *homie.Session) error {
	if p.persist {
		if err := p.store(ctx, session); err != nil {
			return homie.NewAuthError(homie.KindInternal, err)
		}
	}
	p.broadcaster.Publish(session)
	return nil
}

func (p *Provider) wait(ctx context.Context) error {
	if p.latency <= 0 {
		if err := ctx.Err(); err != nil {
			return homie.NewAuthError(homie.KindNetwork, err)
		}
		return nil
	}
	timer := time.NewTimer(p.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return homie.NewAuthError(homie.KindNetwork, ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (p *Provider) store(ctx context.Context, session *homie.Session) error {
	if session == nil {
		_, err := p.db.NewDelete().Model((*StoredSession)(nil)).Where("id = ?", storedSessionID).Exec(ctx)
		return err
	}

	claims, err := p.accounts.Tokens().Validate(session.Token)
	if err != nil {
		return err
	}
	rec := &StoredSession{ID: storedSessionID, Token: session.Token}
	if err := rec.UserID.UnmarshalText([]byte(claims.Subject)); err != nil {
		return err
	}

	_, err = p.db.NewInsert().Model(rec).
		On("CONFLICT (id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("token = EXCLUDED.token").
		Exec(ctx)
	return err
}

func (p *Provider) restore(ctx context.Context) (*homie.Session, error) {
	rec := new(StoredSession)
	err := p.db.NewSelect().Model(rec).Where("id = ?", storedSessionID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	session, err := p.accounts.Resolve(ctx, rec.Token)
	if err != nil {
		p.logger.Info("discarding stored session: %v", err)
		if _, err := p.db.NewDelete().Model((*StoredSession)(nil)).Where("id = ?", storedSessionID).Exec(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return session, nil
}

func (p *Provider) record(ctx context.Context, eventType homie.ActivityEventType, uid string, err error) {
	event := homie.ActivityEvent{EventType: eventType, UserID: uid}
	if err != nil {
		event.Metadata = map[string]any{
			"kind":  string(homie.KindOf(err)),
			"error": err.Error(),
		}
	}
	homie.RecordActivity(ctx, p.activitySink, p.logger, event)
}

func userID(session *homie.Session) string {
	if session == nil {
		return ""
	}
	return session.UserID
}
