// Package identitytoolkit is an identity provider that talks to a remote
// service speaking the Identity Toolkit REST shape, such as Firebase
// Authentication or the server package of this module.
package identitytoolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-homie"
	"github.com/goliatone/go-homie/provider"
)

const defaultBaseURL = "https://identitytoolkit.googleapis.com"

// Config holds the provider project identity. It is treated as an opaque
// bundle except for APIKey and BaseURL.
type Config struct {
	APIKey     string
	ProjectID  string
	AuthDomain string
	BaseURL    string

	HTTPClient *http.Client
	Verifier   *Verifier
	Logger     homie.Logger
}

// Provider implements homie.Provider over HTTP. The session lives in
// memory; signing out never contacts the service.
type Provider struct {
	config      Config
	httpClient  *http.Client
	broadcaster *provider.Broadcaster
	logger      homie.Logger
}

var _ homie.Provider = (*Provider)(nil)

// New creates a provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = homie.DefaultLogger()
	}

	return &Provider{
		config:      cfg,
		httpClient:  client,
		broadcaster: provider.NewBroadcaster(nil),
		logger:      logger,
	}
}

// Subscribe implements homie.Subscriber.
func (p *Provider) Subscribe(listener homie.Listener) homie.Unsubscribe {
	return p.broadcaster.Subscribe(listener)
}

// SignIn implements homie.Provider.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*homie.Session, error) {
	return p.exchange(ctx, PathSignIn, email, password)
}

// SignUp implements homie.Provider.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*homie.Session, error) {
	return p.exchange(ctx, PathSignUp, email, password)
}

// SignOut implements homie.Provider.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return homie.NewAuthError(homie.KindNetwork, err)
	}
	p.broadcaster.Publish(nil)
	return nil
}

// Current returns the signed in session, nil when signed out.
func (p *Provider) Current() *homie.Session {
	return p.broadcaster.Current()
}

// Close releases every subscription.
func (p *Provider) Close() {
	p.broadcaster.Close()
}

func (p *Provider) exchange(ctx context.Context, path, email, password string) (*homie.Session, error) {
	body, err := json.Marshal(PasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, homie.NewAuthError(homie.KindInternal, err)
	}

	endpoint := fmt.Sprintf("%s%s?key=%s", p.config.BaseURL, path, url.QueryEscape(p.config.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, homie.NewAuthError(homie.KindInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("identity toolkit %s: %v", path, err)
		return nil, homie.NewAuthError(homie.KindNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, homie.NewAuthError(homie.KindNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, raw)
	}

	var out AuthResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, homie.NewAuthError(homie.KindInternal, fmt.Errorf("decode response: %w", err))
	}
	if out.LocalID == "" || out.IDToken == "" {
		return nil, homie.NewAuthError(homie.KindInternal, errors.New("response missing localId or idToken"))
	}

	issuedAt := time.Now()
	if p.config.Verifier != nil {
		claims, err := p.config.Verifier.Verify(out.IDToken)
		if err != nil {
			return nil, homie.NewAuthError(homie.KindInvalidCredential, err)
		}
		if claims.Subject != out.LocalID {
			return nil, homie.NewAuthError(homie.KindInvalidCredential, fmt.Errorf("token subject %q does not match %q", claims.Subject, out.LocalID))
		}
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}
	}

	session := &homie.Session{
		UserID:      out.LocalID,
		Email:       out.Email,
		DisplayName: out.DisplayName,
		Token:       out.IDToken,
		IssuedAt:    issuedAt,
	}
	p.broadcaster.Publish(session)
	return session, nil
}

func decodeError(status int, raw []byte) error {
	var body ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Message == "" {
		if status >= http.StatusInternalServerError {
			return homie.NewAuthError(homie.KindNetwork, fmt.Errorf("status %d", status))
		}
		return homie.NewAuthError(homie.KindInternal, fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(raw))))
	}
	return homie.NewAuthError(KindForMessage(body.Error.Message), errors.New(body.Error.Message))
}
