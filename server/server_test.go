package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-homie"
	"github.com/goliatone/go-homie/provider/identitytoolkit"
	"github.com/goliatone/go-homie/provider/local"
	"github.com/goliatone/go-homie/server"
)

type testConfig struct{}

func (testConfig) GetSigningKey() string   { return "server-test-key" }
func (testConfig) GetIssuer() string       { return "homie" }
func (testConfig) GetTokenExpiration() int { return 2 }
func (testConfig) GetBcryptCost() int      { return bcrypt.MinCost }
func (testConfig) GetAPIKey() string       { return "api-key" }

func newServer(t *testing.T) *server.Server {
	t.Helper()
	ctx := context.Background()

	db, err := local.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, local.Migrate(ctx, db))

	accounts := local.NewAccounts(db, testConfig{}, local.WithAccountsLogger(homie.NopLogger()))
	return server.New(accounts, testConfig{}, server.WithLogger(homie.NopLogger()))
}

func post(t *testing.T, srv *server.Server, path, key string, body any) (*http.Response, []byte) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path+"?key="+key, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func errorMessage(t *testing.T, raw []byte) string {
	t.Helper()
	var body identitytoolkit.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Error.Message
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSignUpAndSignIn(t *testing.T) {
	srv := newServer(t)
	creds := identitytoolkit.PasswordRequest{Email: "a@b.com", Password: "secret", ReturnSecureToken: true}

	resp, raw := post(t, srv, identitytoolkit.PathSignUp, "api-key", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var signedUp identitytoolkit.AuthResponse
	require.NoError(t, json.Unmarshal(raw, &signedUp))
	assert.NotEmpty(t, signedUp.LocalID)
	assert.NotEmpty(t, signedUp.IDToken)
	assert.NotEmpty(t, signedUp.RefreshToken)
	assert.Equal(t, "7200", signedUp.ExpiresIn)
	assert.False(t, signedUp.Registered)

	resp, raw = post(t, srv, identitytoolkit.PathSignIn, "api-key", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var signedIn identitytoolkit.AuthResponse
	require.NoError(t, json.Unmarshal(raw, &signedIn))
	assert.Equal(t, signedUp.LocalID, signedIn.LocalID)
	assert.True(t, signedIn.Registered)
}

func TestErrorResponses(t *testing.T) {
	srv := newServer(t)
	_, _ = post(t, srv, identitytoolkit.PathSignUp, "api-key",
		identitytoolkit.PasswordRequest{Email: "taken@b.com", Password: "secret"})

	tests := []struct {
		name    string
		path    string
		key     string
		body    identitytoolkit.PasswordRequest
		message string
	}{
		{"bad api key", identitytoolkit.PathSignIn, "nope", identitytoolkit.PasswordRequest{Email: "a@b.com", Password: "x"}, identitytoolkit.MsgAPIKeyInvalid},
		{"missing email", identitytoolkit.PathSignIn, "api-key", identitytoolkit.PasswordRequest{Password: "x"}, identitytoolkit.MsgMissingEmail},
		{"missing password", identitytoolkit.PathSignIn, "api-key", identitytoolkit.PasswordRequest{Email: "a@b.com"}, identitytoolkit.MsgMissingPassword},
		{"unknown email", identitytoolkit.PathSignIn, "api-key", identitytoolkit.PasswordRequest{Email: "who@b.com", Password: "secret"}, identitytoolkit.MsgEmailNotFound},
		{"wrong password", identitytoolkit.PathSignIn, "api-key", identitytoolkit.PasswordRequest{Email: "taken@b.com", Password: "wrong!"}, identitytoolkit.MsgInvalidPassword},
		{"email exists", identitytoolkit.PathSignUp, "api-key", identitytoolkit.PasswordRequest{Email: "taken@b.com", Password: "secret"}, identitytoolkit.MsgEmailExists},
		{"weak password", identitytoolkit.PathSignUp, "api-key", identitytoolkit.PasswordRequest{Email: "new@b.com", Password: "123"}, identitytoolkit.MessageForKind(homie.KindWeakPassword)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := post(t, srv, tt.path, tt.key, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.message, errorMessage(t, raw))
		})
	}
}

// fiberTransport sends client requests straight into the fiber app.
type fiberTransport struct {
	srv *server.Server
}

func (f fiberTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return f.srv.App().Test(req, -1)
}

func TestIdentityToolkitClientAgainstServer(t *testing.T) {
	srv := newServer(t)
	client := identitytoolkit.New(identitytoolkit.Config{
		APIKey:     "api-key",
		BaseURL:    "http://homie.test",
		HTTPClient: &http.Client{Transport: fiberTransport{srv: srv}},
		Logger:     homie.NopLogger(),
	})
	defer client.Close()

	ctx := context.Background()

	_, err := client.SignIn(ctx, "c@d.com", "secret")
	assert.Equal(t, homie.KindUserNotFound, homie.KindOf(err))

	session, err := client.SignUp(ctx, "c@d.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "c@d.com", session.Email)
	assert.Equal(t, "c", session.DisplayName)

	_, err = client.SignUp(ctx, "c@d.com", "secret")
	assert.Equal(t, homie.KindEmailAlreadyInUse, homie.KindOf(err))
	assert.Equal(t, "This email is already registered", homie.Message(err))

	_, err = client.SignUp(ctx, "e@f.com", "123")
	assert.Equal(t, homie.KindWeakPassword, homie.KindOf(err))

	_, err = client.SignIn(ctx, "c@d.com", "wrong!")
	assert.Equal(t, "Invalid email or password", homie.Message(err))
}
