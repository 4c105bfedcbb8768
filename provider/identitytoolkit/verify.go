package identitytoolkit

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-homie"
)

// DefaultJWKSURL publishes the keys that sign Firebase ID tokens.
const DefaultJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// ErrTokenRejected is returned when an ID token fails verification.
var ErrTokenRejected = goerrors.New("id token rejected", goerrors.CategoryAuth).
	WithTextCode("ID_TOKEN_REJECTED").
	WithCode(goerrors.CodeUnauthorized)

// IssuerForProject returns the issuer of ID tokens for projectID.
func IssuerForProject(projectID string) string {
	return "https://securetoken.google.com/" + projectID
}

// Verifier checks ID tokens returned by the service.
type Verifier struct {
	keyfunc  jwt.Keyfunc
	issuer   string
	audience string
	methods  []string
	release  func()
}

// NewJWKSVerifier fetches the key set at jwksURL and refreshes it in the
// background. Call Close to stop the refresh.
func NewJWKSVerifier(jwksURL, projectID string, logger homie.Logger) (*Verifier, error) {
	if jwksURL == "" {
		jwksURL = DefaultJWKSURL
	}
	if logger == nil {
		logger = homie.DefaultLogger()
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Warn("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to get JWK set")
	}

	return &Verifier{
		keyfunc:  jwks.Keyfunc,
		issuer:   IssuerForProject(projectID),
		audience: projectID,
		methods:  []string{jwt.SigningMethodRS256.Alg()},
		release:  jwks.EndBackground,
	}, nil
}

// NewGivenKeyVerifier verifies tokens against fixed keys indexed by kid.
func NewGivenKeyVerifier(keys map[string]keyfunc.GivenKey, issuer, audience string, methods ...string) *Verifier {
	if len(methods) == 0 {
		methods = []string{jwt.SigningMethodRS256.Alg()}
	}
	return &Verifier{
		keyfunc:  keyfunc.NewGiven(keys).Keyfunc,
		issuer:   issuer,
		audience: audience,
		methods:  methods,
	}
}

// Verify parses raw and returns its registered claims.
func (v *Verifier) Verify(raw string) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods(v.methods), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.keyfunc, opts...)
	if err != nil {
		clone := ErrTokenRejected.Clone()
		clone.Source = err
		return nil, clone
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrTokenRejected
	}
	return claims, nil
}

// Close stops background key refresh.
func (v *Verifier) Close() {
	if v != nil && v.release != nil {
		v.release()
	}
}
