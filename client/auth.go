package client

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcpgate/mcpgate/transport"
)

// bearerAuth attaches a fixed Bearer token.
type bearerAuth struct {
	token string
}

// NewBearerAuth creates a Bearer token auth provider.
func NewBearerAuth(token string) transport.AuthProvider {
	return &bearerAuth{token: token}
}

func (a *bearerAuth) GetAuthHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.token}
}

func (a *bearerAuth) GetAuthToken() string { return a.token }

// basicAuth attaches HTTP Basic credentials.
type basicAuth struct {
	token string // precomputed base64(user:pass)
}

// NewBasicAuth creates a Basic auth provider.
func NewBasicAuth(username, password string) transport.AuthProvider {
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &basicAuth{token: token}
}

func (a *basicAuth) GetAuthHeaders() map[string]string {
	return map[string]string{"Authorization": "Basic " + a.token}
}

func (a *basicAuth) GetAuthToken() string { return a.token }

// customHeaderAuth attaches an arbitrary header set.
type customHeaderAuth struct {
	headers map[string]string
	token   string
}

// NewCustomHeaderAuth creates an auth provider from caller-supplied
// headers.
func NewCustomHeaderAuth(headers map[string]string, token string) transport.AuthProvider {
	return &customHeaderAuth{headers: headers, token: token}
}

func (a *customHeaderAuth) GetAuthHeaders() map[string]string { return a.headers }
func (a *customHeaderAuth) GetAuthToken() string              { return a.token }

// noAuth attaches nothing.
type noAuth struct{}

// NewNoAuth creates an auth provider that adds no headers.
func NewNoAuth() transport.AuthProvider { return &noAuth{} }

func (*noAuth) GetAuthHeaders() map[string]string { return map[string]string{} }
func (*noAuth) GetAuthToken() string              { return "" }

// JWTSigner mints a short-lived signed token per request, binding the
// token to the payload through a content hash claim. Implements the
// transport.RequestSigner contract.
type JWTSigner struct {
	method jwt.SigningMethod
	key    any
	issuer string
	ttl    time.Duration
}

// NewJWTSigner creates an HMAC-SHA256 request signer.
func NewJWTSigner(secret []byte, issuer string, ttl time.Duration) *JWTSigner {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &JWTSigner{
		method: jwt.SigningMethodHS256,
		key:    secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

// NewJWTSignerWithMethod creates a signer with an explicit method and
// key, e.g. jwt.SigningMethodRS256 with an *rsa.PrivateKey.
func NewJWTSignerWithMethod(method jwt.SigningMethod, key any, issuer string, ttl time.Duration) *JWTSigner {
	s := NewJWTSigner(nil, issuer, ttl)
	s.method = method
	s.key = key
	return s
}

// Sign implements transport.RequestSigner.
func (s *JWTSigner) Sign(payload []byte) (string, error) {
	sum := sha256.Sum256(payload)
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":            s.issuer,
		"iat":            now.Unix(),
		"exp":            now.Add(s.ttl).Unix(),
		"payload_sha256": hex.EncodeToString(sum[:]),
	}
	token := jwt.NewWithClaims(s.method, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign request token: %w", err)
	}
	return signed, nil
}

var _ transport.RequestSigner = (*JWTSigner)(nil)
