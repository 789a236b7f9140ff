package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWKSConfig configures bearer-token validation against a JWKS endpoint.
type JWKSConfig struct {
	// JWKSURL is the JSON Web Key Set endpoint. Required.
	JWKSURL string
	// ExpectedIssuer, when set, is required in the token's iss claim.
	ExpectedIssuer string
	// ExpectedAudience, when set, is required in the token's aud claim.
	ExpectedAudience string
	// ClockSkew is the leeway applied to exp/nbf validation.
	ClockSkew time.Duration
	// RefreshInterval is how often the key set is refetched. Defaults to
	// one hour.
	RefreshInterval time.Duration
}

// JWKSValidator checks that a configured bearer token is well-formed,
// signed by a key in the remote JWKS and not expired, before the security
// middleware lets it leave the process.
type JWKSValidator struct {
	config JWKSConfig
	cache  *jwk.Cache
}

// NewJWKSValidator creates a validator backed by an auto-refreshing key
// set cache. The initial fetch happens eagerly so misconfiguration
// surfaces at construction.
func NewJWKSValidator(ctx context.Context, config JWKSConfig, httpClient *http.Client) (*JWKSValidator, error) {
	if config.JWKSURL == "" {
		return nil, fmt.Errorf("JWKSURL is required")
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = time.Hour
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	cache := jwk.NewCache(ctx)
	if err := cache.Register(config.JWKSURL,
		jwk.WithMinRefreshInterval(config.RefreshInterval),
		jwk.WithHTTPClient(httpClient)); err != nil {
		return nil, fmt.Errorf("register JWKS URL %s: %w", config.JWKSURL, err)
	}
	if _, err := cache.Refresh(ctx, config.JWKSURL); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch from %s: %w", config.JWKSURL, err)
	}

	return &JWKSValidator{config: config, cache: cache}, nil
}

// ValidateToken verifies the token's signature against the key set and
// validates its standard claims.
func (v *JWKSValidator) ValidateToken(ctx context.Context, tokenString string) error {
	token, err := jwt.Parse(tokenString, v.keyFunc(ctx))
	if err != nil {
		return fmt.Errorf("invalid token format or signature: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("token is invalid")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("invalid token claims format")
	}

	var opts []jwt.ParserOption
	if v.config.ExpectedIssuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.ExpectedIssuer))
	}
	if v.config.ExpectedAudience != "" {
		opts = append(opts, jwt.WithAudience(v.config.ExpectedAudience))
	}
	if v.config.ClockSkew > 0 {
		opts = append(opts, jwt.WithLeeway(v.config.ClockSkew))
	}
	if err := jwt.NewValidator(opts...).Validate(claims); err != nil {
		return fmt.Errorf("token claim validation failed: %w", err)
	}
	return nil
}

// keyFunc resolves the signing key for a token by kid, refreshing the
// cached key set once if the kid is unknown.
func (v *JWKSValidator) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("JWT header missing kid")
		}

		keySet, err := v.cache.Get(ctx, v.config.JWKSURL)
		if err != nil {
			return nil, fmt.Errorf("get JWK set: %w", err)
		}
		key, found := keySet.LookupKeyID(kid)
		if !found {
			// The key may have rotated in since our last fetch.
			if keySet, err = v.cache.Refresh(ctx, v.config.JWKSURL); err != nil {
				return nil, fmt.Errorf("kid %q not found and refresh failed: %w", kid, err)
			}
			if key, found = keySet.LookupKeyID(kid); !found {
				return nil, fmt.Errorf("kid %q not found in JWKS", kid)
			}
		}

		var rawKey any
		if err := key.Raw(&rawKey); err != nil {
			return nil, fmt.Errorf("extract key material for kid %q: %w", kid, err)
		}
		return rawKey, nil
	}
}
