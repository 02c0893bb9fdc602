package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/acolhida/acolhida/internal/platform/apperr"
)

// Claims is the token payload issued by the upstream login service.
// Subject carries the numeric user id.
type Claims struct {
	jwt.RegisteredClaims
	Role        string            `json:"role"`
	Permissions []json.RawMessage `json:"permissions"`
}

// Scopes normalizes the mixed permission entries of the token.
func (c *Claims) Scopes() []Scope {
	if len(c.Permissions) == 0 {
		return nil
	}
	raw, err := json.Marshal(c.Permissions)
	if err != nil {
		return nil
	}
	return ParseScopesJSON(raw)
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HS256 validation; when empty tokens are checked
	// against JWKSURL (or the issuer's discovered jwks_uri).
	SigningKey []byte
	Skipper    func(echo.Context) bool
}

// JWKSKey represents a single JSON Web Key from a JWKS endpoint.
type JWKSKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSResponse represents the response from a JWKS endpoint.
type JWKSResponse struct {
	Keys []JWKSKey `json:"keys"`
}

// JWKSCache caches JWKS keys fetched from a remote endpoint with a configurable TTL.
type JWKSCache struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	jwksURL   string
	ttl       time.Duration
	fetchedAt time.Time
	client    *http.Client
}

// NewJWKSCache creates a new JWKS cache that fetches keys from the given URL.
func NewJWKSCache(jwksURL string, ttl time.Duration) *JWKSCache {
	return &JWKSCache{
		keys:    make(map[string]*rsa.PublicKey),
		jwksURL: jwksURL,
		ttl:     ttl,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKey returns the RSA public key for kid, refetching on a miss or after
// the TTL so rotated keys are picked up.
func (c *JWKSCache) GetKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	expired := time.Since(c.fetchedAt) > c.ttl
	c.mu.RUnlock()

	if ok && !expired {
		return key, nil
	}

	if err := c.fetch(ctx); err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key with kid %q not found in JWKS", kid)
	}
	return key, nil
}

func (c *JWKSCache) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", c.jwksURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks JWKSResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("decoding JWKS response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(k)
		if err != nil {
			continue // skip malformed keys
		}
		keys[k.Kid] = pubKey
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return nil
}

func parseRSAPublicKey(k JWKSKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

const defaultJWKSCacheTTL = 5 * time.Minute

func jwksKeyFunc(ctx context.Context, cache *JWKSCache) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return cache.GetKey(ctx, kid)
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", apperr.Unauthenticated("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperr.Unauthenticated("invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// JWTMiddleware validates the bearer token and stores the resulting Actor on
// the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	var cache *JWKSCache
	if len(cfg.SigningKey) == 0 {
		jwksURL := cfg.JWKSURL
		if jwksURL == "" && cfg.Issuer != "" {
			if provider, err := DiscoverOIDC(context.Background(), cfg.Issuer); err == nil {
				jwksURL = provider.JWKSURI
			}
		}
		cache = NewJWKSCache(jwksURL, defaultJWKSCacheTTL)
	}

	// Each mode accepts only its own algorithm.
	method := jwt.SigningMethodHS256.Alg()
	if cache != nil {
		method = jwt.SigningMethodRS256.Alg()
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{method})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, err := bearerToken(c.Request())
			if err != nil {
				return err
			}

			claims := &Claims{}
			var keyFunc jwt.Keyfunc
			if cache == nil {
				keyFunc = func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
			} else {
				keyFunc = jwksKeyFunc(c.Request().Context(), cache)
			}

			token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return apperr.Unauthenticated("invalid token")
			}

			userID, ok := ParseUserID(claims.Subject)
			if !ok {
				return apperr.Unauthenticated("token subject is not a valid user id")
			}

			actor := NewActor(userID, claims.Role, claims.Scopes())
			c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
			return next(c)
		}
	}
}

// Development identity headers, honored only by DevAuthMiddleware.
const (
	DevUserIDHeader      = "X-Dev-User-Id"
	DevRoleHeader        = "X-Dev-Role"
	DevPermissionsHeader = "X-Dev-Permissions"
)

// DevAuthMiddleware is a permissive middleware for development. Without
// headers every request runs as admin user 1; the X-Dev-* headers override
// the identity so non-admin flows can be exercised locally.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			userID := int64(1)
			if raw := h.Get(DevUserIDHeader); raw != "" {
				id, ok := ParseUserID(raw)
				if !ok {
					return apperr.Unauthenticated("invalid " + DevUserIDHeader)
				}
				userID = id
			}
			role := RoleAdmin
			if raw := h.Get(DevRoleHeader); raw != "" {
				role = raw
			}
			var scopes []Scope
			for _, raw := range strings.Split(h.Get(DevPermissionsHeader), ",") {
				if s, ok := ParseScope(raw); ok {
					scopes = append(scopes, s)
				}
			}

			actor := NewActor(userID, role, scopes)
			c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
			return next(c)
		}
	}
}
