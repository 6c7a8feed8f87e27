package auth

import (
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
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitalsignal/vitalsignal/internal/platform/apperror"
)

// Claims is the JWT claim set the server accepts. Roles come from a
// custom "roles" claim issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// JWTConfig configures token verification. When JWKSURL is set keys are
// fetched and cached from the provider; otherwise SigningKey is used for
// HMAC verification (local development).
type JWTConfig struct {
	Issuer     string
	Audience   string
	JWKSURL    string
	SigningKey string
}

// JWTMiddleware verifies the bearer token and stores the resolved Caller
// on the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	var jwks *jwksCache
	if cfg.JWKSURL != "" {
		jwks = newJWKSCache(cfg.JWKSURL)
	}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if jwks != nil {
			kid, _ := token.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("token missing kid header")
			}
			return jwks.Key(kid)
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
		}
		return []byte(cfg.SigningKey), nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			opts := []jwt.ParserOption{jwt.WithIssuer(cfg.Issuer)}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}
			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return unauthorized(c, "invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return unauthorized(c, "invalid subject")
			}

			caller := Caller{UserID: userID, Roles: claims.Roles}
			c.Set("caller", caller)
			c.SetRequest(c.Request().WithContext(WithCaller(c.Request().Context(), caller)))
			return next(c)
		}
	}
}

// DevAuthMiddleware injects a fixed admin caller. Only wired when the
// server runs with ENV=development and no issuer configured.
func DevAuthMiddleware() echo.MiddlewareFunc {
	devID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller := Caller{UserID: devID, Roles: []string{RoleAdmin}}
			c.Set("caller", caller)
			c.SetRequest(c.Request().WithContext(WithCaller(c.Request().Context(), caller)))
			return next(c)
		}
	}
}

// RequireRole allows the request through when the caller holds any of the
// given roles. Admins always pass.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := c.Get("caller").(Caller)
			if !ok || caller.IsZero() {
				return unauthorized(c, "authentication required")
			}
			if caller.HasRole(RoleAdmin) {
				return next(c)
			}
			for _, r := range roles {
				if caller.HasRole(r) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	err := apperror.New(apperror.CodeAuthenticationFailed, msg)
	return c.JSON(http.StatusUnauthorized, apperror.Failure(err))
}

type jwksKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwksKey `json:"keys"`
}

type jwksCache struct {
	url string
	ttl time.Duration

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

func newJWKSCache(url string) *jwksCache {
	return &jwksCache{url: url, ttl: 15 * time.Minute, keys: map[string]*rsa.PublicKey{}}
}

func (c *jwksCache) Key(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := time.Since(c.fetched) < c.ttl
	c.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}
	if err := c.fetch(); err != nil {
		if ok {
			return key, nil
		}
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}

func (c *jwksCache) fetch() error {
	resp, err := http.Get(c.url)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}
	var body jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(body.Keys))
	for _, k := range body.Keys {
		if k.Kty != "RSA" {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nb),
			E: int(new(big.Int).SetBytes(eb).Int64()),
		}
	}

	c.mu.Lock()
	c.keys = keys
	c.fetched = time.Now()
	c.mu.Unlock()
	return nil
}
