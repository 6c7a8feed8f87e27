package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func signToken(t *testing.T, cfg JWTConfig, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(cfg.SigningKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	cfg := JWTConfig{Issuer: "https://auth.test", SigningKey: "test-secret"}
	userID := uuid.New()
	raw := signToken(t, cfg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{RoleDoctor},
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Caller
	handler := JWTMiddleware(cfg)(func(c echo.Context) error {
		got, _ = c.Get("caller").(Caller)
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if got.UserID != userID {
		t.Errorf("got user %s, want %s", got.UserID, userID)
	}
	if !got.HasRole(RoleDoctor) {
		t.Error("expected doctor role on caller")
	}
}

func TestJWTMiddlewareRejectsMissingToken(t *testing.T) {
	cfg := JWTConfig{Issuer: "https://auth.test", SigningKey: "test-secret"}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := JWTMiddleware(cfg)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestJWTMiddlewareRejectsExpiredToken(t *testing.T) {
	cfg := JWTConfig{Issuer: "https://auth.test", SigningKey: "test-secret"}
	raw := signToken(t, cfg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := JWTMiddleware(cfg)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(caller Caller, roles ...string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if !caller.IsZero() {
			c.Set("caller", caller)
		}
		handler := RequireRole(roles...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		if err := handler(c); err != nil {
			e.HTTPErrorHandler(err, c)
		}
		return rec.Code
	}

	doctor := Caller{UserID: uuid.New(), Roles: []string{RoleDoctor}}
	admin := Caller{UserID: uuid.New(), Roles: []string{RoleAdmin}}
	patient := Caller{UserID: uuid.New(), Roles: []string{RolePatient}}

	if code := run(doctor, RoleDoctor); code != http.StatusOK {
		t.Errorf("doctor: got %d, want 200", code)
	}
	if code := run(admin, RoleDoctor); code != http.StatusOK {
		t.Errorf("admin bypass: got %d, want 200", code)
	}
	if code := run(patient, RoleDoctor); code != http.StatusForbidden {
		t.Errorf("patient: got %d, want 403", code)
	}
	if code := run(Caller{}, RoleDoctor); code != http.StatusUnauthorized {
		t.Errorf("anonymous: got %d, want 401", code)
	}
}
