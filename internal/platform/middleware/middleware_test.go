package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vitalsignal/vitalsignal/internal/platform/auth"
)

func TestRequestIDGenerated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestID()(func(c echo.Context) error {
		rid, _ := c.Get("request_id").(string)
		if rid == "" {
			t.Error("expected request_id to be set")
		}
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "incoming-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestID()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "incoming-id" {
		t.Errorf("got request id %q, want incoming-id", got)
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic("boom")
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500", rec.Code)
	}
}

func TestAuditRecordsAPIRequest(t *testing.T) {
	e := echo.New()
	userID := uuid.New()
	patientID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients/"+patientID.String()+"/emergencies", nil)
	req = req.WithContext(auth.WithCaller(req.Context(), auth.Caller{
		UserID: userID,
		Roles:  []string{auth.RoleDoctor},
	}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got AuditEntry
	recorder := AuditRecorderFunc(func(entry AuditEntry) error {
		got = entry
		return nil
	})

	handler := Audit(zerolog.Nop(), recorder)(func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}

	if got.UserID != userID.String() {
		t.Errorf("got user %q, want %q", got.UserID, userID)
	}
	if got.PatientID != patientID.String() {
		t.Errorf("got patient %q, want %q", got.PatientID, patientID)
	}
	if got.ResourceType != "patients" {
		t.Errorf("got resource %q, want patients", got.ResourceType)
	}
	if got.Action != "create" {
		t.Errorf("got action %q, want create", got.Action)
	}
	if got.StatusCode != http.StatusCreated {
		t.Errorf("got status %d, want 201", got.StatusCode)
	}
}

func TestAuditSkipsNonAPIPaths(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	recorder := AuditRecorderFunc(func(entry AuditEntry) error {
		called = true
		return nil
	})

	handler := Audit(zerolog.Nop(), recorder)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if called {
		t.Error("health endpoint should not be audited")
	}
}
