package emergency

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vitalsignal/vitalsignal/internal/domain/consent"
	"github.com/vitalsignal/vitalsignal/internal/platform/auth"
)

type mockConsentRepo struct {
	records []*consent.Record
}

func (m *mockConsentRepo) Create(_ context.Context, r *consent.Record) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.records = append(m.records, r)
	return nil
}

func (m *mockConsentRepo) ListByUser(_ context.Context, userID uuid.UUID, consentType string, limit, offset int) ([]*consent.Record, int, error) {
	return nil, 0, nil
}

func (m *mockConsentRepo) LatestByUser(_ context.Context, userID uuid.UUID, consentType string) (*consent.Record, error) {
	return nil, nil
}

func newHandlerFixture(t *testing.T) (*fixture, *Handler, *mockConsentRepo) {
	t.Helper()
	f := newFixture(t)
	consentRepo := &mockConsentRepo{}
	consents := consent.NewService(consentRepo, zerolog.Nop())
	return f, NewHandler(f.svc, consents), consentRepo
}

func doRequest(e *echo.Echo, method, path string, body string, caller auth.Caller, handler echo.HandlerFunc, params ...string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if !caller.IsZero() {
		req = req.WithContext(auth.WithCaller(req.Context(), caller))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestTriggerEmergencyHandler(t *testing.T) {
	f, h, _ := newHandlerFixture(t)
	e := echo.New()
	patientID := f.addPatient(contactWithPhone())

	rec := doRequest(e, http.MethodPost, "/", "", selfCaller(patientID), h.TriggerEmergency, "id", patientID.String())
	if rec.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var result TriggerResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success || result.EventID == nil {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Second trigger maps the rate limit to 429.
	rec = doRequest(e, http.MethodPost, "/", "", selfCaller(patientID), h.TriggerEmergency, "id", patientID.String())
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("got status %d, want 429", rec.Code)
	}
}

func TestTriggerEmergencyHandlerBadID(t *testing.T) {
	f, h, _ := newHandlerFixture(t)
	_ = f
	e := echo.New()

	rec := doRequest(e, http.MethodPost, "/", "", auth.Caller{UserID: uuid.New()}, h.TriggerEmergency, "id", "not-a-uuid")
	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d, want 404", rec.Code)
	}
}

func TestLocationConsentHandlerGranted(t *testing.T) {
	f, h, consentRepo := newHandlerFixture(t)
	e := echo.New()
	patientID := f.addPatient(contactWithPhone())
	event := triggerEvent(t, f, patientID)

	body := `{"granted":true,"location":{"latitude":52.52,"longitude":13.405,"accuracy":20}}`
	rec := doRequest(e, http.MethodPost, "/", body, selfCaller(patientID), h.LocationConsent, "id", event.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	var resp locationConsentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Granted {
		t.Error("expected granted response")
	}
	if resp.Event == nil || !resp.Event.LocationConsented {
		t.Error("expected event with location consent set")
	}
	if len(consentRepo.records) != 1 {
		t.Fatalf("expected one consent record, got %d", len(consentRepo.records))
	}
	if !consentRepo.records[0].Granted {
		t.Error("consent record should be granted")
	}
}

func TestLocationConsentHandlerDenied(t *testing.T) {
	f, h, consentRepo := newHandlerFixture(t)
	e := echo.New()
	patientID := f.addPatient(contactWithPhone())
	event := triggerEvent(t, f, patientID)

	rec := doRequest(e, http.MethodPost, "/", `{"granted":false}`, selfCaller(patientID), h.LocationConsent, "id", event.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("denial is a normal outcome, got status %d: %s", rec.Code, rec.Body.String())
	}

	var resp locationConsentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Granted {
		t.Error("expected denied response")
	}
	if resp.Event.LocationConsented || resp.Event.LocationLat != nil {
		t.Error("denied consent must not set location fields")
	}
	if len(consentRepo.records) != 1 || consentRepo.records[0].Granted {
		t.Error("denial must still write one granted=false record")
	}
}

func TestUpdateEmergencyStatusHandler(t *testing.T) {
	f, h, _ := newHandlerFixture(t)
	e := echo.New()
	patientID := f.addPatient(contactWithPhone())
	event := triggerEvent(t, f, patientID)

	rec := doRequest(e, http.MethodPut, "/", `{"status":"sent"}`, selfCaller(patientID), h.UpdateEmergencyStatus, "id", event.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	var updated Event
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if updated.Status != StatusSent {
		t.Errorf("got status %q, want sent", updated.Status)
	}

	// Unknown status values are rejected at the boundary.
	rec = doRequest(e, http.MethodPut, "/", `{"status":"delivered"}`, selfCaller(patientID), h.UpdateEmergencyStatus, "id", event.ID.String())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestGetEmergencyHistoryHandler(t *testing.T) {
	f, h, _ := newHandlerFixture(t)
	e := echo.New()
	patientID := f.addPatient(contactWithPhone())
	triggerEvent(t, f, patientID)

	rec := doRequest(e, http.MethodGet, "/", "", selfCaller(patientID), h.GetEmergencyHistory, "id", patientID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	// A stranger gets 403.
	stranger := auth.Caller{UserID: uuid.New(), Roles: []string{auth.RolePatient}}
	rec = doRequest(e, http.MethodGet, "/", "", stranger, h.GetEmergencyHistory, "id", patientID.String())
	if rec.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", rec.Code)
	}
}
