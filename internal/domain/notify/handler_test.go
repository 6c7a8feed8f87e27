package notify

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

	"github.com/vitalsignal/vitalsignal/internal/domain/emergency"
	"github.com/vitalsignal/vitalsignal/internal/domain/patient"
	"github.com/vitalsignal/vitalsignal/internal/platform/auth"
	"github.com/vitalsignal/vitalsignal/internal/platform/transport"
)

type mockEventRepo struct {
	events map[uuid.UUID]*emergency.Event
}

func (m *mockEventRepo) CreateIfNoRecent(_ context.Context, e *emergency.Event, _ time.Time) (bool, error) {
	e.ID = uuid.New()
	m.events[e.ID] = e
	return true, nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id uuid.UUID) (*emergency.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, emergency.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (m *mockEventRepo) LatestByPatientSince(_ context.Context, _ uuid.UUID, _ time.Time) (*emergency.Event, error) {
	return nil, nil
}

func (m *mockEventRepo) UpdateLocation(_ context.Context, id uuid.UUID, consented bool, lat, lng *float64) error {
	e, ok := m.events[id]
	if !ok {
		return emergency.ErrNotFound
	}
	e.LocationConsented = consented
	e.LocationLat, e.LocationLng = lat, lng
	return nil
}

func (m *mockEventRepo) UpdateStatus(_ context.Context, id uuid.UUID, status emergency.Status, notes *string) error {
	e, ok := m.events[id]
	if !ok {
		return emergency.ErrNotFound
	}
	e.Status = status
	if notes != nil {
		e.Notes = *notes
	}
	return nil
}

func (m *mockEventRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*emergency.Event, int, error) {
	var out []*emergency.Event
	for _, e := range m.events {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

type handlerFixture struct {
	handler   *Handler
	events    *mockEventRepo
	attempts  *mockAttemptRepo
	email     *transport.MockEmailSender
	sms       *transport.MockSMSSender
	patientID uuid.UUID
	eventID   uuid.UUID
}

func newHandlerFixture(t *testing.T, contact patient.EmergencyContact) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		events:    &mockEventRepo{events: map[uuid.UUID]*emergency.Event{}},
		attempts:  &mockAttemptRepo{},
		email:     &transport.MockEmailSender{},
		sms:       &transport.MockSMSSender{},
		patientID: uuid.New(),
	}
	patients := &mockPatientRepo{patients: map[uuid.UUID]*patient.Patient{
		f.patientID: {ID: f.patientID, FirstName: "Ada", LastName: "Nguyen", EmergencyContact: contact},
	}}
	f.eventID = uuid.New()
	f.events.events[f.eventID] = &emergency.Event{
		ID:          f.eventID,
		PatientID:   f.patientID,
		TriggeredBy: f.patientID,
		TriggeredAt: time.Now().Add(-time.Minute),
		Status:      emergency.StatusPending,
	}

	dispatcher := NewDispatcher(f.attempts, patients, &mockVitalsRepo{}, f.email, f.sms, zerolog.Nop())
	svc := emergency.NewService(f.events, patients, zerolog.Nop())
	f.handler = NewHandler(dispatcher, svc, zerolog.Nop())
	return f
}

func (f *handlerFixture) doNotify(t *testing.T, caller auth.Caller) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(auth.WithCaller(req.Context(), caller))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.eventID.String())
	if err := f.handler.Notify(c); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	return rec
}

func TestNotifyWritesSentStatus(t *testing.T) {
	f := newHandlerFixture(t, smsContact())
	caller := auth.Caller{UserID: f.patientID, Roles: []string{"patient"}}

	rec := f.doNotify(t, caller)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	var resp notifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success || resp.EventStatus != string(emergency.StatusSent) {
		t.Errorf("got %+v, want success with sent status", resp)
	}

	event := f.events.events[f.eventID]
	if event.Status != emergency.StatusSent {
		t.Errorf("event status = %q, want sent", event.Status)
	}
	if event.Notes != "Notification sent via sms" {
		t.Errorf("unexpected notes: %q", event.Notes)
	}
	if len(f.sms.Sent) != 1 {
		t.Errorf("expected one sms, got %d", len(f.sms.Sent))
	}
}

func TestNotifyWritesFailedStatusOnTransportError(t *testing.T) {
	f := newHandlerFixture(t, smsContact())
	f.sms.ShouldFail = true
	caller := auth.Caller{UserID: f.patientID, Roles: []string{"patient"}}

	rec := f.doNotify(t, caller)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	var resp notifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Success {
		t.Error("expected failed response")
	}
	if resp.Message != FallbackInstruction {
		t.Errorf("got message %q, want fallback instruction", resp.Message)
	}
	if f.events.events[f.eventID].Status != emergency.StatusFailed {
		t.Errorf("event status = %q, want failed", f.events.events[f.eventID].Status)
	}
}

func TestNotifyMissingContactResolvesEvent(t *testing.T) {
	// Name only: no reachable address, so no delivery is attempted. The
	// event must still leave pending.
	f := newHandlerFixture(t, patient.EmergencyContact{Name: "Sam Rivera"})
	caller := auth.Caller{UserID: f.patientID, Roles: []string{"patient"}}

	rec := f.doNotify(t, caller)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Success {
		t.Error("expected failure envelope")
	}
	if !strings.HasSuffix(env.Message, FallbackInstruction) {
		t.Errorf("message should carry the fallback instruction: %q", env.Message)
	}
	if f.events.events[f.eventID].Status != emergency.StatusFailed {
		t.Errorf("event status = %q, want failed", f.events.events[f.eventID].Status)
	}
	if len(f.attempts.attempts) != 0 {
		t.Error("no attempt row expected without a delivery")
	}
}

func TestNotifyStrangerForbidden(t *testing.T) {
	f := newHandlerFixture(t, smsContact())
	stranger := auth.Caller{UserID: uuid.New(), Roles: []string{"patient"}}

	rec := f.doNotify(t, stranger)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want 403", rec.Code)
	}
	if f.events.events[f.eventID].Status != emergency.StatusPending {
		t.Error("unauthorized calls must not touch the event")
	}
}

func TestListAttempts(t *testing.T) {
	f := newHandlerFixture(t, smsContact())
	caller := auth.Caller{UserID: f.patientID, Roles: []string{"patient"}}
	f.doNotify(t, caller)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithCaller(req.Context(), caller))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.eventID.String())
	if err := f.handler.ListAttempts(c); err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []*Attempt `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("expected one attempt, got %d", len(resp.Data))
	}
	if resp.Data[0].Status != AttemptSent {
		t.Errorf("attempt status = %q, want sent", resp.Data[0].Status)
	}
}
