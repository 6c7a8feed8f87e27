package emergency

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitalsignal/vitalsignal/internal/domain/consent"
	"github.com/vitalsignal/vitalsignal/internal/platform/apperror"
	"github.com/vitalsignal/vitalsignal/internal/platform/auth"
	"github.com/vitalsignal/vitalsignal/pkg/pagination"
)

type Handler struct {
	svc      *Service
	consents *consent.Service
}

func NewHandler(svc *Service, consents *consent.Service) *Handler {
	return &Handler{svc: svc, consents: consents}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:id/emergencies", h.TriggerEmergency)
	api.GET("/patients/:id/emergencies", h.GetEmergencyHistory)
	api.GET("/emergencies/:id", h.GetEmergencyEvent)
	api.PUT("/emergencies/:id/status", h.UpdateEmergencyStatus)
	api.POST("/emergencies/:id/location-consent", h.LocationConsent)
}

func (h *Handler) TriggerEmergency(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, apperror.Failure(
			apperror.New(apperror.CodeInvalidPatientID, "invalid patient id")))
	}

	caller := auth.CallerFromContext(c.Request().Context())
	result := h.svc.TriggerEmergency(c.Request().Context(), caller, patientID)
	if !result.Success {
		return c.JSON(apperror.HTTPStatus(apperror.Code(result.ErrorCode)), result)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) GetEmergencyHistory(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, apperror.Failure(
			apperror.New(apperror.CodeInvalidPatientID, "invalid patient id")))
	}

	caller := auth.CallerFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	items, total, err := h.svc.GetEmergencyHistory(c.Request().Context(), caller, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), apperror.Failure(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetEmergencyEvent(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, apperror.Failure(
			apperror.New(apperror.CodeInvalidPatientID, "invalid event id")))
	}

	caller := auth.CallerFromContext(c.Request().Context())
	event, err := h.svc.GetEmergencyEvent(c.Request().Context(), caller, eventID)
	if err != nil {
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), apperror.Failure(err))
	}
	return c.JSON(http.StatusOK, event)
}

type statusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

func (h *Handler) UpdateEmergencyStatus(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, apperror.Failure(
			apperror.New(apperror.CodeInvalidPatientID, "invalid event id")))
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apperror.Failure(
			apperror.New(apperror.CodeValidationError, "invalid request body")))
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apperror.Failure(
			apperror.Wrap(apperror.CodeValidationError, err.Error(), err)))
	}

	caller := auth.CallerFromContext(c.Request().Context())
	event, err := h.svc.UpdateEmergencyStatus(c.Request().Context(), caller, eventID, status, req.Notes)
	if err != nil {
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), apperror.Failure(err))
	}
	return c.JSON(http.StatusOK, event)
}

// locationConsentRequest is the client's report of the device consent
// dialog and location read.
type locationConsentRequest struct {
	Granted     bool              `json:"granted"`
	Unsupported bool              `json:"unsupported,omitempty"`
	Location    *consent.Location `json:"location,omitempty"`
	Error       string            `json:"error,omitempty"`
}

type locationConsentResponse struct {
	Success   bool      `json:"success"`
	ConsentID uuid.UUID `json:"consent_id"`
	Granted   bool      `json:"granted"`
	Event     *Event    `json:"event"`
}

// LocationConsent records the consent decision for the event's patient
// and applies the outcome to the event. A denied or failed location read
// is a normal outcome; the emergency flow proceeds without coordinates.
func (h *Handler) LocationConsent(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, apperror.Failure(
			apperror.New(apperror.CodeInvalidPatientID, "invalid event id")))
	}

	var req locationConsentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apperror.Failure(
			apperror.New(apperror.CodeValidationError, "invalid request body")))
	}

	caller := auth.CallerFromContext(c.Request().Context())
	event, err := h.svc.GetEmergencyEvent(c.Request().Context(), caller, eventID)
	if err != nil {
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), apperror.Failure(err))
	}

	meta := consent.RequestMeta{
		UserAgent: c.Request().UserAgent(),
		Source:    "emergency",
	}
	decision, err := h.consents.RequestLocationConsent(
		c.Request().Context(), event.PatientID, locationSource(req), meta)
	if err != nil {
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), apperror.Failure(err))
	}

	updated, err := h.svc.UpdateEmergencyWithLocation(c.Request().Context(), caller, eventID, decision.Outcome)
	if err != nil {
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), apperror.Failure(err))
	}

	_, granted := decision.Outcome.(consent.Granted)
	return c.JSON(http.StatusOK, locationConsentResponse{
		Success:   true,
		ConsentID: decision.ConsentID,
		Granted:   granted,
		Event:     updated,
	})
}

// locationSource turns the client-reported dialog result into a source
// the consent coordinator can read. A device without location capability
// maps to a nil source.
func locationSource(req locationConsentRequest) consent.LocationSource {
	if req.Unsupported {
		return nil
	}
	if !req.Granted {
		return consent.LocationSourceFunc(func(context.Context) (consent.Location, error) {
			return consent.Location{}, consent.ErrConsentDenied
		})
	}
	if req.Location == nil {
		return consent.LocationSourceFunc(func(context.Context) (consent.Location, error) {
			return consent.Location{}, errors.New("no location fix reported")
		})
	}
	loc := *req.Location
	if req.Error != "" {
		readErr := errors.New(req.Error)
		return consent.LocationSourceFunc(func(context.Context) (consent.Location, error) {
			return consent.Location{}, readErr
		})
	}
	return consent.LocationSourceFunc(func(context.Context) (consent.Location, error) {
		return loc, nil
	})
}
