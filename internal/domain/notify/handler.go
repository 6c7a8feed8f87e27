package notify

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vitalsignal/vitalsignal/internal/domain/emergency"
	"github.com/vitalsignal/vitalsignal/internal/platform/apperror"
	"github.com/vitalsignal/vitalsignal/internal/platform/auth"
)

// FallbackInstruction is surfaced to the caller whenever delivery fails.
const FallbackInstruction = "We could not notify your emergency contact. Please contact your local emergency services directly."

// Handler composes the dispatcher with the event lifecycle: every
// dispatch is followed by the terminal status write, so events never
// stay pending after a notification attempt resolves.
type Handler struct {
	dispatcher  *Dispatcher
	emergencies *emergency.Service
	log         zerolog.Logger
}

func NewHandler(dispatcher *Dispatcher, emergencies *emergency.Service, log zerolog.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, emergencies: emergencies, log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/emergencies/:id/notify", h.Notify)
	api.GET("/emergencies/:id/notifications", h.ListAttempts)
}

type notifyResponse struct {
	Success     bool    `json:"success"`
	Result      *Result `json:"result,omitempty"`
	EventStatus string  `json:"event_status,omitempty"`
	Message     string  `json:"message,omitempty"`
}

func (h *Handler) Notify(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, apperror.Failure(
			apperror.New(apperror.CodeInvalidPatientID, "invalid event id")))
	}

	ctx := c.Request().Context()
	caller := auth.CallerFromContext(ctx)

	event, err := h.emergencies.GetEmergencyEvent(ctx, caller, eventID)
	if err != nil {
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), apperror.Failure(err))
	}

	contact, err := h.emergencies.EmergencyContact(ctx, event)
	if err != nil {
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), apperror.Failure(err))
	}

	result, err := h.dispatcher.SendEmergencyNotification(ctx, event, contact)
	if err != nil {
		// No delivery was attempted, but the emergency still resolved
		// without a notification: the event must not stay pending.
		h.writeTerminalStatus(c, caller, event, emergency.StatusFailed, apperror.MessageOf(err))
		env := apperror.Failure(err)
		env.Message = env.Message + ". " + FallbackInstruction
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), env)
	}

	status := emergency.StatusFailed
	note := "Notification failed: " + result.Error
	if result.Success {
		status = emergency.StatusSent
		note = "Notification sent via " + string(result.Channel)
	}
	h.writeTerminalStatus(c, caller, event, status, note)

	resp := notifyResponse{Success: result.Success, Result: result, EventStatus: string(status)}
	if !result.Success {
		resp.Message = FallbackInstruction
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) writeTerminalStatus(c echo.Context, caller auth.Caller, event *emergency.Event, status emergency.Status, note string) {
	if _, err := h.emergencies.UpdateEmergencyStatus(c.Request().Context(), caller, event.ID, status, &note); err != nil {
		h.log.Error().Err(err).
			Str("event_id", event.ID.String()).
			Str("status", string(status)).
			Msg("failed to record terminal event status")
	}
}

func (h *Handler) ListAttempts(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, apperror.Failure(
			apperror.New(apperror.CodeInvalidPatientID, "invalid event id")))
	}

	ctx := c.Request().Context()
	caller := auth.CallerFromContext(ctx)

	event, err := h.emergencies.GetEmergencyEvent(ctx, caller, eventID)
	if err != nil {
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), apperror.Failure(err))
	}

	items, err := h.dispatcher.AttemptsForEvent(ctx, event)
	if err != nil {
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), apperror.Failure(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}
