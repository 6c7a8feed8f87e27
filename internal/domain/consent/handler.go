package consent

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mssola/user_agent"

	"github.com/vitalsignal/vitalsignal/internal/platform/apperror"
	"github.com/vitalsignal/vitalsignal/internal/platform/auth"
	"github.com/vitalsignal/vitalsignal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/consents", h.GetConsentHistory)
}

type historyItem struct {
	*Record
	Device string `json:"device,omitempty"`
}

func (h *Handler) GetConsentHistory(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, apperror.Failure(
			apperror.New(apperror.CodeInvalidPatientID, "invalid patient id")))
	}

	caller := auth.CallerFromContext(c.Request().Context())
	consentType := c.QueryParam("type")
	if consentType == "" {
		consentType = TypeLocation
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.GetConsentHistory(c.Request().Context(), caller, userID, consentType, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperror.HTTPStatus(apperror.CodeOf(err)), apperror.Failure(err))
	}

	// Summarize the recorded user agent into a readable device string.
	out := make([]historyItem, 0, len(items))
	for _, rec := range items {
		item := historyItem{Record: rec}
		if rec.UserAgent != "" {
			ua := user_agent.New(rec.UserAgent)
			browser, _ := ua.Browser()
			item.Device = ua.OS()
			if browser != "" {
				item.Device = browser + " on " + ua.OS()
			}
		}
		out = append(out, item)
	}

	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}
