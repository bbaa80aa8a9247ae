package reminder

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vaxremind/vaxremind/internal/platform/auth"
	"github.com/vaxremind/vaxremind/pkg/pagination"
)

type Handler struct {
	dispatcher *Dispatcher
	attempts   AttemptRepository
}

func NewHandler(dispatcher *Dispatcher, attempts AttemptRepository) *Handler {
	return &Handler{dispatcher: dispatcher, attempts: attempts}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Manual dispatch is restricted to supervisors.
	api.POST("/reminders/run", h.RunNow, auth.RequireRole("supervisor"))
	api.GET("/sms-logs", h.ListAttempts)
}

// RunNow handles POST /reminders/run: a synchronous manual tick for
// operations, returning the tick summary.
func (h *Handler) RunNow(c echo.Context) error {
	summary, err := h.dispatcher.RunTick(c.Request().Context(), time.Now().UTC())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "reminder run failed")
	}
	return c.JSON(http.StatusOK, summary)
}

// ListAttempts handles GET /sms-logs, newest first.
func (h *Handler) ListAttempts(c echo.Context) error {
	facilityID, err := uuid.Parse(auth.FacilityFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid facility")
	}

	pg := pagination.FromContext(c)
	attempts, total, err := h.attempts.ListByFacility(c.Request().Context(), facilityID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list attempts")
	}
	if attempts == nil {
		attempts = []*Attempt{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(attempts, total, pg.Limit, pg.Offset))
}
