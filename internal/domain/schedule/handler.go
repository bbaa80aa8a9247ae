package schedule

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vaxremind/vaxremind/internal/platform/auth"
	"github.com/vaxremind/vaxremind/pkg/pagination"
)

const defaultUpcomingDays = 7

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/schedules/upcoming", h.ListUpcoming)
}

// ListUpcoming handles GET /schedules/upcoming?days=N.
func (h *Handler) ListUpcoming(c echo.Context) error {
	facilityID, err := uuid.Parse(auth.FacilityFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid facility")
	}

	days := defaultUpcomingDays
	if raw := c.QueryParam("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be a positive integer")
		}
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUpcoming(c.Request().Context(), facilityID, time.Now().UTC(), days, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list upcoming doses")
	}
	if items == nil {
		items = []*UpcomingDose{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
