package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vaxremind/vaxremind/internal/platform/auth"
)

// Logger emits one structured log line per request. Requests made on behalf
// of a facility carry its id so a clinic's traffic can be filtered.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			// The central error handler runs after this middleware, so for
			// handler errors the response status is not yet set.
			status := c.Response().Status
			if httpErr, ok := err.(*echo.HTTPError); ok {
				status = httpErr.Code
			}

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			if fid := auth.FacilityFromContext(req.Context()); fid != "" {
				evt = evt.Str("facility_id", fid)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
