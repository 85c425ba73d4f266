// Package logging builds the zerolog logger shared by the server and provides
// the echo request-logging middleware.
package logging

import (
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// New returns a logger writing to w. In the "dev" environment output is
// human-readable, elsewhere it is one JSON object per line.
func New(env string, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if env == "dev" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("app", "event-rsvp").Logger()
}

// RequestLogger logs one line per request with method, path, status and
// latency. The request id set by echo's RequestID middleware is included
// when present.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()

			ev := log.Info()
			if res.Status >= 500 {
				ev = log.Error()
			} else if res.Status >= 400 {
				ev = log.Warn()
			}
			if id := res.Header().Get(echo.HeaderXRequestID); id != "" {
				ev = ev.Str("request_id", id)
			}
			ev.Str("method", req.Method).
				Str("path", c.Path()).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}
