// Package handler exposes the HTTP endpoints of the RSVP gateway.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-rsvp-ledger/internal/model"
)

// DefaultSubmitTimeout caps one submission end to end when no timeout is
// configured.
const DefaultSubmitTimeout = 30 * time.Second

// Submitter records one RSVP.
type Submitter interface {
	Submit(ctx context.Context, sub model.Submission) (model.Result, error)
}

// RSVPHandler serves the submission endpoint.
type RSVPHandler struct {
	svc     Submitter
	timeout time.Duration
	log     zerolog.Logger
}

// NewRSVPHandler returns a handler that gives each submission at most
// timeout; zero selects DefaultSubmitTimeout.
func NewRSVPHandler(svc Submitter, timeout time.Duration, log zerolog.Logger) *RSVPHandler {
	if svc == nil {
		panic("nil submitter passed to NewRSVPHandler")
	}
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	return &RSVPHandler{svc: svc, timeout: timeout, log: log.With().Str("component", "rsvp-handler").Logger()}
}

// Submit handles POST /api/submit-rsvp. The body must be a JSON object;
// field contents are not validated. The size cap is enforced by the route's
// BodyLimit middleware.
func (h *RSVPHandler) Submit(c echo.Context) error {
	// the default binder treats an empty body as nothing to bind
	if c.Request().ContentLength == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request", "error": "request body is required"})
	}
	var sub model.Submission
	if err := c.Bind(&sub); err != nil {
		// BodyLimit reports an oversized chunked body through the read
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"message": "Invalid request", "error": "body too large"})
		}
		if errors.Is(err, model.ErrNotObject) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request", "error": err.Error()})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request", "error": "invalid JSON body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout) // bounds the whole lock, resolve and append sequence
	defer cancel()

	res, err := h.svc.Submit(ctx, sub)
	if err != nil {
		h.log.Error().Err(err).Str("ward", sub.WardName).Msg("submit rsvp")
		// the cause may name the backing store; the client only learns it failed
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": "Failed to submit RSVP",
			"error":   "the RSVP could not be recorded, please try again",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "RSVP submitted successfully",
		"sheet":       res.Sheet,
		"currentSlot": res.CurrentSlot,
	})
}
