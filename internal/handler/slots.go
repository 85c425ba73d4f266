package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-rsvp-ledger/internal/allocator"
)

// SlotLister reports page occupancy.
type SlotLister interface {
	Slots(ctx context.Context) ([]allocator.PageSummary, error)
}

type SlotsHandler struct {
	svc       SlotLister
	threshold int
}

func NewSlotsHandler(svc SlotLister, threshold int) *SlotsHandler {
	return &SlotsHandler{svc: svc, threshold: threshold}
}

// List handles GET /api/slots.
func (h *SlotsHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	pages, err := h.svc.Slots(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to read slots", "error": "ledger unavailable"}) // store detail stays server side
	}
	// an empty ledger means the next RSVP opens Sheet1, the current slot
	current := true
	if len(pages) > 0 {
		current = pages[len(pages)-1].CurrentSlot // only the last page takes new rows
	}
	return c.JSON(http.StatusOK, echo.Map{
		"threshold":   h.threshold,
		"currentSlot": current,
		"pages":       pages,
	})
}
