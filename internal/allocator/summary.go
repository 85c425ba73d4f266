package allocator

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/event-rsvp-ledger/internal/ledger"
)

// PageSummary reports the occupancy of one ledger page.
type PageSummary struct {
	Sheet        int    `json:"sheet"`
	Name         string `json:"name"`
	CapacityUsed int    `json:"capacityUsed"`
	Threshold    int    `json:"threshold"`
	Remaining    int    `json:"remaining"`
	CurrentSlot  bool   `json:"currentSlot"`
	Active       bool   `json:"active"`
}

// Summarize reads every ledger page and reports its used capacity. Tables
// that are not ledger pages are skipped. It never creates pages.
func (a *Allocator) Summarize(ctx context.Context) ([]PageSummary, error) {
	pages, err := a.store.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	active, _ := ledger.MaxIndex(pages)

	seen := make(map[ledger.PageIndex]bool, len(pages))
	out := make([]PageSummary, 0, len(pages))
	for _, p := range pages {
		if !p.Index.Valid() || seen[p.Index] {
			continue
		}
		seen[p.Index] = true
		used, err := a.CapacityUsed(ctx, p.Index)
		if err != nil {
			return nil, err
		}
		remaining := a.threshold - used
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, PageSummary{
			Sheet:        int(p.Index),
			Name:         p.Index.Name(),
			CapacityUsed: used,
			Threshold:    a.threshold,
			Remaining:    remaining,
			CurrentSlot:  p.Index.IsCurrent(),
			Active:       p.Index == active,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sheet < out[j].Sheet })
	return out, nil
}
