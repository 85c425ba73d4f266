// Package allocator decides which ledger page a new submission is written to.
//
// The active page is the page with the highest index. Its used capacity is the
// sum of the participant-count column over its data rows. While that sum is
// below the configured threshold the active page keeps receiving rows; once
// it reaches the threshold the allocator creates the next page, writing the
// header row as part of creation, and directs the submission there.
//
// The allocator performs several sequential store round trips and does no
// locking of its own. Callers that may run concurrently against the same
// ledger must serialize ResolveTargetPage together with the subsequent append
// (see package lock).
package allocator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/event-rsvp-ledger/internal/ledger"
)

// DefaultThreshold is the capacity of one page when none is configured.
const DefaultThreshold = 250

// ErrUnparsableCount is returned under CountReject when a row's participant
// count is missing or not a non-negative integer.
var ErrUnparsableCount = errors.New("unparsable participant count")

// CountPolicy controls how a row with a missing or malformed participant
// count contributes to used capacity.
type CountPolicy string

const (
	// CountZero counts such rows as zero guests. This is the default.
	CountZero CountPolicy = "zero"
	// CountOne counts such rows as a single guest.
	CountOne CountPolicy = "one"
	// CountReject fails the capacity computation.
	CountReject CountPolicy = "reject"
)

// ParseCountPolicy parses a configuration value. The empty string selects
// CountZero.
func ParseCountPolicy(s string) (CountPolicy, error) {
	switch p := CountPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return CountZero, nil
	case CountZero, CountOne, CountReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown count policy %q (want zero, one or reject)", s)
	}
}

// Options configures an Allocator.
type Options struct {
	Threshold   int
	CountPolicy CountPolicy
	Logger      zerolog.Logger
}

// Allocation is the outcome of ResolveTargetPage.
type Allocation struct {
	Page ledger.PageIndex
	Name string
	// IsCurrentSlot is true only when Page is the first page.
	IsCurrentSlot bool
	// Created is true when the page was created during this resolution.
	Created bool
	// CapacityUsed is the used capacity of Page before the new submission.
	CapacityUsed int
}

// Allocator resolves target pages against a ledger.Store.
type Allocator struct {
	store     ledger.Store
	threshold int
	policy    CountPolicy
	log       zerolog.Logger
}

// New returns an Allocator over store. A non-positive threshold selects
// DefaultThreshold and an empty policy selects CountZero.
func New(store ledger.Store, opts Options) *Allocator {
	if store == nil {
		panic("nil store passed to allocator.New")
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.CountPolicy == "" {
		opts.CountPolicy = CountZero
	}
	return &Allocator{
		store:     store,
		threshold: opts.Threshold,
		policy:    opts.CountPolicy,
		log:       opts.Logger.With().Str("component", "allocator").Logger(),
	}
}

// Threshold returns the configured per-page capacity.
func (a *Allocator) Threshold() int { return a.threshold }

// ResolveTargetPage returns the page the next submission must be appended
// to, creating it first when needed. Calling it twice with no append in
// between returns the same page.
func (a *Allocator) ResolveTargetPage(ctx context.Context) (Allocation, error) {
	pages, err := a.store.ListPages(ctx)
	if err != nil {
		return Allocation{}, fmt.Errorf("list pages: %w", err)
	}
	active, ok := ledger.MaxIndex(pages)
	if !ok {
		// empty ledger: the first page is created on demand
		if err := a.createPage(ctx, ledger.CurrentPage); err != nil {
			return Allocation{}, err
		}
		return allocation(ledger.CurrentPage, true, 0), nil
	}

	used, err := a.CapacityUsed(ctx, active)
	if err != nil {
		return Allocation{}, err
	}
	if used < a.threshold {
		return allocation(active, false, used), nil
	}

	next := active.Next()
	a.log.Info().
		Str("full_page", active.Name()).
		Int("capacity_used", used).
		Int("threshold", a.threshold).
		Str("next_page", next.Name()).
		Msg("page full, rolling over")
	if err := a.createPage(ctx, next); err != nil {
		return Allocation{}, err
	}
	return allocation(next, true, 0), nil
}

func allocation(page ledger.PageIndex, created bool, used int) Allocation {
	return Allocation{
		Page:          page,
		Name:          page.Name(),
		IsCurrentSlot: page.IsCurrent(),
		Created:       created,
		CapacityUsed:  used,
	}
}

func (a *Allocator) createPage(ctx context.Context, page ledger.PageIndex) error {
	if err := a.store.CreatePage(ctx, page, ledger.Header); err != nil {
		return fmt.Errorf("create page %s: %w", page.Name(), err)
	}
	return nil
}

// CapacityUsed sums the participant counts of page's data rows.
func (a *Allocator) CapacityUsed(ctx context.Context, page ledger.PageIndex) (int, error) {
	rows, err := a.store.ReadRows(ctx, page, ledger.DataRange)
	if err != nil {
		return 0, fmt.Errorf("read rows of %s: %w", page.Name(), err)
	}
	used := 0
	for i, row := range rows {
		n, err := a.rowCount(row)
		if err != nil {
			// data row i sits on spreadsheet row i+2, below the header
			return 0, fmt.Errorf("%s row %d: %w", page.Name(), i+2, err)
		}
		used += n
	}
	return used, nil
}

func (a *Allocator) rowCount(row ledger.Row) (int, error) {
	raw := strings.TrimSpace(row.Cell(ledger.ColParticipants))
	n, err := strconv.Atoi(raw)
	if err == nil && n >= 0 {
		return n, nil
	}
	switch a.policy {
	case CountOne:
		return 1, nil
	case CountReject:
		return 0, fmt.Errorf("%w: %q", ErrUnparsableCount, raw)
	default:
		return 0, nil
	}
}
