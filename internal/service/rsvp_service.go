package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-rsvp-ledger/internal/allocator"
	"github.com/iliyamo/event-rsvp-ledger/internal/ledger"
	"github.com/iliyamo/event-rsvp-ledger/internal/lock"
	"github.com/iliyamo/event-rsvp-ledger/internal/metrics"
	"github.com/iliyamo/event-rsvp-ledger/internal/model"
	"github.com/iliyamo/event-rsvp-ledger/internal/queue"
)

// TimestampLayout is how submission times are written to the ledger, e.g.
// "8/15/2025, 2:30:00 PM", always in the event's timezone.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

const publishTimeout = 5 * time.Second

// Options configures an RSVPService. Zero values are usable: UTC, no
// publisher, no metrics.
type Options struct {
	// LedgerID keys the lock serializing writers of the same ledger.
	LedgerID  string
	Location  *time.Location
	Publisher Publisher
	Metrics   *metrics.Recorder
	Logger    zerolog.Logger
	Now       func() time.Time
}

// RSVPService records submissions in the ledger. It owns no state; the store,
// allocator and locker are supplied by the caller.
type RSVPService struct {
	store     ledger.Store
	alloc     *allocator.Allocator
	locker    lock.Locker
	ledgerID  string
	loc       *time.Location
	publisher Publisher
	metrics   *metrics.Recorder
	log       zerolog.Logger
	now       func() time.Time
}

// NewRSVPService wires a service. store, alloc and locker must be non-nil.
func NewRSVPService(store ledger.Store, alloc *allocator.Allocator, locker lock.Locker, opts Options) *RSVPService {
	if store == nil || alloc == nil || locker == nil {
		panic("nil dependency passed to NewRSVPService")
	}
	if opts.LedgerID == "" {
		opts.LedgerID = "default"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RSVPService{
		store:     store,
		alloc:     alloc,
		locker:    locker,
		ledgerID:  opts.LedgerID,
		loc:       opts.Location,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		log:       opts.Logger.With().Str("component", "rsvp-service").Str("ledger", opts.LedgerID).Logger(),
		now:       opts.Now,
	}
}

// Submit appends sub to the page chosen by the allocator and reports where it
// landed. The page resolution and the append run under the ledger lock. A
// failure after a new page was created leaves that page empty; it is logged
// and surfaced, never rolled back.
func (s *RSVPService) Submit(ctx context.Context, sub model.Submission) (model.Result, error) {
	start := time.Now()
	at := sub.SubmittedAt(s.now())

	alloc, err := s.record(ctx, sub, at)
	if err != nil {
		s.metrics.Failed()
		return model.Result{}, err
	}
	s.metrics.Submitted(sub.NumberOfParticipants.Int(), alloc.IsCurrentSlot, alloc.Created, time.Since(start))

	s.log.Info().
		Str("sheet", alloc.Name).
		Bool("current_slot", alloc.IsCurrentSlot).
		Bool("page_created", alloc.Created).
		Int("participants", sub.NumberOfParticipants.Int()).
		Msg("rsvp recorded")

	s.publish(ctx, sub, alloc, at)

	return model.Result{
		Sheet:       int(alloc.Page),
		CurrentSlot: alloc.IsCurrentSlot,
		PageCreated: alloc.Created,
		SubmittedAt: at,
	}, nil
}

func (s *RSVPService) record(ctx context.Context, sub model.Submission, at time.Time) (allocator.Allocation, error) {
	release, err := s.locker.Lock(ctx, s.ledgerID)
	if err != nil {
		return allocator.Allocation{}, fmt.Errorf("acquire ledger lock: %w", err)
	}
	defer release()

	alloc, err := s.alloc.ResolveTargetPage(ctx)
	if err != nil {
		return allocator.Allocation{}, fmt.Errorf("resolve target page: %w", err)
	}
	if err := s.store.AppendRow(ctx, alloc.Page, FormatRow(sub, at, s.loc)); err != nil {
		if alloc.Created {
			s.log.Warn().Err(err).Str("sheet", alloc.Name).Msg("page created but row append failed; page left empty")
		}
		return allocator.Allocation{}, fmt.Errorf("append row to %s: %w", alloc.Name, err)
	}
	return alloc, nil
}

func (s *RSVPService) publish(ctx context.Context, sub model.Submission, alloc allocator.Allocation, at time.Time) {
	if s.publisher == nil {
		return
	}
	ev := queue.SubmissionEvent{
		EventID:              uuid.NewString(),
		LedgerID:             s.ledgerID,
		Sheet:                int(alloc.Page),
		SheetName:            alloc.Name,
		CurrentSlot:          alloc.IsCurrentSlot,
		PageCreated:          alloc.Created,
		WardName:             sub.WardName,
		WardClass:            sub.WardClass,
		NumberOfParticipants: sub.NumberOfParticipants.Int(),
		Email:                sub.Email,
		SubmittedAt:          FormatTimestamp(at, s.loc),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishSubmitted(pctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event_id", ev.EventID).Msg("publish rsvp.submitted failed")
	}
}

// Slots reports the occupancy of every ledger page.
func (s *RSVPService) Slots(ctx context.Context) ([]allocator.PageSummary, error) {
	return s.alloc.Summarize(ctx)
}

// PageRows returns the raw data rows of page.
func (s *RSVPService) PageRows(ctx context.Context, page ledger.PageIndex) ([]ledger.Row, error) {
	return s.store.ReadRows(ctx, page, ledger.DataRange)
}

// FormatTimestamp renders t in loc using TimestampLayout.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(TimestampLayout)
}

// FormatRow lays sub out in the ledger's fixed column order. Only the first
// two participants have columns; further entries are not written.
func FormatRow(sub model.Submission, at time.Time, loc *time.Location) ledger.Row {
	row := make(ledger.Row, ledger.NumColumns)
	row[ledger.ColTimestamp] = FormatTimestamp(at, loc)
	row[ledger.ColWardName] = sub.WardName
	row[ledger.ColWardClass] = sub.WardClass
	row[ledger.ColParticipants] = sub.NumberOfParticipants.String()
	row[ledger.ColEmail] = sub.Email
	row[ledger.ColPhone] = sub.Phone
	for i, p := range sub.Participants {
		if i >= ledger.MaxParticipantColumns {
			break
		}
		row[ledger.ColParticipant1Name+2*i] = p.Name
		row[ledger.ColParticipant1Relation+2*i] = p.RelationToStudent
	}
	return row
}
