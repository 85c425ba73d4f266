// Package metrics exposes Prometheus collectors for the RSVP flow.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for rsvp_submissions_total.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder groups the collectors. A nil *Recorder records nothing.
type Recorder struct {
	submissions  *prometheus.CounterVec
	guests       *prometheus.CounterVec
	pagesCreated prometheus.Counter
	allocation   prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvp_submissions_total",
			Help: "RSVP submissions handled, by result.",
		}, []string{"result"}),
		guests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvp_guests_total",
			Help: "Guests recorded in the ledger, by whether they landed on the current slot.",
		}, []string{"current_slot"}),
		pagesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "rsvp_pages_created_total",
			Help: "Ledger pages created by the allocator.",
		}),
		allocation: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsvp_allocation_seconds",
			Help:    "Time spent resolving the target page and appending the row, lock wait included.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Submitted records a successful submission.
func (r *Recorder) Submitted(guests int, currentSlot, pageCreated bool, took time.Duration) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(ResultOK).Inc()
	if guests > 0 {
		r.guests.WithLabelValues(strconv.FormatBool(currentSlot)).Add(float64(guests))
	}
	if pageCreated {
		r.pagesCreated.Inc()
	}
	r.allocation.Observe(took.Seconds())
}

// Failed records a submission that could not be written.
func (r *Recorder) Failed() {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(ResultError).Inc()
}
