package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-rsvp-ledger/internal/model"
)

func TestGenerate(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	now := time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)
	for n := 1; n <= 50; n++ {
		sub := Generate(rng, n, now)
		assert.Len(t, sub.Participants, sub.NumberOfParticipants.Int())
		assert.Contains(t, []model.Count{model.NewCount(1), model.NewCount(2)}, sub.NumberOfParticipants)
		assert.Len(t, sub.Phone, 10)
		ts, err := time.Parse(time.RFC3339, sub.Timestamp)
		require.NoError(t, err)
		assert.True(t, ts.Before(now) && ts.After(now.Add(-25*time.Hour)))
	}
}

func TestRun(t *testing.T) {
	var seen atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sub model.Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n := seen.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if n%10 == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "Failed to submit RSVP", "error": "boom"})
			return
		}
		sheet := 1
		if n > 5 {
			sheet = 2
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "ok", "sheet": sheet, "currentSlot": sheet == 1})
	}))
	defer srv.Close()

	report, err := Run(context.Background(), srv.Client(), Config{
		Endpoint:    srv.URL,
		Entries:     20,
		Concurrency: 4,
		Seed:        7,
	})
	require.NoError(t, err)
	assert.Equal(t, 18, report.Success)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 90.0, report.SuccessRate())
	assert.Equal(t, 18, report.Sheets[1]+report.Sheets[2])
	assert.Equal(t, report.Sheets[1], report.CurrentSlot)
	require.Len(t, report.Responses, 20)
	assert.Equal(t, 1, report.Responses[0].Entry)

	var out bytes.Buffer
	report.Print(&out)
	assert.Contains(t, out.String(), "Success rate: 90.0%")
	assert.Contains(t, out.String(), "First 5 errors:")
}

func TestRun_UnreachableEndpointCountsFailures(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	report, err := Run(context.Background(), http.DefaultClient, Config{Endpoint: url, Entries: 3, Concurrency: 2, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Failed)
	assert.Contains(t, report.Responses[0].Body, "error")
}
