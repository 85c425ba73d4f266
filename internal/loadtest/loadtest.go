// Package loadtest fires generated RSVP submissions at a running gateway and
// summarises how they were spread across ledger pages.
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/event-rsvp-ledger/internal/model"
)

// Config describes one run.
type Config struct {
	Endpoint    string        `json:"api_endpoint"`
	Entries     int           `json:"num_entries"`
	Concurrency int           `json:"concurrent_requests"`
	Timeout     time.Duration `json:"-"`
	Seed        uint64        `json:"seed"`
}

// Response is the outcome of a single submission.
type Response struct {
	Entry      int            `json:"entry_number"`
	StatusCode int            `json:"status_code,omitempty"`
	Body       map[string]any `json:"response_data"`
	Success    bool           `json:"success"`
	At         time.Time      `json:"timestamp"`
}

// Report aggregates a run.
type Report struct {
	Config      Config        `json:"test_config"`
	Success     int           `json:"success_count"`
	Failed      int           `json:"error_count"`
	Duration    time.Duration `json:"duration_ns"`
	Sheets      map[int]int   `json:"sheet_distribution"`
	CurrentSlot int           `json:"current_slot_count"`
	Responses   []Response    `json:"detailed_responses"`
}

// SuccessRate is the share of successful submissions in percent.
func (r Report) SuccessRate() float64 {
	if r.Config.Entries == 0 {
		return 0
	}
	return float64(r.Success) / float64(r.Config.Entries) * 100
}

var (
	wardNames = []string{
		"Kathmandu Ward 1", "Kathmandu Ward 2", "Kathmandu Ward 3", "Kathmandu Ward 4",
		"Lalitpur Ward 1", "Lalitpur Ward 2", "Bhaktapur Ward 1", "Bhaktapur Ward 2",
		"Kirtipur Ward 1", "Kirtipur Ward 2", "Madhyapur Ward 1", "Madhyapur Ward 2",
	}
	wardClasses      = []string{"A", "B", "C", "D"}
	participantNames = []string{
		"Ram Sharma", "Sita Poudel", "Krishna Adhikari", "Gita Maharjan",
		"Hari Shrestha", "Maya Tamang", "Suresh Gurung", "Kamala Rai",
		"Bikash Thapa", "Sunita Magar", "Dipak Singh", "Rashmi Khatri",
		"Anil Joshi", "Pramila Bhatta", "Rajesh Pandey", "Sangita Kafle",
	}
	relations = []string{"Father", "Mother", "Guardian", "Uncle", "Aunt", "Grandfather", "Grandmother", "Brother", "Sister"}
)

// Generate builds the submission for entry n: one or two guests, a
// timestamp within the last day.
func Generate(rng *rand.Rand, n int, now time.Time) model.Submission {
	pick := func(s []string) string { return s[rng.IntN(len(s))] }
	guests := 1 + rng.IntN(2)
	ps := make([]model.Participant, guests)
	for i := range ps {
		ps[i] = model.Participant{Name: pick(participantNames), RelationToStudent: pick(relations)}
	}
	return model.Submission{
		Timestamp:            now.Add(-time.Duration(1+rng.IntN(1440)) * time.Minute).Format(time.RFC3339),
		WardName:             pick(wardNames),
		WardClass:            pick(wardClasses),
		NumberOfParticipants: model.NewCount(guests),
		Email:                fmt.Sprintf("test%d@example.com", n),
		Phone:                fmt.Sprintf("98%08d", 10000000+rng.IntN(90000000)),
		Participants:         ps,
	}
}

// Run posts cfg.Entries submissions with at most cfg.Concurrency in flight.
// Individual request failures are counted, not returned; Run only fails when
// ctx is cancelled.
func Run(ctx context.Context, client *http.Client, cfg Config) (Report, error) {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	now := time.Now()
	subs := make([]model.Submission, cfg.Entries)
	for i := range subs {
		subs[i] = Generate(rng, i+1, now)
	}

	report := Report{Config: cfg, Sheets: map[int]int{}}
	var mu sync.Mutex
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, sub := range subs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := send(gctx, client, cfg, i+1, sub)
			res.At = time.Now()
			mu.Lock()
			defer mu.Unlock()
			report.add(res)
			return nil
		})
	}
	_ = g.Wait()
	report.Duration = time.Since(start)
	sort.Slice(report.Responses, func(a, b int) bool { return report.Responses[a].Entry < report.Responses[b].Entry })
	return report, ctx.Err()
}

func (r *Report) add(res Response) {
	r.Responses = append(r.Responses, res)
	if !res.Success {
		r.Failed++
		return
	}
	r.Success++
	if sheet, ok := res.Body["sheet"].(float64); ok {
		r.Sheets[int(sheet)]++
	}
	if cur, _ := res.Body["currentSlot"].(bool); cur {
		r.CurrentSlot++
	}
}

func send(ctx context.Context, client *http.Client, cfg Config, n int, sub model.Submission) Response {
	res := Response{Entry: n}

	payload, err := json.Marshal(sub)
	if err != nil {
		res.Body = map[string]any{"error": err.Error()}
		return res
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		res.Body = map[string]any{"error": err.Error()}
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "rsvp-stress/1.0")

	resp, err := client.Do(req)
	if err != nil {
		res.Body = map[string]any{"error": err.Error()}
		return res
	}
	defer resp.Body.Close()
	res.StatusCode = resp.StatusCode
	res.Success = resp.StatusCode == http.StatusOK
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	res.Body = map[string]any{}
	_ = json.Unmarshal(body, &res.Body)
	return res
}

// Print writes the human summary of r.
func (r Report) Print(w io.Writer) {
	fmt.Fprintln(w, "STRESS TEST RESULTS")
	fmt.Fprintf(w, "Total requests: %d\n", r.Config.Entries)
	fmt.Fprintf(w, "Successful requests: %d\n", r.Success)
	fmt.Fprintf(w, "Failed requests: %d\n", r.Failed)
	fmt.Fprintf(w, "Success rate: %.1f%%\n", r.SuccessRate())
	fmt.Fprintf(w, "Total duration: %.2f seconds\n", r.Duration.Seconds())
	if secs := r.Duration.Seconds(); secs > 0 {
		fmt.Fprintf(w, "Average requests per second: %.2f\n", float64(r.Config.Entries)/secs)
	}

	fmt.Fprintln(w, "\nSheet distribution:")
	sheets := make([]int, 0, len(r.Sheets))
	for s := range r.Sheets {
		sheets = append(sheets, s)
	}
	sort.Ints(sheets)
	for _, s := range sheets {
		fmt.Fprintf(w, "  Sheet %d: %d entries\n", s, r.Sheets[s])
	}
	fmt.Fprintf(w, "Entries in current slot (Sheet1): %d\n", r.CurrentSlot)

	shown := 0
	for _, res := range r.Responses {
		if res.Success {
			continue
		}
		if shown == 0 {
			fmt.Fprintln(w, "\nFirst 5 errors:")
		}
		fmt.Fprintf(w, "  Entry %d: %v\n", res.Entry, res.Body)
		if shown++; shown == 5 {
			break
		}
	}
}
