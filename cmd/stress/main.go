// Command stress posts generated RSVPs to a running gateway and reports how
// they were distributed across ledger pages.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/event-rsvp-ledger/internal/loadtest"
	"github.com/iliyamo/event-rsvp-ledger/internal/logging"
)

func main() {
	var cfg loadtest.Config
	var out string
	fs := pflag.NewFlagSet("stress", pflag.ExitOnError)
	fs.StringVarP(&cfg.Endpoint, "endpoint", "e", "http://localhost:5000/api/submit-rsvp", "submission endpoint URL")
	fs.IntVarP(&cfg.Entries, "entries", "n", 250, "number of submissions to send")
	fs.IntVarP(&cfg.Concurrency, "concurrency", "c", 10, "requests in flight at once")
	fs.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "per-request timeout")
	fs.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "seed for generated submissions")
	fs.StringVarP(&out, "out", "o", "", "write detailed JSON results to this file (default stress_test_results_<time>.json, \"-\" to skip)")
	_ = fs.Parse(os.Args[1:])

	log := logging.New(os.Getenv("APP_ENV"), os.Stderr).With().Str("component", "stress").Logger()
	if cfg.Entries < 1 {
		log.Fatal().Int("entries", cfg.Entries).Msg("entries must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info().
		Str("endpoint", cfg.Endpoint).
		Int("entries", cfg.Entries).
		Int("concurrency", cfg.Concurrency).
		Msg("starting stress test")

	report, err := loadtest.Run(ctx, &http.Client{}, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("run interrupted; reporting partial results")
	}
	report.Print(os.Stdout)

	if out == "-" {
		return
	}
	if out == "" {
		out = fmt.Sprintf("stress_test_results_%s.json", time.Now().Format("20060102_150405"))
	}
	if err := writeJSON(out, report); err != nil {
		log.Fatal().Err(err).Msg("save results")
	}
	log.Info().Str("file", out).Msg("detailed results saved")
}

func writeJSON(path string, report loadtest.Report) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
