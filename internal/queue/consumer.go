package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// ConsumerOptions configures StartSubmissionConsumer.
type ConsumerOptions struct {
	URL    string
	LogDir string
	Logger zerolog.Logger
}

// StartSubmissionConsumer connects to RabbitMQ, declares the rsvp.submitted
// queue (durable) and appends every event to <LogDir>/rsvp.log as a single
// human-friendly line. It reconnects with exponential backoff until ctx is
// cancelled, which is the only way it returns. Messages that cannot be
// processed are rejected without requeue so one bad payload cannot stall the
// queue.
func StartSubmissionConsumer(ctx context.Context, opts ConsumerOptions) error {
	log := opts.Logger.With().Str("component", "rsvp-consumer").Logger()
	if opts.LogDir == "" {
		opts.LogDir = "logs"
	}

	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(opts.URL)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, opts.LogDir, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string, log zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(SubmissionQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, SubmissionQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := HandleMessage(logDir, d.Body); err != nil {
			log.Error().Err(err).Msg("handle message failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleMessage decodes one event and appends its log line under logDir.
func HandleMessage(logDir string, body []byte) error {
	var ev SubmissionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "rsvp.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single newline-terminated log line.
func FormatLine(ev SubmissionEvent) string {
	slot := "pending"
	if ev.CurrentSlot {
		slot = "confirmed"
	}
	line := fmt.Sprintf("[%s] RSVP recorded | event_id=%s | ledger=%s | sheet=%s | slot=%s | ward=%q | class=%q | participants=%d",
		ev.SubmittedAt, ev.EventID, ev.LedgerID, ev.SheetName, slot, ev.WardName, ev.WardClass, ev.NumberOfParticipants)
	if ev.PageCreated {
		line += " | new_page"
	}
	return line + "\n"
}
