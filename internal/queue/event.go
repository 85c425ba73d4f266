// Package queue defines message payloads exchanged over the message broker.
package queue

// SubmissionQueue is the durable queue RSVP events are published to.
const SubmissionQueue = "rsvp.submitted"

// SubmissionEvent is published after a submission row has been appended to
// the ledger. It carries enough for downstream consumers to log, notify or
// report without reading the ledger back.
type SubmissionEvent struct {
	EventID              string `json:"event_id"`
	LedgerID             string `json:"ledger_id"`
	Sheet                int    `json:"sheet"`
	SheetName            string `json:"sheet_name"`
	CurrentSlot          bool   `json:"current_slot"`
	PageCreated          bool   `json:"page_created"`
	WardName             string `json:"ward_name"`
	WardClass            string `json:"ward_class"`
	NumberOfParticipants int    `json:"number_of_participants"`
	Email                string `json:"email,omitempty"`
	SubmittedAt          string `json:"submitted_at"`
}
