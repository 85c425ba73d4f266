package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	ev := SubmissionEvent{
		EventID:              "e-1",
		LedgerID:             "open-house",
		Sheet:                2,
		SheetName:            "Sheet2",
		PageCreated:          true,
		WardName:             "Ram Sharma",
		WardClass:            "B",
		NumberOfParticipants: 2,
		SubmittedAt:          "1/2/2025, 3:04:05 PM",
	}
	assert.Equal(t,
		`[1/2/2025, 3:04:05 PM] RSVP recorded | event_id=e-1 | ledger=open-house | sheet=Sheet2 | slot=pending | ward="Ram Sharma" | class="B" | participants=2 | new_page`+"\n",
		FormatLine(ev),
	)

	ev.CurrentSlot, ev.PageCreated = true, false
	assert.Contains(t, FormatLine(ev), "slot=confirmed")
	assert.NotContains(t, FormatLine(ev), "new_page")
}

func TestHandleMessage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	body, err := json.Marshal(SubmissionEvent{EventID: "a", SheetName: "Sheet1", CurrentSlot: true})
	require.NoError(t, err)

	require.NoError(t, HandleMessage(dir, body))
	require.NoError(t, HandleMessage(dir, body))

	got, err := os.ReadFile(filepath.Join(dir, "rsvp.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(got), "\n"))

	assert.Error(t, HandleMessage(dir, []byte("{not json")))
}
