package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		in    string
		cell  string
		n     int
		valid bool
	}{
		{in: `2`, cell: "2", n: 2, valid: true},
		{in: `"3"`, cell: "3", n: 3, valid: true},
		{in: `" 04 "`, cell: "4", n: 4, valid: true},
		{in: `-1`, cell: "-1", n: -1, valid: true},
		{in: `"two"`, cell: "two"},
		{in: `1.5`, cell: "1.5"},
		{in: `true`, cell: "true"},
		{in: `""`, cell: ""},
		{in: `null`, cell: ""},
	}
	for _, tc := range cases {
		var c Count
		require.NoError(t, json.Unmarshal([]byte(tc.in), &c), tc.in)
		assert.Equal(t, tc.cell, c.String(), tc.in)
		assert.Equal(t, tc.n, c.Int(), tc.in)
		assert.Equal(t, tc.valid, c.Valid(), tc.in)
	}
}

func TestCount_MarshalJSON(t *testing.T) {
	for want, c := range map[string]Count{
		`2`:     NewCount(2),
		`"two"`: {raw: "two"},
		`null`:  {},
	} {
		got, err := json.Marshal(c)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestSubmission_UnmarshalJSON(t *testing.T) {
	var sub Submission
	require.NoError(t, json.Unmarshal([]byte(`{"wardName":"Sita","numberOfParticipants":"two",
		"participants":[{"name":"Ram","relationToStudent":"Father"}]}`), &sub))
	assert.Equal(t, "Sita", sub.WardName)
	assert.Equal(t, "two", sub.NumberOfParticipants.String())
	assert.Len(t, sub.Participants, 1)

	for _, in := range []string{`null`, `[]`, `123`, `"Sita"`} {
		var s Submission
		assert.ErrorIs(t, json.Unmarshal([]byte(in), &s), ErrNotObject, in)
	}
}

func TestSubmission_SubmittedAt(t *testing.T) {
	now := time.Date(2025, 8, 15, 8, 45, 0, 0, time.UTC)
	client := Submission{Timestamp: "2025-08-14T10:00:00Z"}
	assert.True(t, client.SubmittedAt(now).Equal(time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, now, Submission{Timestamp: "yesterday"}.SubmittedAt(now))
}
