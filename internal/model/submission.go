package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Submission is one RSVP as posted by the form. It is never mutated after
// decoding and is not retained beyond the ledger row it produces.
// NumberOfParticipants drives page capacity; Participants normally has that
// many entries but nothing enforces it.
type Submission struct {
	WardName             string        `json:"wardName"`
	WardClass            string        `json:"wardClass"`
	NumberOfParticipants Count         `json:"numberOfParticipants"`
	Email                string        `json:"email"`
	Phone                string        `json:"phone"`
	Participants         []Participant `json:"participants"`
	Timestamp            string        `json:"timestamp,omitempty"`
}

// ErrNotObject is returned when a submission body is valid JSON but not an
// object, e.g. null or an array.
var ErrNotObject = errors.New("submission must be a JSON object")

// UnmarshalJSON implements json.Unmarshaler. Only the top-level shape is
// checked; field contents are taken as sent.
func (s *Submission) UnmarshalJSON(b []byte) error {
	if b = bytes.TrimSpace(b); len(b) == 0 || b[0] != '{' {
		return ErrNotObject
	}
	type plain Submission
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = Submission(p)
	return nil
}

// SubmittedAt is the client's Timestamp when it is a valid RFC 3339 time,
// otherwise now.
func (s Submission) SubmittedAt(now time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s.Timestamp)); err == nil {
		return t
	}
	return now
}

// Participant is one guest attending with the ward.
type Participant struct {
	Name              string `json:"name"`
	RelationToStudent string `json:"relationToStudent"`
}

// Count is the declared guest count. Numbers and numeric strings decode to
// an integer; any other value is kept verbatim so the ledger row shows what
// was sent, and the allocator's count policy decides how it is counted.
type Count struct {
	n     int
	raw   string
	valid bool
}

// NewCount returns a numeric Count.
func NewCount(n int) Count {
	return Count{n: n, raw: strconv.Itoa(n), valid: true}
}

// Int is the numeric value, or 0 when the count is not a number.
func (c Count) Int() int {
	if !c.valid {
		return 0
	}
	return c.n
}

// Valid reports whether the count parsed as an integer.
func (c Count) Valid() bool { return c.valid }

// String is the ledger cell text.
func (c Count) String() string {
	if c.valid {
		return strconv.Itoa(c.n)
	}
	return c.raw
}

// UnmarshalJSON implements json.Unmarshaler. It never fails on a well-formed
// value.
func (c *Count) UnmarshalJSON(b []byte) error {
	text := string(bytes.TrimSpace(b))
	switch {
	case text == "null":
		*c = Count{}
		return nil
	case strings.HasPrefix(text, `"`):
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
	}
	if n, err := strconv.Atoi(text); err == nil {
		*c = NewCount(n)
		return nil
	}
	*c = Count{raw: text}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Count) MarshalJSON() ([]byte, error) {
	switch {
	case c.valid:
		return []byte(strconv.Itoa(c.n)), nil
	case c.raw == "":
		return []byte("null"), nil
	}
	return json.Marshal(c.raw)
}

// Result is what the submission endpoint reports back after a row has been
// appended.
type Result struct {
	Sheet       int  `json:"sheet"`
	CurrentSlot bool `json:"currentSlot"`
	// PageCreated is true when the submission opened a new page.
	PageCreated bool      `json:"-"`
	SubmittedAt time.Time `json:"-"`
}
