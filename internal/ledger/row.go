package ledger

import "fmt"

// Column positions of a submission row. The order is fixed and shared by all
// pages of a ledger.
const (
	ColTimestamp = iota
	ColWardName
	ColWardClass
	ColParticipants
	ColEmail
	ColPhone
	ColParticipant1Name
	ColParticipant1Relation
	ColParticipant2Name
	ColParticipant2Relation

	NumColumns
)

// MaxParticipantColumns is the number of (name, relation) pairs a row holds.
const MaxParticipantColumns = 2

// Header is written once, as the first row of every page, when the page is
// created.
var Header = Row{
	"Timestamp",
	"Ward Name",
	"Ward Class",
	"Number of Participants",
	"Email",
	"Phone",
	"Participant 1 Name",
	"Participant 1 Relation",
	"Participant 2 Name",
	"Participant 2 Relation",
}

// Row is one ledger row, one string per column.
type Row []string

// Cell returns the value at column i, or "" when the row is shorter.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Clone returns a copy of r that does not share its backing array.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// ColumnRange selects a contiguous set of columns by spreadsheet letter.
// Only single-letter columns (A..Z) are supported.
type ColumnRange struct {
	First byte
	Last  byte
}

// DataRange covers every column of a submission row (A:J).
var DataRange = ColumnRange{First: 'A', Last: 'A' + NumColumns - 1}

func (c ColumnRange) String() string { return fmt.Sprintf("%c:%c", c.First, c.Last) }

// Valid reports whether the range is well-formed.
func (c ColumnRange) Valid() bool {
	return c.First >= 'A' && c.Last <= 'Z' && c.First <= c.Last
}

// A1 returns the A1-notation range for page starting at row startRow, e.g.
// "Sheet2!A2:J".
func (c ColumnRange) A1(page PageIndex, startRow int) string {
	if startRow <= 1 {
		return fmt.Sprintf("%s!%c:%c", page.Name(), c.First, c.Last)
	}
	return fmt.Sprintf("%s!%c%d:%c", page.Name(), c.First, startRow, c.Last)
}

// Project returns the cells of r that fall inside c. Trailing empty cells
// are kept so positions stay stable.
func (c ColumnRange) Project(r Row) Row {
	from, to := int(c.First-'A'), int(c.Last-'A')
	out := make(Row, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, r.Cell(i))
	}
	return out
}
