// Package ledger defines the paged, append-only table that serves as the
// system of record for RSVP submissions, together with the Store contract
// every backend (memory, MySQL, Google Sheets) implements.
//
// Pages are addressed by a typed PageIndex. The spreadsheet-style display name
// ("Sheet1", "Sheet2", ...) is derived from the index and parsed back exactly
// once, at the store boundary, through ParsePageName.
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PageIndex is the 1-based number of a ledger page. The zero value is not a
// valid page.
type PageIndex int

// CurrentPage is the distinguished first page. Submissions landing on it are
// presented to the guest as time-confirmed.
const CurrentPage PageIndex = 1

const pageNamePrefix = "Sheet"

var (
	// ErrPageExists is returned by Store.CreatePage when a page with the same
	// index already exists.
	ErrPageExists = errors.New("ledger page already exists")
	// ErrPageNotFound is returned when reading from or appending to a page
	// that has not been created.
	ErrPageNotFound = errors.New("ledger page not found")
	// ErrInvalidPageName is returned when a name does not follow Sheet<N>.
	ErrInvalidPageName = errors.New("invalid ledger page name")
)

// Valid reports whether p refers to a real page.
func (p PageIndex) Valid() bool { return p > 0 }

// Name returns the display name of the page, e.g. "Sheet3".
func (p PageIndex) Name() string { return pageNamePrefix + strconv.Itoa(int(p)) }

// Next returns the index of the page that follows p.
func (p PageIndex) Next() PageIndex { return p + 1 }

// IsCurrent reports whether p is the confirmed first page.
func (p PageIndex) IsCurrent() bool { return p == CurrentPage }

func (p PageIndex) String() string { return p.Name() }

// ParsePageName converts a display name such as "Sheet12" into its index.
// Names that do not match Sheet<N> with N a positive decimal integer yield
// ErrInvalidPageName.
func ParsePageName(name string) (PageIndex, error) {
	digits, ok := strings.CutPrefix(name, pageNamePrefix)
	if !ok || digits == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPageName, name)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPageName, name)
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPageName, name)
	}
	return PageIndex(n), nil
}

// PageInfo describes one page as listed by a Store. Index is zero when the
// store holds a table whose name is not a ledger page name.
type PageInfo struct {
	Index PageIndex
	Name  string
	// RowCount is informational. Spreadsheet-backed stores report the size of
	// the grid, other stores the number of data rows.
	RowCount int
}

// MaxIndex returns the largest valid index among pages and whether any page
// had a valid index. Duplicates and gaps are ignored.
func MaxIndex(pages []PageInfo) (PageIndex, bool) {
	var top PageIndex
	for _, p := range pages {
		if p.Index.Valid() && p.Index > top {
			top = p.Index
		}
	}
	return top, top.Valid()
}
