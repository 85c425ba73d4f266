package ledger

import "context"

// Store is the narrow interface the allocator and the submission service use
// to talk to the system of record.
//
// Implementations must make pages created by CreatePage visible to subsequent
// ListPages calls of the same process, and return rows from ReadRows in the
// order they were appended. Neither CreatePage nor AppendRow is idempotent;
// callers serialize the resolve-then-write sequence themselves.
type Store interface {
	// ListPages returns every table in the store. Tables whose names are not
	// ledger page names are reported with a zero Index.
	ListPages(ctx context.Context) ([]PageInfo, error)
	// ReadRows returns the data rows of page (the header row excluded),
	// projected onto cols.
	ReadRows(ctx context.Context, page PageIndex, cols ColumnRange) ([]Row, error)
	// CreatePage creates page with header as its first row. It returns
	// ErrPageExists if the page is already there.
	CreatePage(ctx context.Context, page PageIndex, header Row) error
	// AppendRow adds row at the end of page. It returns ErrPageNotFound if
	// the page does not exist.
	AppendRow(ctx context.Context, page PageIndex, row Row) error
}
