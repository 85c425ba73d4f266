package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/event-rsvp-ledger/internal/ledger"
)

// LedgerRepo stores the pages of one ledger in MySQL. Several ledgers may
// share the tables; each repo only sees rows with its ledger id.
type LedgerRepo struct {
	db       *sql.DB
	ledgerID string
}

// NewLedgerRepo returns a LedgerRepo bound to db and ledgerID.
func NewLedgerRepo(db *sql.DB, ledgerID string) *LedgerRepo {
	return &LedgerRepo{db: db, ledgerID: ledgerID}
}

// ListPages implements ledger.Store. RowCount counts data rows only.
func (r *LedgerRepo) ListPages(ctx context.Context) ([]ledger.PageInfo, error) {
	const q = `SELECT p.page_index, p.name, COUNT(lr.id)
	           FROM ledger_pages p
	           LEFT JOIN ledger_rows lr
	             ON lr.ledger_id = p.ledger_id AND lr.page_index = p.page_index AND lr.is_header = 0
	           WHERE p.ledger_id = ?
	           GROUP BY p.page_index, p.name
	           ORDER BY p.page_index`
	rows, err := r.db.QueryContext(ctx, q, r.ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []ledger.PageInfo
	for rows.Next() {
		var (
			idx   int
			name  string
			count int
		)
		if err := rows.Scan(&idx, &name, &count); err != nil {
			return nil, err
		}
		info := ledger.PageInfo{Name: name, RowCount: count}
		if parsed, err := ledger.ParsePageName(name); err == nil && int(parsed) == idx {
			info.Index = parsed
		}
		pages = append(pages, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}

// ReadRows implements ledger.Store.
func (r *LedgerRepo) ReadRows(ctx context.Context, page ledger.PageIndex, cols ledger.ColumnRange) ([]ledger.Row, error) {
	if !cols.Valid() {
		return nil, fmt.Errorf("invalid column range %s", cols)
	}
	ok, err := r.pageExists(ctx, page)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrPageNotFound, page.Name())
	}

	const q = `SELECT cells FROM ledger_rows
	           WHERE ledger_id = ? AND page_index = ? AND is_header = 0
	           ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, r.ledgerID, int(page))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Row
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var cells ledger.Row
		if err := json.Unmarshal(raw, &cells); err != nil {
			return nil, fmt.Errorf("decode row of %s: %w", page.Name(), err)
		}
		out = append(out, cols.Project(cells))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LedgerRepo) pageExists(ctx context.Context, page ledger.PageIndex) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM ledger_pages WHERE ledger_id = ? AND page_index = ? LIMIT 1`,
		r.ledgerID, int(page)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreatePage implements ledger.Store. The page and its header row are
// inserted in one transaction, so a page never exists without its header.
func (r *LedgerRepo) CreatePage(ctx context.Context, page ledger.PageIndex, header ledger.Row) error {
	if !page.Valid() {
		return fmt.Errorf("%w: index %d", ledger.ErrInvalidPageName, page)
	}
	cells, err := json.Marshal(header)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_pages (ledger_id, page_index, name) VALUES (?, ?, ?)`,
		r.ledgerID, int(page), page.Name()); err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("%w: %s", ledger.ErrPageExists, page.Name())
		}
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_rows (ledger_id, page_index, is_header, cells) VALUES (?, ?, 1, ?)`,
		r.ledgerID, int(page), cells); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// AppendRow implements ledger.Store. The insert only matches when the page
// exists, so appending to a missing page reports ErrPageNotFound.
func (r *LedgerRepo) AppendRow(ctx context.Context, page ledger.PageIndex, row ledger.Row) error {
	cells, err := json.Marshal(row)
	if err != nil {
		return err
	}
	const q = `INSERT INTO ledger_rows (ledger_id, page_index, is_header, cells)
	           SELECT ledger_id, page_index, 0, ? FROM ledger_pages
	           WHERE ledger_id = ? AND page_index = ?`
	res, err := r.db.ExecContext(ctx, q, cells, r.ledgerID, int(page))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrPageNotFound, page.Name())
	}
	return nil
}
