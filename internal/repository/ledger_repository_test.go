package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-rsvp-ledger/internal/ledger"
)

func newMockRepo(t *testing.T) (*LedgerRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewLedgerRepo(db, "open-house"), mock
}

func cellsJSON(t *testing.T, r ledger.Row) []byte {
	t.Helper()
	b, err := json.Marshal(r)
	require.NoError(t, err)
	return b
}

func TestLedgerRepo_ListPages(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM ledger_pages p`)).
		WithArgs("open-house").
		WillReturnRows(sqlmock.NewRows([]string{"page_index", "name", "count"}).
			AddRow(1, "Sheet1", 12).
			AddRow(2, "Sheet2", 0).
			AddRow(7, "Imported", 3))

	got, err := repo.ListPages(context.Background())
	require.NoError(t, err)
	want := []ledger.PageInfo{
		{Index: 1, Name: "Sheet1", RowCount: 12},
		{Index: 2, Name: "Sheet2", RowCount: 0},
		{Index: 0, Name: "Imported", RowCount: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListPages (-want +got):\n%s", diff)
	}
}

func TestLedgerRepo_ReadRows(t *testing.T) {
	t.Run("projects cells in insertion order", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM ledger_pages`)).
			WithArgs("open-house", 2).
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT cells FROM ledger_rows`)).
			WithArgs("open-house", 2).
			WillReturnRows(sqlmock.NewRows([]string{"cells"}).
				AddRow(cellsJSON(t, ledger.Row{"t1", "a", "A", "2"})).
				AddRow(cellsJSON(t, ledger.Row{"t2", "b", "B", "1", "e"})))

		got, err := repo.ReadRows(context.Background(), 2, ledger.ColumnRange{First: 'B', Last: 'D'})
		require.NoError(t, err)
		if diff := cmp.Diff([]ledger.Row{{"a", "A", "2"}, {"b", "B", "1"}}, got); diff != "" {
			t.Errorf("ReadRows (-want +got):\n%s", diff)
		}
	})

	t.Run("missing page", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM ledger_pages`)).
			WithArgs("open-house", 3).
			WillReturnRows(sqlmock.NewRows([]string{"1"}))

		_, err := repo.ReadRows(context.Background(), 3, ledger.DataRange)
		require.ErrorIs(t, err, ledger.ErrPageNotFound)
	})
}

func TestLedgerRepo_CreatePage(t *testing.T) {
	t.Run("inserts page and header in one transaction", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ledger_pages`)).
			WithArgs("open-house", 2, "Sheet2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ledger_rows (ledger_id, page_index, is_header, cells) VALUES (?, ?, 1, ?)`)).
			WithArgs("open-house", 2, cellsJSON(t, ledger.Header)).
			WillReturnResult(sqlmock.NewResult(10, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CreatePage(context.Background(), 2, ledger.Header))
	})

	t.Run("duplicate page", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ledger_pages`)).
			WithArgs("open-house", 2, "Sheet2").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
		mock.ExpectRollback()

		err := repo.CreatePage(context.Background(), 2, ledger.Header)
		require.ErrorIs(t, err, ledger.ErrPageExists)
	})

	t.Run("header failure rolls back the page", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		boom := errors.New("disk full")
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ledger_pages`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ledger_rows`)).
			WillReturnError(boom)
		mock.ExpectRollback()

		require.ErrorIs(t, repo.CreatePage(context.Background(), 2, ledger.Header), boom)
	})
}

func TestLedgerRepo_AppendRow(t *testing.T) {
	row := ledger.Row{"t", "ward", "A", "2"}

	t.Run("appends", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ledger_rows (ledger_id, page_index, is_header, cells)`)).
			WithArgs(cellsJSON(t, row), "open-house", 1).
			WillReturnResult(sqlmock.NewResult(11, 1))

		require.NoError(t, repo.AppendRow(context.Background(), 1, row))
	})

	t.Run("missing page", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ledger_rows`)).
			WithArgs(cellsJSON(t, row), "open-house", 4).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.ErrorIs(t, repo.AppendRow(context.Background(), 4, row), ledger.ErrPageNotFound)
	})
}
