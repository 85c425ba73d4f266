// Package sheets implements ledger.Store on a Google Sheets spreadsheet: one
// tab per ledger page, named Sheet<N>, header in row 1 and submissions below.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/iliyamo/event-rsvp-ledger/internal/ledger"
)

// sheetIDBase offsets the numeric tab ids of created pages away from the id 0
// of the spreadsheet's default tab.
const sheetIDBase = 1_000_000

// Credentials identify the service account that writes the spreadsheet.
type Credentials struct {
	ClientEmail string
	// PrivateKey is the PEM key. Literal "\n" sequences, as found in
	// single-line environment variables, are turned into newlines.
	PrivateKey string
}

// Store is a spreadsheet-backed ledger.
type Store struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// New authenticates with the service account and returns a Store for the
// spreadsheet.
func New(ctx context.Context, spreadsheetID string, creds Credentials) (*Store, error) {
	if spreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	conf := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(strings.ReplaceAll(creds.PrivateKey, `\n`, "\n")),
		Scopes:     []string{sheetsapi.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return NewWithService(svc, spreadsheetID), nil
}

// NewWithService wraps an already configured API client.
func NewWithService(svc *sheetsapi.Service, spreadsheetID string) *Store {
	return &Store{svc: svc, spreadsheetID: spreadsheetID}
}

// ListPages implements ledger.Store. RowCount is the grid size of the tab.
func (s *Store) ListPages(ctx context.Context) ([]ledger.PageInfo, error) {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: get spreadsheet: %w", err)
	}
	pages := make([]ledger.PageInfo, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		info := ledger.PageInfo{Name: sh.Properties.Title}
		if idx, err := ledger.ParsePageName(sh.Properties.Title); err == nil {
			info.Index = idx
		}
		if gp := sh.Properties.GridProperties; gp != nil {
			info.RowCount = int(gp.RowCount)
		}
		pages = append(pages, info)
	}
	return pages, nil
}

// ReadRows implements ledger.Store. Row 1 holds the header and is skipped.
func (s *Store) ReadRows(ctx context.Context, page ledger.PageIndex, cols ledger.ColumnRange) ([]ledger.Row, error) {
	if !cols.Valid() {
		return nil, fmt.Errorf("invalid column range %s", cols)
	}
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, cols.A1(page, 2)).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, page)
	}
	width := int(cols.Last-cols.First) + 1
	out := make([]ledger.Row, 0, len(vr.Values))
	for _, vals := range vr.Values {
		row := make(ledger.Row, width)
		for i, v := range vals {
			if i >= width {
				break
			}
			row[i] = fmt.Sprint(v)
		}
		out = append(out, row)
	}
	return out, nil
}

// CreatePage implements ledger.Store. Adding the tab and writing the header
// go in one batchUpdate, which the API applies atomically.
func (s *Store) CreatePage(ctx context.Context, page ledger.PageIndex, header ledger.Row) error {
	if !page.Valid() {
		return fmt.Errorf("%w: index %d", ledger.ErrInvalidPageName, page)
	}
	sheetID := int64(sheetIDBase + int(page))
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{SheetId: sheetID, Title: page.Name()},
			}},
			{AppendCells: &sheetsapi.AppendCellsRequest{
				SheetId: sheetID,
				Fields:  "userEnteredValue",
				Rows:    []*sheetsapi.RowData{stringRow(header)},
			}},
		},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return classify(err, page)
	}
	return nil
}

// AppendRow implements ledger.Store. The participant count is written as a
// number so the column stays summable in the spreadsheet UI.
func (s *Store) AppendRow(ctx context.Context, page ledger.PageIndex, row ledger.Row) error {
	values := make([]interface{}, len(row))
	for i, cell := range row {
		values[i] = cell
		if i == ledger.ColParticipants {
			if n, err := strconv.Atoi(cell); err == nil {
				values[i] = n
			}
		}
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, ledger.DataRange.A1(page, 1),
		&sheetsapi.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err, page)
	}
	return nil
}

func stringRow(r ledger.Row) *sheetsapi.RowData {
	cells := make([]*sheetsapi.CellData, len(r))
	for i := range r {
		v := r[i]
		cells[i] = &sheetsapi.CellData{UserEnteredValue: &sheetsapi.ExtendedValue{StringValue: &v}}
	}
	return &sheetsapi.RowData{Values: cells}
}

// classify maps API errors about tabs onto the ledger sentinels.
func classify(err error, page ledger.PageIndex) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest {
		msg := strings.ToLower(gerr.Message)
		switch {
		case strings.Contains(msg, "unable to parse range"):
			return fmt.Errorf("%w: %s", ledger.ErrPageNotFound, page.Name())
		case strings.Contains(msg, "already exists"):
			return fmt.Errorf("%w: %s", ledger.ErrPageExists, page.Name())
		}
	}
	return fmt.Errorf("sheets: %s: %w", page.Name(), err)
}
