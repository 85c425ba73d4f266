package ledger

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageName(t *testing.T) {
	for name, tc := range map[string]struct {
		in      string
		want    PageIndex
		wantErr bool
	}{
		"first page":       {in: "Sheet1", want: 1},
		"multi digit":      {in: "Sheet42", want: 42},
		"leading zeros":    {in: "Sheet007", want: 7},
		"zero":             {in: "Sheet0", wantErr: true},
		"no digits":        {in: "Sheet", wantErr: true},
		"lower case":       {in: "sheet1", wantErr: true},
		"trailing garbage": {in: "Sheet1 copy", wantErr: true},
		"signed":           {in: "Sheet-1", wantErr: true},
		"other tab":        {in: "Summary", wantErr: true},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := ParsePageName(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidPageName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMaxIndex(t *testing.T) {
	got, ok := MaxIndex([]PageInfo{
		{Index: 3, Name: "Sheet3"},
		{Index: 0, Name: "Summary"},
		{Index: 1, Name: "Sheet1"},
		{Index: 3, Name: "Sheet3"},
	})
	assert.True(t, ok)
	assert.Equal(t, PageIndex(3), got)

	_, ok = MaxIndex([]PageInfo{{Name: "Summary"}})
	assert.False(t, ok)
}

func TestColumnRange(t *testing.T) {
	assert.Equal(t, "A:J", DataRange.String())
	assert.Equal(t, "Sheet2!A2:J", DataRange.A1(2, 2))
	assert.Equal(t, "Sheet1!A:J", DataRange.A1(1, 1))

	cols := ColumnRange{First: 'C', Last: 'E'}
	if diff := cmp.Diff(Row{"c", "d", ""}, cols.Project(Row{"a", "b", "c", "d"})); diff != "" {
		t.Errorf("Project (-want +got):\n%s", diff)
	}
	assert.False(t, ColumnRange{First: 'D', Last: 'B'}.Valid())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	pages, err := s.ListPages(ctx)
	require.NoError(t, err)
	assert.Empty(t, pages)

	require.ErrorIs(t, s.AppendRow(ctx, 1, Row{"x"}), ErrPageNotFound)
	_, err = s.ReadRows(ctx, 1, DataRange)
	require.ErrorIs(t, err, ErrPageNotFound)

	require.NoError(t, s.CreatePage(ctx, 2, Header))
	require.NoError(t, s.CreatePage(ctx, 1, Header))
	require.ErrorIs(t, s.CreatePage(ctx, 1, Header), ErrPageExists)
	require.ErrorIs(t, s.CreatePage(ctx, 0, Header), ErrInvalidPageName)

	row := Row{"t", "ward", "A", "2"}
	require.NoError(t, s.AppendRow(ctx, 1, row))
	row[0] = "mutated"
	require.NoError(t, s.AppendRow(ctx, 1, Row{"t2", "ward2", "B", "1"}))

	rows, err := s.ReadRows(ctx, 1, ColumnRange{First: 'A', Last: 'D'})
	require.NoError(t, err)
	if diff := cmp.Diff([]Row{{"t", "ward", "A", "2"}, {"t2", "ward2", "B", "1"}}, rows); diff != "" {
		t.Errorf("ReadRows (-want +got):\n%s", diff)
	}

	pages, err = s.ListPages(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]PageInfo{
		{Index: 1, Name: "Sheet1", RowCount: 2},
		{Index: 2, Name: "Sheet2", RowCount: 0},
	}, pages); diff != "" {
		t.Errorf("ListPages (-want +got):\n%s", diff)
	}

	h, ok := s.Header(2)
	require.True(t, ok)
	assert.Equal(t, Header, h)
}
