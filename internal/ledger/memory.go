package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. It backs local development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	pages map[PageIndex]*memoryPage
}

type memoryPage struct {
	header Row
	rows   []Row
}

// NewMemoryStore returns an empty store with no pages.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pages: make(map[PageIndex]*memoryPage)}
}

// ListPages implements Store. Pages are returned in index order.
func (s *MemoryStore) ListPages(ctx context.Context) ([]PageInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PageInfo, 0, len(s.pages))
	for idx, p := range s.pages {
		out = append(out, PageInfo{Index: idx, Name: idx.Name(), RowCount: len(p.rows)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// ReadRows implements Store.
func (s *MemoryStore) ReadRows(ctx context.Context, page PageIndex, cols ColumnRange) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !cols.Valid() {
		return nil, fmt.Errorf("invalid column range %s", cols)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pages[page]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, page.Name())
	}
	out := make([]Row, 0, len(p.rows))
	for _, r := range p.rows {
		out = append(out, cols.Project(r))
	}
	return out, nil
}

// CreatePage implements Store.
func (s *MemoryStore) CreatePage(ctx context.Context, page PageIndex, header Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !page.Valid() {
		return fmt.Errorf("%w: index %d", ErrInvalidPageName, page)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pages[page]; ok {
		return fmt.Errorf("%w: %s", ErrPageExists, page.Name())
	}
	s.pages[page] = &memoryPage{header: header.Clone()}
	return nil
}

// AppendRow implements Store.
func (s *MemoryStore) AppendRow(ctx context.Context, page PageIndex, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pages[page]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPageNotFound, page.Name())
	}
	p.rows = append(p.rows, row.Clone())
	return nil
}

// Header returns the header row page was created with.
func (s *MemoryStore) Header(page PageIndex) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[page]
	if !ok {
		return nil, false
	}
	return p.header.Clone(), true
}
