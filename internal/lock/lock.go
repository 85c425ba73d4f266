// Package lock provides mutual exclusion keyed by ledger id. The submission
// service holds the lock for a ledger while it resolves the target page and
// appends the row, so concurrent submitters cannot both observe the same
// capacity and overfill a page.
package lock

import (
	"context"
	"sync"
)

// Release gives up a held lock. It is safe to call more than once.
type Release func()

// Locker acquires exclusive access to key. Lock blocks until the lock is
// held or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Release, error)
}

// Local serializes callers within a single process.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal returns an empty in-process Locker.
func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Lock implements Locker.
func (l *Local) Lock(ctx context.Context, key string) (Release, error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-ch }) }, nil
}
