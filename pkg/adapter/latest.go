package adapter

import (
	"context"
	"sync"

	"github.com/harrisonrobin/crmsync/pkg/store"
)

// Latest is for long-lived callers, such as a view that refetches as its
// filters change; one-shot commands call Adapter.Fetch directly.
//
// Latest serializes a view's fetches so that only the newest request wins.
// Each Fetch takes the next sequence number and cancels the previous request
// still in flight; a response that is no longer the newest is discarded.
type Latest[T any] struct {
	adapter *Adapter[T]

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewLatest[T any](a *Adapter[T]) *Latest[T] {
	return &Latest[T]{adapter: a}
}

// Fetch runs filters against the adapter. current is false when a newer
// Fetch was issued before this one returned; records and err are then nil.
func (l *Latest[T]) Fetch(ctx context.Context, filters Filters) (records []store.Record, current bool, err error) {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	l.seq++
	seq := l.seq
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	l.mu.Unlock()

	records, err = l.adapter.Fetch(ctx, filters)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		cancel()
		return nil, false, nil
	}
	l.cancel = nil
	cancel()
	return records, true, err
}

// Seq is the number of the newest request issued.
func (l *Latest[T]) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}
