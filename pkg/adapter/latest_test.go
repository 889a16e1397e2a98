package adapter

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/crmsync/pkg/store"
)

func TestLatestDiscardsSupersededFetch(t *testing.T) {
	started := make(chan struct{})
	var n atomic.Int32
	fs := &fakeStore{listFn: func(ctx context.Context, _ string, q store.Query) (*store.ListResponse, error) {
		if n.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &store.ListResponse{Success: true, Data: []store.Record{{"Id": "new"}}}, nil
	}}
	view := NewLatest(New(fs, TaskSchema))

	type outcome struct {
		records []store.Record
		current bool
		err     error
	}
	first := make(chan outcome, 1)
	go func() {
		records, current, err := view.Fetch(context.Background(), Filters{"status": "todo"})
		first <- outcome{records, current, err}
	}()
	<-started

	records, current, err := view.Fetch(context.Background(), Filters{"status": "done"})
	require.NoError(t, err)
	assert.True(t, current)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].ID())

	stale := <-first
	assert.False(t, stale.current)
	assert.NoError(t, stale.err)
	assert.Nil(t, stale.records)
	assert.Equal(t, uint64(2), view.Seq())
}

func TestLatestPassesThroughErrors(t *testing.T) {
	fs := &fakeStore{listFn: func(context.Context, string, store.Query) (*store.ListResponse, error) {
		return nil, assert.AnError
	}}
	view := NewLatest(New(fs, TaskSchema))

	_, current, err := view.Fetch(context.Background(), nil)
	assert.True(t, current)
	require.ErrorIs(t, err, assert.AnError)
}
