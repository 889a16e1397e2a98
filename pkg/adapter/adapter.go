// Package adapter exposes one uniform fetch/get/create/update/delete contract
// per CRM entity over a store.RecordStore, normalizing values on the way out
// and in.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harrisonrobin/crmsync/pkg/metrics"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

// ErrRejected is returned when the store answers with success=false.
var ErrRejected = errors.New("record store rejected the request")

// Filters are exact-match conditions keyed by persisted field name. Empty
// values are ignored.
type Filters map[string]string

// ItemFailure describes one item of a bulk call that the store did not apply.
type ItemFailure struct {
	Index   int
	ID      string
	Message string
}

// BulkResult holds the records the store reports as applied, in submission
// order, together with the items it did not apply.
type BulkResult struct {
	Submitted int
	Records   []store.Record
	Failures  []ItemFailure
}

// Partial reports whether at least one item was not applied.
func (r *BulkResult) Partial() bool {
	return len(r.Failures) > 0
}

type options struct {
	logger  *zap.Logger
	metrics *metrics.Recorder
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(o *options) { o.metrics = m }
}

// Adapter is the record adapter for one entity type. It holds no state
// besides its collaborators and is safe for concurrent use if the store is.
type Adapter[T any] struct {
	store   store.RecordStore
	schema  Schema[T]
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// New creates an adapter for schema over st.
func New[T any](st store.RecordStore, schema Schema[T], opts ...Option) *Adapter[T] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Adapter[T]{
		store:   st,
		schema:  schema,
		logger:  o.logger.With(zap.String("entity", schema.Entity), zap.String("table", schema.Table)),
		metrics: o.metrics,
	}
}

func (a *Adapter[T]) Schema() Schema[T] { return a.schema }

// Query builds the list request for filters: every declared field, newest
// first, one exact-match condition per non-empty filter in declaration order.
func (a *Adapter[T]) Query(filters Filters) (store.Query, error) {
	declared := make(map[string]bool, len(a.schema.Filters))
	for _, key := range a.schema.Filters {
		declared[key] = true
	}
	for key := range filters {
		if !declared[key] {
			return store.Query{}, fmt.Errorf("%w %q", ErrUnknownFilter, key)
		}
	}

	q := store.Query{
		Fields:  a.schema.Fields,
		OrderBy: []store.OrderBy{{FieldName: store.FieldCreatedOn, SortType: store.SortDesc}},
	}
	for _, key := range a.schema.Filters {
		if v := filters[key]; v != "" {
			q.Where = append(q.Where, store.Condition{
				FieldName: key,
				Operator:  store.ExactMatch,
				Values:    []string{v},
			})
		}
	}
	return q, nil
}

// Fetch lists records matching filters. No match is an empty slice, not an
// error; a store that reports failure is.
func (a *Adapter[T]) Fetch(ctx context.Context, filters Filters) ([]store.Record, error) {
	const op = "fetch"
	start := time.Now()

	q, err := a.Query(filters)
	if err != nil {
		return nil, a.fail(op, "", err, start)
	}
	resp, err := a.store.List(ctx, a.schema.Table, q)
	if err != nil {
		return nil, a.fail(op, "", err, start)
	}
	if resp != nil && !resp.Success {
		return nil, a.fail(op, "", rejected(resp.Message), start)
	}
	a.observe(op, metrics.OutcomeOK, start)
	if resp == nil || len(resp.Data) == 0 {
		return []store.Record{}, nil
	}
	return resp.Data, nil
}

// GetByID returns the record, or nil when the store has none. Missing and
// deleted records are indistinguishable.
func (a *Adapter[T]) GetByID(ctx context.Context, id string) (store.Record, error) {
	const op = "get"
	start := time.Now()

	resp, err := a.store.GetByID(ctx, a.schema.Table, id, a.schema.Fields)
	if err != nil {
		return nil, a.fail(op, id, err, start)
	}
	if resp != nil && !resp.Success {
		return nil, a.fail(op, id, rejected(resp.Message), start)
	}
	a.observe(op, metrics.OutcomeOK, start)
	if resp == nil || resp.Data == nil {
		return nil, nil
	}
	return resp.Data, nil
}

// Create normalizes values and submits them in one bulk call. Items the
// store rejects are reported in BulkResult.Failures; nothing is rolled back.
func (a *Adapter[T]) Create(ctx context.Context, values []T) (*BulkResult, error) {
	return a.bulk(ctx, "create", values, a.store.BulkCreate)
}

// Update replaces whole records. Every value must carry its identity.
func (a *Adapter[T]) Update(ctx context.Context, values []T) (*BulkResult, error) {
	for i, v := range values {
		if a.schema.IDOf(v) == "" {
			return nil, a.fail("update", "", fmt.Errorf("item %d: %w", i, ErrMissingID), time.Now())
		}
	}
	return a.bulk(ctx, "update", values, a.store.BulkUpdate)
}

type bulkCall func(ctx context.Context, table string, records []store.Record) (*store.BulkResponse, error)

func (a *Adapter[T]) bulk(ctx context.Context, op string, values []T, call bulkCall) (*BulkResult, error) {
	start := time.Now()
	res := &BulkResult{Submitted: len(values)}
	if len(values) == 0 {
		return res, nil
	}

	records := make([]store.Record, len(values))
	for i, v := range values {
		records[i] = a.schema.Outbound(v)
	}

	resp, err := call(ctx, a.schema.Table, records)
	if err != nil {
		return nil, a.fail(op, "", err, start)
	}
	if resp == nil || resp.Results == nil {
		return nil, a.fail(op, "", ErrUnexpectedResponse, start)
	}
	if !resp.Success {
		return nil, a.fail(op, "", rejected(resp.Message), start)
	}

	for i := range records {
		if i >= len(resp.Results) {
			res.Failures = append(res.Failures, ItemFailure{Index: i, ID: records[i].ID(), Message: "no result reported"})
			continue
		}
		item := resp.Results[i]
		if item.Success {
			res.Records = append(res.Records, item.Data)
			continue
		}
		res.Failures = append(res.Failures, ItemFailure{Index: i, ID: records[i].ID(), Message: item.Message})
	}

	outcome := metrics.OutcomeOK
	if res.Partial() {
		outcome = metrics.OutcomePartial
		for _, f := range res.Failures {
			a.logger.Warn("bulk item not applied",
				zap.String("op", op),
				zap.Int("index", f.Index),
				zap.String("id", f.ID),
				zap.String("message", f.Message))
		}
	}
	a.metrics.FailedItems(a.schema.Entity, op, len(res.Failures))
	a.observe(op, outcome, start)
	return res, nil
}

// Delete removes one or more records in a single bulk call.
func (a *Adapter[T]) Delete(ctx context.Context, ids ...string) (bool, error) {
	const op = "delete"
	start := time.Now()
	if len(ids) == 0 {
		return true, nil
	}

	var subject string
	if len(ids) == 1 {
		subject = ids[0]
	}
	resp, err := a.store.BulkDelete(ctx, a.schema.Table, ids)
	if err != nil {
		return false, a.fail(op, subject, err, start)
	}
	if resp == nil {
		return false, a.fail(op, subject, ErrUnexpectedResponse, start)
	}
	if !resp.Success {
		return false, a.fail(op, subject, rejected(resp.Message), start)
	}
	a.observe(op, metrics.OutcomeOK, start)
	return true, nil
}

// Decode applies the inbound mapping to fetched records.
func (a *Adapter[T]) Decode(records []store.Record) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		out = append(out, a.schema.Inbound(r))
	}
	return out
}

func rejected(msg string) error {
	if msg == "" {
		return ErrRejected
	}
	return fmt.Errorf("%w: %s", ErrRejected, msg)
}

func (a *Adapter[T]) fail(op, id string, err error, start time.Time) error {
	a.logger.Error("record store operation failed",
		zap.String("op", op),
		zap.String("id", id),
		zap.Error(err))
	a.observe(op, metrics.OutcomeError, start)
	return &OpError{Entity: a.schema.Entity, Op: op, ID: id, Err: err}
}

func (a *Adapter[T]) observe(op, outcome string, start time.Time) {
	a.metrics.Observe(a.schema.Entity, op, outcome, time.Since(start))
}
