package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/harrisonrobin/crmsync/pkg/metrics"
	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStore records the last call of each kind and answers with canned
// responses.
type fakeStore struct {
	listFn func(ctx context.Context, table string, q store.Query) (*store.ListResponse, error)

	getResp    *store.GetResponse
	bulkResp   *store.BulkResponse
	deleteResp *store.DeleteResponse
	err        error

	table     string
	query     store.Query
	getID     string
	submitted []store.Record
	deleted   []string
	calls     int
}

func (f *fakeStore) List(ctx context.Context, table string, q store.Query) (*store.ListResponse, error) {
	f.calls++
	f.table, f.query = table, q
	if f.listFn != nil {
		return f.listFn(ctx, table, q)
	}
	return &store.ListResponse{Success: true}, f.err
}

func (f *fakeStore) GetByID(_ context.Context, table, id string, _ []string) (*store.GetResponse, error) {
	f.calls++
	f.table, f.getID = table, id
	return f.getResp, f.err
}

func (f *fakeStore) BulkCreate(_ context.Context, table string, records []store.Record) (*store.BulkResponse, error) {
	f.calls++
	f.table, f.submitted = table, records
	return f.bulkResp, f.err
}

func (f *fakeStore) BulkUpdate(_ context.Context, table string, records []store.Record) (*store.BulkResponse, error) {
	f.calls++
	f.table, f.submitted = table, records
	return f.bulkResp, f.err
}

func (f *fakeStore) BulkDelete(_ context.Context, table string, ids []string) (*store.DeleteResponse, error) {
	f.calls++
	f.table, f.deleted = table, ids
	return f.deleteResp, f.err
}

func TestFetchBuildsExactMatchQuery(t *testing.T) {
	fs := &fakeStore{}
	projects := New(fs, ProjectSchema)

	got, err := projects.Fetch(context.Background(), Filters{"status": "active"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Equal(t, "project", fs.table)
	assert.Equal(t, []store.Condition{{FieldName: "status", Operator: store.ExactMatch, Values: []string{"active"}}}, fs.query.Where)
	assert.Equal(t, []store.OrderBy{{FieldName: "CreatedOn", SortType: store.SortDesc}}, fs.query.OrderBy)
	assert.Equal(t, ProjectSchema.Fields, fs.query.Fields)
}

func TestFetchConditionsFollowDeclarationOrder(t *testing.T) {
	tasks := New(&fakeStore{}, TaskSchema)
	q, err := tasks.Query(Filters{"project_id": "p1", "status": "todo", "priority": ""})
	require.NoError(t, err)
	require.Len(t, q.Where, 2)
	assert.Equal(t, "status", q.Where[0].FieldName)
	assert.Equal(t, "project_id", q.Where[1].FieldName)
}

func TestFetchRejectsUndeclaredFilter(t *testing.T) {
	fs := &fakeStore{}
	contacts := New(fs, ContactSchema)

	_, err := contacts.Fetch(context.Background(), Filters{"category": "work"})
	require.ErrorIs(t, err, ErrUnknownFilter)
	assert.Zero(t, fs.calls)
}

func TestFetchReturnsData(t *testing.T) {
	fs := &fakeStore{listFn: func(context.Context, string, store.Query) (*store.ListResponse, error) {
		return &store.ListResponse{Success: true, Data: []store.Record{{"Id": "1"}, {"Id": "2"}}}, nil
	}}
	got, err := New(fs, TaskSchema).Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Nil(t, fs.query.Where)
}

func TestFetchWrapsStoreFailure(t *testing.T) {
	boom := errors.New("connection reset")
	fs := &fakeStore{err: boom}

	_, err := New(fs, TaskSchema).Fetch(context.Background(), nil)
	require.ErrorIs(t, err, boom)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "task", opErr.Entity)
	assert.Equal(t, "fetch", opErr.Op)
	assert.Contains(t, err.Error(), "task fetch")
}

func TestGetByIDNullData(t *testing.T) {
	fs := &fakeStore{getResp: &store.GetResponse{Success: true, Data: nil}}
	got, err := New(fs, ContactSchema).GetByID(context.Background(), "42")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, "42", fs.getID)
	assert.Equal(t, "contact4", fs.table)
}

func TestGetByIDFailureNamesRecord(t *testing.T) {
	fs := &fakeStore{err: errors.New("timeout")}
	_, err := New(fs, ContactSchema).GetByID(context.Background(), "42")
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "42", opErr.ID)
}

func TestCreateReturnsOnlySucceededItems(t *testing.T) {
	fs := &fakeStore{bulkResp: &store.BulkResponse{
		Success: true,
		Results: []store.ItemResult{
			{Success: true, Data: store.Record{"Id": "c1", "Name": "John Doe"}},
			{Success: false, Message: "email is invalid"},
		},
	}}
	contacts := New(fs, ContactSchema, WithLogger(zap.NewNop()))

	res, err := contacts.Create(context.Background(), []model.Contact{
		{FirstName: "John", LastName: "Doe", Tags: []string{"VIP", "Hot"}},
		{FirstName: "Bad", Email: "nope"},
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "c1", res.Records[0].ID())
	assert.Equal(t, 2, res.Submitted)
	assert.True(t, res.Partial())
	assert.Equal(t, []ItemFailure{{Index: 1, Message: "email is invalid"}}, res.Failures)

	require.Len(t, fs.submitted, 2)
	assert.Equal(t, "John Doe", fs.submitted[0]["Name"])
	assert.Equal(t, "VIP,Hot", fs.submitted[0]["Tags"])
}

func TestCreateMissingResultsIsFailure(t *testing.T) {
	fs := &fakeStore{bulkResp: &store.BulkResponse{Success: true}}
	_, err := New(fs, TaskSchema).Create(context.Background(), []model.Task{{Title: "x"}})
	require.ErrorIs(t, err, ErrUnexpectedResponse)
	assert.Contains(t, err.Error(), "task create")
}

func TestCreateRejectedEnvelope(t *testing.T) {
	fs := &fakeStore{bulkResp: &store.BulkResponse{Success: false, Results: []store.ItemResult{}, Message: "quota exceeded"}}
	_, err := New(fs, TaskSchema).Create(context.Background(), []model.Task{{Title: "x"}})
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestFetchRejectedEnvelope(t *testing.T) {
	fs := &fakeStore{listFn: func(context.Context, string, store.Query) (*store.ListResponse, error) {
		return &store.ListResponse{Success: false, Message: "Invalid table"}, nil
	}}
	recs, err := New(fs, TaskSchema).Fetch(context.Background(), nil)
	require.ErrorIs(t, err, ErrRejected)
	assert.Nil(t, recs)
	assert.Contains(t, err.Error(), "Invalid table")

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "fetch", opErr.Op)
}

func TestFetchEmptySuccessIsEmptySlice(t *testing.T) {
	fs := &fakeStore{listFn: func(context.Context, string, store.Query) (*store.ListResponse, error) {
		return &store.ListResponse{Success: true, Data: []store.Record{}}, nil
	}}
	recs, err := New(fs, TaskSchema).Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestGetByIDRejectedEnvelope(t *testing.T) {
	fs := &fakeStore{getResp: &store.GetResponse{Success: false, Message: "Access denied"}}
	got, err := New(fs, ContactSchema).GetByID(context.Background(), "42")
	require.ErrorIs(t, err, ErrRejected)
	assert.Nil(t, got)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "get", opErr.Op)
	assert.Equal(t, "42", opErr.ID)
}

func TestCreateShortResultsMarksRemainder(t *testing.T) {
	fs := &fakeStore{bulkResp: &store.BulkResponse{
		Success: true,
		Results: []store.ItemResult{{Success: true, Data: store.Record{"Id": "1"}}},
	}}
	res, err := New(fs, TaskSchema).Create(context.Background(), []model.Task{{Title: "a"}, {Title: "b"}})
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Index)
}

func TestCreateNothingSkipsStore(t *testing.T) {
	fs := &fakeStore{}
	res, err := New(fs, TaskSchema).Create(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.Partial())
	assert.Zero(t, fs.calls)
}

func TestUpdateRequiresIdentity(t *testing.T) {
	fs := &fakeStore{}
	_, err := New(fs, ProjectSchema).Update(context.Background(), []model.Project{{ID: "p1", Name: "a"}, {Name: "b"}})
	require.ErrorIs(t, err, ErrMissingID)
	assert.Zero(t, fs.calls)
}

func TestUpdateSendsIdentity(t *testing.T) {
	fs := &fakeStore{bulkResp: &store.BulkResponse{
		Success: true,
		Results: []store.ItemResult{{Success: false, Message: "not found"}},
	}}
	res, err := New(fs, ProjectSchema).Update(context.Background(), []model.Project{{ID: "p1", Name: "Site", DueDate: "2024-05-01T00:00:00Z"}})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, "p1", res.Failures[0].ID)
	assert.Equal(t, "p1", fs.submitted[0]["Id"])
	assert.Equal(t, "2024-05-01", fs.submitted[0]["due_date"])
}

func TestDeleteSingleAndMany(t *testing.T) {
	fs := &fakeStore{deleteResp: &store.DeleteResponse{Success: true}}
	tasks := New(fs, TaskSchema)

	ok, err := tasks.Delete(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"t1"}, fs.deleted)

	ok, err = tasks.Delete(context.Background(), "t1", "t2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"t1", "t2"}, fs.deleted)
}

func TestDeleteFailure(t *testing.T) {
	fs := &fakeStore{deleteResp: &store.DeleteResponse{Success: false}}
	ok, err := New(fs, TaskSchema).Delete(context.Background(), "t1")
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrRejected)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "delete", opErr.Op)
	assert.Equal(t, "t1", opErr.ID)
}

func TestDecodeAppliesInbound(t *testing.T) {
	tasks := New(&fakeStore{}, TaskSchema)
	got := tasks.Decode([]store.Record{{"Id": "t1", "title": "Call", "Tags": "a,b"}})
	require.Len(t, got, 1)
	assert.Equal(t, "Call", got[0].Title)
	assert.Equal(t, []string{"a", "b"}, got[0].Tags)
	assert.Equal(t, model.PriorityMedium, got[0].Priority)
}

func TestMetricsRecordOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	fs := &fakeStore{err: errors.New("down")}
	tasks := New(fs, TaskSchema, WithMetrics(rec))
	_, _ = tasks.Fetch(context.Background(), nil)

	n, err := testutil.GatherAndCount(reg, "crmsync_adapter_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetricsCountRefusedItems(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	fs := &fakeStore{bulkResp: &store.BulkResponse{
		Success: true,
		Results: []store.ItemResult{
			{Success: true, Data: store.Record{"Id": "1"}},
			{Success: false, Message: "duplicate"},
		},
	}}
	res, err := New(fs, TaskSchema, WithMetrics(rec)).Create(context.Background(), []model.Task{{Title: "a"}, {Title: "b"}})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)

	families, err := reg.Gather()
	require.NoError(t, err)
	var refused float64
	for _, mf := range families {
		if mf.GetName() == "crmsync_adapter_failed_items_total" {
			for _, m := range mf.GetMetric() {
				refused += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, refused)
}

func TestServicesUseConfiguredTables(t *testing.T) {
	svc := NewServices(&fakeStore{}, Tables{Task: "tasks_v2"})
	assert.Equal(t, "tasks_v2", svc.Tasks.Schema().Table)
	assert.Equal(t, DefaultContactTable, svc.Contacts.Schema().Table)
	assert.Equal(t, DefaultOpportunityTable, svc.Opportunities.Schema().Table)
	assert.Equal(t, DefaultProjectTable, svc.Projects.Schema().Table)
}
