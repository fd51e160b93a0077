package reporting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lablink/lablink/internal/domain/results"
)

type memJobRepo struct {
	mu    sync.Mutex
	jobs  map[uuid.UUID]*Job
	items map[uuid.UUID]*Item
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{
		jobs:  make(map[uuid.UUID]*Job),
		items: make(map[uuid.UUID]*Item),
	}
}

func (m *memJobRepo) CreateJob(_ context.Context, job *Job, items []*Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	m.jobs[job.ID] = job
	for _, it := range items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.JobID = job.ID
		it.Status = StatusRequestReceived
		cp := *it
		m.items[it.ID] = &cp
	}
	return nil
}

func (m *memJobRepo) GetJob(_ context.Context, jobID uuid.UUID) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: report job %s", results.ErrNotFound, jobID)
	}
	return job, nil
}

func (m *memJobRepo) ListItems(_ context.Context, jobID uuid.UUID) ([]*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Item
	for _, it := range m.items {
		if it.JobID == jobID {
			cp := *it
			out = append(out, &cp)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Position < out[i].Position {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *memJobRepo) GetItem(_ context.Context, jobID, itemID uuid.UUID) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok || it.JobID != jobID {
		return nil, fmt.Errorf("%w: report item %s", results.ErrNotFound, itemID)
	}
	cp := *it
	return &cp, nil
}

func (m *memJobRepo) SetItemStatus(_ context.Context, itemID uuid.UUID, status string, details *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok {
		return fmt.Errorf("%w: report item %s", results.ErrNotFound, itemID)
	}
	it.Status = status
	it.Details = details
	return nil
}

func (m *memJobRepo) itemStatus(t *testing.T, itemID uuid.UUID) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	require.True(t, ok)
	return it.Status
}

// stubRecorder maps barcodes to canned outcomes and counts calls.
type stubRecorder struct {
	mu    sync.Mutex
	fail  map[string]error
	calls map[string]int
}

func newStubRecorder() *stubRecorder {
	return &stubRecorder{fail: make(map[string]error), calls: make(map[string]int)}
}

func (r *stubRecorder) RecordResult(_ context.Context, barCode string, _ results.ResultPayload,
	_ string, _, _ bool) (*results.ResultRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[barCode]++
	if err := r.fail[barCode]; err != nil {
		return nil, err
	}
	return &results.ResultRecord{ID: uuid.New(), BarCode: barCode}, nil
}

func (r *stubRecorder) callCount(barCode string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[barCode]
}

func payloadFor(barCode string) ItemPayload {
	return ItemPayload{
		BarCode: barCode,
		Payload: results.ResultPayload{Analysis: []results.AnalysisEntry{
			{Label: results.ChannelORF1ab, Value: 20},
			{Label: results.ChannelNGene, Value: 22},
			{Label: results.ChannelControl, Value: 25},
		}},
	}
}

func TestCreateReport(t *testing.T) {
	repo := newMemJobRepo()
	svc := NewService(repo, newStubRecorder(), zerolog.Nop())

	status, err := svc.CreateReport(context.Background(),
		[]ItemPayload{payloadFor("BC1"), payloadFor("BC2"), payloadFor("BC3")}, "admin-1")
	require.NoError(t, err)

	require.Len(t, status.Items, 3)
	for i, it := range status.Items {
		assert.Equal(t, StatusRequestReceived, it.Status)
		assert.Equal(t, i, it.Position)
	}
	assert.Equal(t, Summary{Total: 3, Pending: 3}, status.Summary)
	assert.Equal(t, "admin-1", status.Job.CreatedBy)
}

func TestCreateReportValidation(t *testing.T) {
	svc := NewService(newMemJobRepo(), newStubRecorder(), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.CreateReport(ctx, nil, "admin-1")
	assert.ErrorIs(t, err, results.ErrBadRequest)

	_, err = svc.CreateReport(ctx, []ItemPayload{{BarCode: ""}}, "admin-1")
	assert.ErrorIs(t, err, results.ErrBadRequest)
}

func TestProcessJobIndependentOutcomes(t *testing.T) {
	repo := newMemJobRepo()
	recorder := newStubRecorder()
	recorder.fail["BC2"] = fmt.Errorf("%w: analysis readings are required", results.ErrBadRequest)
	recorder.fail["BC3"] = errors.New("connection refused")
	svc := NewService(repo, recorder, zerolog.Nop())
	ctx := context.Background()

	created, err := svc.CreateReport(ctx,
		[]ItemPayload{payloadFor("BC1"), payloadFor("BC2"), payloadFor("BC3")}, "admin-1")
	require.NoError(t, err)

	status, err := svc.ProcessJob(ctx, created.Job.ID)
	require.Error(t, err) // the transient failure surfaces
	require.NotNil(t, status)

	assert.Equal(t, StatusSuccessfullyReported, status.Items[0].Status)
	assert.Equal(t, StatusFailed, status.Items[1].Status)
	require.NotNil(t, status.Items[1].Details)
	assert.Contains(t, *status.Items[1].Details, "analysis readings")
	// the transient item is back where it started, retryable
	assert.Equal(t, StatusRequestReceived, repo.itemStatus(t, status.Items[2].ID))
	assert.Equal(t, Summary{Total: 3, Succeeded: 1, Failed: 1, Pending: 1}, status.Summary)
}

func TestProcessJobRetryAfterTransientFailure(t *testing.T) {
	repo := newMemJobRepo()
	recorder := newStubRecorder()
	recorder.fail["BC1"] = errors.New("connection refused")
	svc := NewService(repo, recorder, zerolog.Nop())
	ctx := context.Background()

	created, err := svc.CreateReport(ctx, []ItemPayload{payloadFor("BC1")}, "admin-1")
	require.NoError(t, err)

	_, err = svc.ProcessJob(ctx, created.Job.ID)
	require.Error(t, err)

	// infrastructure recovered
	delete(recorder.fail, "BC1")
	status, err := svc.ProcessJob(ctx, created.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccessfullyReported, status.Items[0].Status)
}

func TestProcessItemIdempotent(t *testing.T) {
	repo := newMemJobRepo()
	recorder := newStubRecorder()
	svc := NewService(repo, recorder, zerolog.Nop())
	ctx := context.Background()

	created, err := svc.CreateReport(ctx, []ItemPayload{payloadFor("BC1")}, "admin-1")
	require.NoError(t, err)
	itemID := created.Items[0].ID

	first, err := svc.ProcessItem(ctx, created.Job.ID, itemID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccessfullyReported, first.Status)

	second, err := svc.ProcessItem(ctx, created.Job.ID, itemID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccessfullyReported, second.Status)
	assert.Equal(t, first.Details, second.Details)

	// the result engine ran exactly once
	assert.Equal(t, 1, recorder.callCount("BC1"))
}

func TestProcessItemUnknownJob(t *testing.T) {
	svc := NewService(newMemJobRepo(), newStubRecorder(), zerolog.Nop())
	_, err := svc.ProcessItem(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, results.ErrNotFound)
}

func TestStatusUnknownJob(t *testing.T) {
	svc := NewService(newMemJobRepo(), newStubRecorder(), zerolog.Nop())
	_, err := svc.Status(context.Background(), uuid.New())
	assert.ErrorIs(t, err, results.ErrNotFound)
}
