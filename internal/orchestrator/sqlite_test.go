package orchestrator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "jobs.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store, _ := newTestSQLiteStore(t)

	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	started := created.Add(time.Second)
	completed := created.Add(time.Minute)
	job := &Job{
		ID:           "job-1",
		Type:         JobTypeDataCollection,
		Status:       StatusCompleted,
		Priority:     7,
		Payload:      map[string]interface{}{"symbol": "NOK"},
		Result:       map[string]interface{}{"collected": "3 symbols"},
		ErrorMessage: "",
		Progress:     100,
		RetryCount:   1,
		MaxRetries:   3,
		CreatedAt:    created,
		StartedAt:    &started,
		CompletedAt:  &completed,
	}
	require.NoError(t, store.Put(job))

	got, ok := store.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.Type, got.Type)
	assert.Equal(t, job.Status, got.Status)
	assert.Equal(t, job.Priority, got.Priority)
	assert.Equal(t, job.Progress, got.Progress)
	assert.Equal(t, job.RetryCount, got.RetryCount)
	assert.Equal(t, job.MaxRetries, got.MaxRetries)
	assert.Equal(t, "NOK", got.Payload["symbol"])
	assert.True(t, created.Equal(got.CreatedAt))
	require.NotNil(t, got.StartedAt)
	assert.True(t, started.Equal(*got.StartedAt))
	require.NotNil(t, got.CompletedAt)
	assert.True(t, completed.Equal(*got.CompletedAt))
	assert.Nil(t, got.ScheduledAt)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store, _ := newTestSQLiteStore(t)

	_, ok := store.Get("nope")
	assert.False(t, ok)
}

func TestSQLiteStore_PutUpdates(t *testing.T) {
	store, _ := newTestSQLiteStore(t)

	job := &Job{ID: "job-1", Type: JobTypeEnrichment, Status: StatusPending, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Put(job))

	job.Status = StatusFailed
	job.ErrorMessage = "boom"
	job.RetryCount = 2
	require.NoError(t, store.Put(job))

	got, ok := store.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "boom", got.ErrorMessage)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, 1, store.Len())
}

func TestSQLiteStore_AllInsertionOrder(t *testing.T) {
	store, _ := newTestSQLiteStore(t)

	now := time.Now().UTC()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(&Job{ID: id, Type: JobTypeEnrichment, Status: StatusPending, CreatedAt: now}))
	}

	all := store.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store, _ := newTestSQLiteStore(t)

	require.NoError(t, store.Put(&Job{ID: "job-1", Type: JobTypeEnrichment, Status: StatusPending, CreatedAt: time.Now().UTC()}))
	require.NoError(t, store.Delete("job-1"))
	require.NoError(t, store.Delete("job-1")) // no-op

	_, ok := store.Get("job-1")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(&Job{
		ID:        "job-1",
		Type:      JobTypeReportGeneration,
		Status:    StatusCompleted,
		Priority:  5,
		Result:    map[string]interface{}{"report": "weekly"},
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "weekly", got.Result["report"])
}
