package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/finance-health/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func jobStatus(t *testing.T, s *Store, id string) jobs.JobStatus {
	t.Helper()
	j, err := s.GetJob(context.Background(), id)
	require.NoError(t, err)
	return j.Status
}

func TestQueueProcessesJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 2, store)

	var handled atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.IngestJob) error {
		handled.Add(1)
		job.Rows = 3
		return nil
	}))

	job := &jobs.IngestJob{SessionID: "s1"}
	require.NoError(t, q.PublishIngest(ctx, job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.DefaultMaxRetries, job.MaxRetries)

	waitFor(t, func() bool { return jobStatus(t, store, job.JobID) == jobs.JobStatusCompleted })
	assert.Equal(t, int32(1), handled.Load())

	got, err := store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Rows)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)

	require.NoError(t, q.Stop(context.Background()))
	assert.Error(t, q.PublishIngest(ctx, &jobs.IngestJob{SessionID: "s1"}))
}

func TestQueueRetriesThenFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store)
	q.backoffUnit = time.Millisecond
	defer q.Close()

	var attempts atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.IngestJob) error {
		attempts.Add(1)
		return errors.New("no readable files")
	}))

	job := &jobs.IngestJob{SessionID: "s1", MaxRetries: 2}
	require.NoError(t, q.PublishIngest(ctx, job))

	waitFor(t, func() bool { return jobStatus(t, store, job.JobID) == jobs.JobStatusFailed })
	assert.Equal(t, int32(3), attempts.Load())

	got, err := store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "no readable files", got.Error)
}

func TestQueueSerializesSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 4, store)
	defer q.Close()

	var mu sync.Mutex
	running := map[string]int{}
	maxRunning := map[string]int{}
	var done atomic.Int32

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.IngestJob) error {
		mu.Lock()
		running[job.SessionID]++
		if running[job.SessionID] > maxRunning[job.SessionID] {
			maxRunning[job.SessionID] = running[job.SessionID]
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		running[job.SessionID]--
		mu.Unlock()
		done.Add(1)
		return nil
	}))

	for i := 0; i < 4; i++ {
		require.NoError(t, q.PublishIngest(ctx, &jobs.IngestJob{SessionID: "same"}))
	}
	waitFor(t, func() bool { return done.Load() == 4 })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxRunning["same"])
}

func TestStoreListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, sid := range []string{"a", "b", "a"} {
		require.NoError(t, s.SaveJob(ctx, &jobs.IngestJob{
			JobID:     string(rune('1' + i)),
			SessionID: sid,
			Status:    jobs.JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.UpdateJobStatus(ctx, "1", jobs.JobStatusFailed, "boom"))

	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].JobID)

	a, err := s.ListJobs(ctx, jobs.JobFilter{SessionID: "a"})
	require.NoError(t, err)
	assert.Len(t, a, 2)

	failed, err := s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Error)

	page, err := s.ListJobs(ctx, jobs.JobFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "2", page[0].JobID)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.Error(t, s.SaveJob(ctx, &jobs.IngestJob{}))
}

func TestQueuePermanentErrorIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store)
	q.backoffUnit = time.Millisecond
	defer q.Close()

	var attempts atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.IngestJob) error {
		attempts.Add(1)
		return jobs.Permanent(errors.New("session not found"))
	}))

	job := &jobs.IngestJob{SessionID: "gone"}
	require.NoError(t, q.PublishIngest(ctx, job))
	waitFor(t, func() bool { return jobStatus(t, store, job.JobID) == jobs.JobStatusFailed })
	assert.Equal(t, int32(1), attempts.Load())
}
