package blobstore

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/finance-health/internal/blob"
	"github.com/dvloznov/finance-health/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(blob.NewFS(t.TempDir()))

	older := &jobs.IngestJob{JobID: "j1", SessionID: "s1", Status: jobs.JobStatusPending, CreatedAt: time.Unix(100, 0).UTC()}
	newer := &jobs.IngestJob{JobID: "j2", SessionID: "s2", Status: jobs.JobStatusPending, CreatedAt: time.Unix(200, 0).UTC(), Files: []string{"jan.csv"}}
	require.NoError(t, s.SaveJob(ctx, older))
	require.NoError(t, s.SaveJob(ctx, newer))

	got, err := s.GetJob(ctx, "j2")
	require.NoError(t, err)
	assert.Equal(t, []string{"jan.csv"}, got.Files)

	require.NoError(t, s.UpdateJobStatus(ctx, "j1", jobs.JobStatusCompleted, ""))

	list, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "j2", list[0].JobID)

	done, err := s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "j1", done[0].JobID)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	_, err = s.GetJob(ctx, "../x")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, "x"), jobs.ErrJobNotFound)
}
