// Package blobstore keeps job state as JSON documents in a blob store, so
// the API and a separate worker process can share it.
package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-health/internal/blob"
	"github.com/dvloznov/finance-health/internal/jobs"
)

const prefix = "jobs/"

type Store struct {
	blobs blob.Store
}

func NewStore(blobs blob.Store) *Store {
	return &Store{blobs: blobs}
}

func key(id string) string {
	return prefix + id + ".json"
}

func (s *Store) SaveJob(ctx context.Context, job *jobs.IngestJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("Store.SaveJob: %w", err)
	}
	if err := s.blobs.Put(ctx, key(job.JobID), data); err != nil {
		return fmt.Errorf("Store.SaveJob: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.IngestJob, error) {
	if strings.ContainsAny(jobID, "/\\") {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	data, err := s.blobs.Get(ctx, key(jobID))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("Store.GetJob: %w", err)
	}
	var job jobs.IngestJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("Store.GetJob: decode %s: %w", jobID, err)
	}
	return &job, nil
}

func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.IngestJob, error) {
	keys, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("Store.ListJobs: %w", err)
	}
	var result []*jobs.IngestJob
	for _, k := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(k, prefix), ".json")
		job, err := s.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if filter.Match(job) {
			result = append(result, job)
		}
	}
	return filter.Page(result), nil
}

func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return s.SaveJob(ctx, job)
}

var _ jobs.JobStore = (*Store)(nil)
