package azurequeue

import (
	"testing"
	"time"

	"github.com/dvloznov/finance-health/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	job := &jobs.IngestJob{
		JobID:      "j1",
		SessionID:  "s1",
		Files:      []string{"jan.csv", "feb.xlsx"},
		Status:     jobs.JobStatusPending,
		CreatedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		MaxRetries: 3,
	}
	msg, err := Encode(job)
	require.NoError(t, err)
	assert.NotContains(t, msg, "{")

	got, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, job, got)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("not base64!")
	assert.Error(t, err)
	_, err = Decode("bm90IGpzb24=")
	assert.Error(t, err)
}
