// Package azurequeue publishes and consumes ingestion jobs through Azure Queue
// Storage.
package azurequeue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/dvloznov/finance-health/internal/azure"
	"github.com/dvloznov/finance-health/internal/jobs"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/google/uuid"
)

const (
	batchSize = 16
	// visibilityTimeout hides a dequeued message while it is processed.
	visibilityTimeout = 300
	pollInterval      = 2 * time.Second
)

// Queue is a Publisher and Consumer backed by one storage queue. Messages
// are base64 encoded JSON jobs.
type Queue struct {
	client *azqueue.QueueClient
	store  jobs.JobStore

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	stopped bool
}

// New connects to serviceURL and creates queueName if needed. Plain http
// URLs are treated as Azurite.
func New(ctx context.Context, serviceURL, queueName string, store jobs.JobStore) (*Queue, error) {
	log := logger.FromContext(ctx)
	if serviceURL == "" {
		return nil, fmt.Errorf("queue service url is required")
	}

	var svc *azqueue.ServiceClient
	if azure.IsLocal(serviceURL) {
		log.Info().Str("queue_url", serviceURL).Msg("using Azurite shared key credentials for queue")
		cred, err := azqueue.NewSharedKeyCredential(azure.AzuriteAccountName, azure.AzuriteAccountKey)
		if err != nil {
			return nil, fmt.Errorf("create shared key credential: %w", err)
		}
		svc, err = azqueue.NewServiceClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create queue service client with shared key: %w", err)
		}
	} else {
		cred, err := azure.DefaultCredential()
		if err != nil {
			return nil, fmt.Errorf("create default azure credential: %w", err)
		}
		svc, err = azqueue.NewServiceClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create queue service client: %w", err)
		}
	}

	client := svc.NewQueueClient(queueName)
	if _, err := client.Create(ctx, nil); err != nil && !strings.Contains(err.Error(), "QueueAlreadyExists") {
		log.Warn().Err(err).Str("queue", queueName).Msg("failed to create queue")
	}
	return &Queue{client: client, store: store, stop: make(chan struct{})}, nil
}

// Encode renders job as a queue message.
func Encode(job *jobs.IngestJob) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode parses a queue message produced by Encode.
func Decode(text string) (*jobs.IngestJob, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	var job jobs.IngestJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

func (q *Queue) PublishIngest(ctx context.Context, job *jobs.IngestJob) error {
	job.Prepare(uuid.NewString, time.Now())
	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}
	return q.enqueue(ctx, job, 0)
}

func (q *Queue) enqueue(ctx context.Context, job *jobs.IngestJob, delay time.Duration) error {
	msg, err := Encode(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	var opts *azqueue.EnqueueMessageOptions
	if delay > 0 {
		opts = &azqueue.EnqueueMessageOptions{VisibilityTimeout: to.Ptr(int32(delay / time.Second))}
	}
	if _, err := q.client.EnqueueMessage(ctx, msg, opts); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.JobID, err)
	}
	return nil
}

// Start polls the queue until ctx is done or Stop is called. Each message
// is handled and deleted; failures are re-enqueued with a delay of
// RetryCount seconds until MaxRetries.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return fmt.Errorf("queue is closed")
	}
	q.wg.Add(1)
	go q.poll(ctx, handler)
	return nil
}

func (q *Queue) poll(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()
	log := logger.FromContext(ctx)

	for {
		n, err := q.receive(ctx, handler)
		if err != nil {
			log.Error().Err(err).Msg("failed to dequeue jobs")
		}
		if n > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		case <-time.After(pollInterval):
		}
	}
}

func (q *Queue) receive(ctx context.Context, handler jobs.JobHandler) (int, error) {
	resp, err := q.client.DequeueMessages(ctx, &azqueue.DequeueMessagesOptions{
		NumberOfMessages:  to.Ptr(int32(batchSize)),
		VisibilityTimeout: to.Ptr(int32(visibilityTimeout)),
	})
	if err != nil {
		return 0, err
	}
	for _, msg := range resp.Messages {
		if msg == nil || msg.MessageText == nil || msg.MessageID == nil || msg.PopReceipt == nil {
			continue
		}
		q.process(ctx, *msg.MessageText, handler)
		if _, err := q.client.DeleteMessage(ctx, *msg.MessageID, *msg.PopReceipt, nil); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Str("message_id", *msg.MessageID).Msg("failed to delete message")
		}
	}
	return len(resp.Messages), nil
}

func (q *Queue) process(ctx context.Context, text string, handler jobs.JobHandler) {
	job, err := Decode(text)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("dropping malformed job message")
		return
	}
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Str("session_id", job.SessionID).Logger()

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	q.save(ctx, job)

	err = handler(logger.WithContext(ctx, log), job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt
	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	case job.RetryCount < job.MaxRetries && !jobs.IsPermanent(err):
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		log.Warn().Err(err).Int("retry", job.RetryCount).Msg("job failed, retrying")

		retry := *job
		retry.Status = jobs.JobStatusPending
		retry.StartedAt = nil
		retry.CompletedAt = nil
		if err := q.enqueue(ctx, &retry, time.Duration(job.RetryCount)*time.Second); err != nil {
			log.Error().Err(err).Msg("failed to requeue job")
			job.Status = jobs.JobStatusFailed
		}
	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		log.Error().Err(err).Msg("job failed")
	}
	q.save(ctx, job)
}

func (q *Queue) save(ctx context.Context, job *jobs.IngestJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("job_id", job.JobID).Msg("failed to save job state")
	}
}

func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.stopped {
		q.stopped = true
		close(q.stop)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
