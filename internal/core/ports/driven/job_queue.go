package driven

import (
	"context"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
)

// JobQueue handles background verification jobs with at-least-once
// delivery. Redelivery retries follow the job's own backoff policy and are
// independent of the verification record's attempts counter.
type JobQueue interface {
	// Enqueue adds a job to the queue for processing.
	Enqueue(ctx context.Context, job *domain.Job) error

	// DequeueWithTimeout retrieves the next available job, waiting up to
	// timeout seconds. Returns nil, nil if none became available.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Job, error)

	// Ack acknowledges successful completion of a job.
	Ack(ctx context.Context, jobID string) error

	// Nack indicates delivery failed. The job is rescheduled with
	// exponential backoff, or marked failed once MaxAttempts is reached.
	Nack(ctx context.Context, jobID string, reason string) error

	// GetJob retrieves a job by ID (for status checking).
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

// QueueStats contains queue statistics
type QueueStats struct {
	// PendingCount is the number of jobs waiting to be processed
	PendingCount int64 `json:"pending_count"`

	// ProcessingCount is the number of jobs currently being processed
	ProcessingCount int64 `json:"processing_count"`

	// CompletedCount is the number of successfully completed jobs
	CompletedCount int64 `json:"completed_count"`

	// FailedCount is the number of jobs that failed after all retries
	FailedCount int64 `json:"failed_count"`
}
