package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// JobType identifies the type of background job
type JobType string

const (
	// JobTypeVerifyClientAccess confirms a client's manual grant by calling
	// the provider API with the agency's credential.
	JobTypeVerifyClientAccess JobType = "verify-client-access"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// VerificationJobPayload carries everything the worker needs to run one
// access check without re-deriving context from the route layer.
type VerificationJobPayload struct {
	VerificationID      string     `json:"verification_id"`
	AccessRequestID     string     `json:"access_request_id"`
	Platform            PlatformID `json:"platform_id"`
	ClientEmail         string     `json:"client_email"`
	RequiredAccessLevel string     `json:"required_access_level,omitempty"`
	AgencyConnectionID  string     `json:"agency_connection_id"`
	AgencyEmail         string     `json:"agency_email,omitempty"`
}

// Job represents a background job to be processed by workers.
// Queue delivery retries (Attempts/MaxAttempts, exponential backoff) are
// orthogonal to the verification record's own attempts counter.
type Job struct {
	// ID is the unique identifier for this job
	ID string `json:"id"`

	// Type identifies what kind of job this is
	Type JobType `json:"type"`

	// Payload contains the verification job data
	Payload VerificationJobPayload `json:"payload"`

	// Status is the current state of the job
	Status JobStatus `json:"status"`

	// Attempts is how many times this job has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum delivery count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	// CreatedAt is when the job was enqueued
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the job was last modified
	UpdatedAt time.Time `json:"updated_at"`

	// StartedAt is when processing began (nil if not started)
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when processing finished (nil if not complete)
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor is when the job should be processed (for backoff retries)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// retryBaseDelay is the first retry delay; each further retry doubles it.
const retryBaseDelay = 2 * time.Second

// NewVerificationJob creates a verify-client-access job with default retry policy.
func NewVerificationJob(payload VerificationJobPayload) *Job {
	now := time.Now()
	return &Job{
		ID:           GenerateID(),
		Type:         JobTypeVerifyClientAccess,
		Payload:      payload,
		Status:       JobStatusPending,
		Attempts:     0,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// CanRetry returns true if the job can be redelivered
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// NextRetryDelay returns the backoff before the next delivery attempt:
// 2s, 4s, 8s, ...
func (j *Job) NextRetryDelay() time.Duration {
	attempt := j.Attempts
	if attempt < 1 {
		attempt = 1
	}
	return retryBaseDelay << (attempt - 1)
}

// IsReady returns true if the job is ready to be processed
func (j *Job) IsReady() bool {
	return j.Status == JobStatusPending && time.Now().After(j.ScheduledFor)
}

// MarkProcessing updates the job to processing state
func (j *Job) MarkProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.UpdatedAt = now
	j.Attempts++
}

// MarkCompleted updates the job to completed state
func (j *Job) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
	j.Error = ""
}

// MarkFailed updates the job to failed state
func (j *Job) MarkFailed(reason string) {
	j.Status = JobStatusFailed
	j.Error = reason
	j.UpdatedAt = time.Now()
}
