package mocks

import (
	"context"
	"sync"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

// MockJobQueue is an in-memory JobQueue for testing.
type MockJobQueue struct {
	mu      sync.Mutex
	Jobs    []*domain.Job
	Acked   []string
	Nacked  []string
	nextIdx int

	EnqueueFn func(ctx context.Context, job *domain.Job) error
}

func NewMockJobQueue() *MockJobQueue {
	return &MockJobQueue{}
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	if m.EnqueueFn != nil {
		return m.EnqueueFn(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs = append(m.Jobs, job)
	return nil
}

func (m *MockJobQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextIdx >= len(m.Jobs) {
		return nil, nil
	}
	job := m.Jobs[m.nextIdx]
	m.nextIdx++
	job.MarkProcessing()
	return job, nil
}

func (m *MockJobQueue) Ack(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Acked = append(m.Acked, jobID)
	return nil
}

func (m *MockJobQueue) Nack(ctx context.Context, jobID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Nacked = append(m.Nacked, jobID)
	return nil
}

func (m *MockJobQueue) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.Jobs {
		if j.ID == jobID {
			return j, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockJobQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &driven.QueueStats{PendingCount: int64(len(m.Jobs) - m.nextIdx)}, nil
}

func (m *MockJobQueue) Ping(ctx context.Context) error { return nil }

func (m *MockJobQueue) Close() error { return nil }
