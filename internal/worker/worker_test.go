package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven/mocks"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driving"
)

// stubVerificationService records Execute calls and returns a scripted error.
type stubVerificationService struct {
	mu       sync.Mutex
	executed []string
	err      error
}

var _ driving.VerificationService = (*stubVerificationService)(nil)

func (s *stubVerificationService) Initiate(ctx context.Context, req driving.VerifyRequest) (*driving.VerifyResponse, error) {
	return nil, errors.New("not used in worker tests")
}

func (s *stubVerificationService) Execute(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executed = append(s.executed, job.Payload.VerificationID)
	return s.err
}

func (s *stubVerificationService) Status(ctx context.Context, req driving.StatusRequest) (*driving.StatusResponse, error) {
	return nil, errors.New("not used in worker tests")
}

func (s *stubVerificationService) executedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.executed)
}

func newVerifyJob(verificationID string) *domain.Job {
	return domain.NewVerificationJob(domain.VerificationJobPayload{
		VerificationID:     verificationID,
		AccessRequestID:    "req-1",
		Platform:           domain.PlatformGoogleAds,
		ClientEmail:        "client@example.com",
		AgencyConnectionID: "conn-1",
	})
}

func TestWorkerProcessesAndAcks(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	svc := &stubVerificationService{}
	w := New(Config{
		Queue:          queue,
		Verifications:  svc,
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	job := newVerifyJob("ver-1")
	require.NoError(t, queue.Enqueue(context.Background(), job))

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.Eventually(t, func() bool {
		return len(queue.Acked) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"ver-1"}, svc.executed)
	assert.Equal(t, job.ID, queue.Acked[0])
	assert.Empty(t, queue.Nacked)
}

func TestWorkerNacksOnHandlerError(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	svc := &stubVerificationService{err: errors.New("store unavailable")}
	w := New(Config{
		Queue:          queue,
		Verifications:  svc,
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	job := newVerifyJob("ver-2")
	require.NoError(t, queue.Enqueue(context.Background(), job))

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.Eventually(t, func() bool {
		return len(queue.Nacked) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, job.ID, queue.Nacked[0])
	assert.Empty(t, queue.Acked)
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	w := New(Config{
		Queue:          queue,
		Verifications:  &stubVerificationService{},
		Concurrency:    2,
		DequeueTimeout: 1,
	})

	require.NoError(t, w.Start(context.Background()))
	// Starting twice is a no-op
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
}

func TestWorkerProcessesMultipleJobs(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	svc := &stubVerificationService{}
	w := New(Config{
		Queue:          queue,
		Verifications:  svc,
		Concurrency:    2,
		DequeueTimeout: 1,
	})

	ctx := context.Background()
	for _, id := range []string{"ver-a", "ver-b", "ver-c"} {
		require.NoError(t, queue.Enqueue(ctx, newVerifyJob(id)))
	}

	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.Eventually(t, func() bool {
		return svc.executedCount() == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerHealth(t *testing.T) {
	queue := mocks.NewMockJobQueue()
	w := New(Config{
		Queue:         queue,
		Verifications: &stubVerificationService{},
	})

	health := w.Health(context.Background())
	assert.False(t, health.Running)
	assert.True(t, health.QueueHealth)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	health = w.Health(context.Background())
	assert.True(t, health.Running)
}
