package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hweber/secondbrain/internal/platform/logger"
	"github.com/hweber/secondbrain/modules/scheduler/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockJobRepository implements ports.JobRepository
type MockJobRepository struct {
	mu        sync.Mutex
	jobs      []*model.ScheduledJob
	successes []string
	failures  map[string]string
}

func newMockJobRepo(jobs ...*model.ScheduledJob) *MockJobRepository {
	return &MockJobRepository{jobs: jobs, failures: map[string]string{}}
}

func (m *MockJobRepository) ListWithSchedule(ctx context.Context) ([]*model.ScheduledJob, error) {
	return m.jobs, nil
}

func (m *MockJobRepository) ListRunnable(ctx context.Context) ([]*model.ScheduledJob, error) {
	return m.jobs, nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id int64) (*model.ScheduledJob, error) {
	for _, job := range m.jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return nil, model.ErrJobNotFound
}

func (m *MockJobRepository) Update(ctx context.Context, id int64, enabled *bool, scheduleID *int64) (*model.ScheduledJob, error) {
	return m.GetByID(ctx, id)
}

func (m *MockJobRepository) RecordSuccess(ctx context.Context, jobName string, lastRun, nextRun time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes = append(m.successes, jobName)
	return nil
}

func (m *MockJobRepository) RecordFailure(ctx context.Context, jobName, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[jobName] = message
	return nil
}

func (m *MockJobRepository) successCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.successes)
}

func testRunnerLogger(t *testing.T) *logger.Logger {
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return log
}

func intervalJob(name string) *model.ScheduledJob {
	minutes := 5
	return &model.ScheduledJob{
		ID:      1,
		JobName: name,
		Enabled: true,
		Schedule: &model.Schedule{
			Type:            model.TypeInterval,
			IntervalMinutes: &minutes,
			Enabled:         true,
		},
	}
}

func TestRunNowSingleFlight(t *testing.T) {
	repo := newMockJobRepo(intervalJob("contact_sync"))
	runner := NewRunner(repo, testRunnerLogger(t))

	var concurrent int32
	var peak int32
	var executions int32
	release := make(chan struct{})

	runner.Register("contact_sync", func(ctx context.Context) error {
		current := atomic.AddInt32(&concurrent, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if current <= old || atomic.CompareAndSwapInt32(&peak, old, current) {
				break
			}
		}
		atomic.AddInt32(&executions, 1)
		<-release
		atomic.AddInt32(&concurrent, -1)
		return nil
	})

	ctx := context.Background()

	first, err := runner.RunNow(ctx, "contact_sync")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusQueued, first.Status)

	// wait until the handler is actually running
	require.Eventually(t, func() bool {
		return runner.IsRunning("contact_sync")
	}, time.Second, 5*time.Millisecond)

	// overlapping submissions must not start a second handler
	second, err := runner.RunNow(ctx, "contact_sync")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, second.Status)

	third, err := runner.RunNow(ctx, "contact_sync")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, third.Status)

	close(release)

	require.Eventually(t, func() bool {
		return !runner.IsRunning("contact_sync")
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&executions))
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	assert.Equal(t, 1, repo.successCount())
}

func TestRunNowUnknownJob(t *testing.T) {
	runner := NewRunner(newMockJobRepo(), testRunnerLogger(t))

	_, err := runner.RunNow(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestExecuteRecordsFailure(t *testing.T) {
	repo := newMockJobRepo(intervalJob("daily_report"))
	runner := NewRunner(repo, testRunnerLogger(t))

	runner.Register("daily_report", func(ctx context.Context) error {
		return assert.AnError
	})

	_, err := runner.RunNow(context.Background(), "daily_report")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		_, ok := repo.failures["daily_report"]
		return ok
	}, time.Second, 5*time.Millisecond)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.NotEmpty(t, repo.failures["daily_report"])
	assert.Empty(t, repo.successes)
}
