package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/niftron/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32
	calls    atomic.Int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if n <= j.failures {
		return errors.New("transient failure")
	}
	return nil
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "0 0 18 * * 1-5"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@hourly"}))

	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "@hourly"}), "duplicate name")
	assert.Error(t, s.AddJob(&countingJob{name: "c", schedule: "0 18 * * *"}), "five fields without seconds")

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	_, ok := s.NextRun("a")
	assert.True(t, ok)
	_, ok = s.NextRun("missing")
	assert.False(t, ok)
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
}

func TestRunJob_RetriesUntilSuccess(t *testing.T) {
	s := New(logger.Nop(), WithRetry(2, 0))
	job := &countingJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result := s.runJob(job)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, result.Error)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.Equal(t, 1.0, history.GetSuccessRate())
}

func TestRunJob_GivesUp(t *testing.T) {
	s := New(logger.Nop(), WithRetry(1, 0))
	job := &countingJob{name: "broken", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	result := s.runJob(job)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, "transient failure", result.Error)

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, "transient failure", stats.LastError)
}

func TestRunJob_StopsRetryingAfterShutdown(t *testing.T) {
	s := New(logger.Nop(), WithRetry(5, time.Hour))
	job := &countingJob{name: "broken", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	s.cancel()
	result := s.runJob(job)

	assert.False(t, result.Success)
	assert.Equal(t, int32(1), job.calls.Load())
}

type deadlineJob struct{ sawDeadline bool }

func (j *deadlineJob) Name() string     { return "deadline" }
func (j *deadlineJob) Schedule() string { return "@daily" }
func (j *deadlineJob) Run(ctx context.Context) error {
	_, j.sawDeadline = ctx.Deadline()
	return nil
}

func TestRunJob_AppliesTimeout(t *testing.T) {
	s := New(logger.Nop(), WithTimeout(time.Minute))
	job := &deadlineJob{}

	result := s.runJob(job)
	assert.True(t, result.Success)
	assert.True(t, job.sawDeadline)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	_, ok := h.Last()
	assert.False(t, ok)
	assert.Equal(t, 0.0, h.GetSuccessRate())

	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0, Attempts: i})
	}
	assert.Len(t, h.Results, maxHistory)

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, maxHistory+9, last.Attempts)
	assert.Equal(t, 0.5, h.GetSuccessRate())
	assert.Len(t, h.GetFailedResults(), maxHistory/2)
}
