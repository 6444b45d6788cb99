package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/niftron/internal/brain"
	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

type fakeRunner struct {
	asOf []time.Time
	err  error
}

func (r *fakeRunner) RunDaily(_ context.Context, asOf time.Time) (*brain.RunResult, error) {
	r.asOf = append(r.asOf, asOf)
	if r.err != nil {
		return nil, r.err
	}
	return &brain.RunResult{
		RunID:           "run-1",
		Date:            asOf,
		Success:         true,
		Recommendations: &contracts.RecommendationSet{Date: asOf},
	}, nil
}

var ist = time.FixedZone("IST", 5*3600+1800)

func TestDailyPipelineJob_Defaults(t *testing.T) {
	job := NewDailyPipelineJob(&fakeRunner{}, "", nil, logger.Nop())
	assert.Equal(t, "daily_pipeline", job.Name())
	assert.Equal(t, DefaultDailySchedule, job.Schedule())
}

func TestDailyPipelineJob_AsOfUsesLocation(t *testing.T) {
	job := NewDailyPipelineJob(&fakeRunner{}, "", ist, logger.Nop())
	// 20:00 UTC on the 5th is already the 6th in India
	job.now = func() time.Time { return time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC) }

	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), job.AsOf())
}

func TestDailyPipelineJob_Run(t *testing.T) {
	runner := &fakeRunner{}
	job := NewDailyPipelineJob(runner, "", ist, logger.Nop())
	job.now = func() time.Time { return time.Date(2024, 3, 5, 12, 30, 0, 0, ist) }

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, runner.asOf, 1)
	assert.Equal(t, "2024-03-05", contracts.DateKey(runner.asOf[0]))
}

func TestDailyPipelineJob_RunInProgressIsNotAnError(t *testing.T) {
	job := NewDailyPipelineJob(&fakeRunner{err: brain.ErrRunInProgress}, "", nil, logger.Nop())
	assert.NoError(t, job.Run(context.Background()))
}

func TestDailyPipelineJob_PropagatesFailure(t *testing.T) {
	boom := errors.New("RANK failed")
	job := NewDailyPipelineJob(&fakeRunner{err: boom}, "", nil, logger.Nop())
	assert.ErrorIs(t, job.Run(context.Background()), boom)
}
