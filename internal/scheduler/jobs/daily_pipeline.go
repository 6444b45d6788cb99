package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/niftron/internal/brain"
	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

// DefaultDailySchedule runs after the NSE close on weekdays (with seconds)
const DefaultDailySchedule = "0 0 18 * * 1-5"

// DailyPipelineJobName identifies the job in the scheduler
const DailyPipelineJobName = "daily_pipeline"

// PipelineRunner runs the ordered daily stages for an as-of date
type PipelineRunner interface {
	RunDaily(ctx context.Context, asOf time.Time) (*brain.RunResult, error)
}

// DailyPipelineJob runs ingest → indicators → rank for the current trading day
type DailyPipelineJob struct {
	runner   PipelineRunner
	schedule string
	location *time.Location
	now      func() time.Time
	logger   *logger.Logger
}

// NewDailyPipelineJob creates a new daily pipeline job.
// An empty schedule falls back to DefaultDailySchedule; a nil location to UTC.
func NewDailyPipelineJob(runner PipelineRunner, schedule string, loc *time.Location, log *logger.Logger) *DailyPipelineJob {
	if schedule == "" {
		schedule = DefaultDailySchedule
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DailyPipelineJob{
		runner:   runner,
		schedule: schedule,
		location: loc,
		now:      time.Now,
		logger:   log.WithField("job", DailyPipelineJobName),
	}
}

// Name returns the job name
func (j *DailyPipelineJob) Name() string {
	return DailyPipelineJobName
}

// Schedule returns the cron schedule
func (j *DailyPipelineJob) Schedule() string {
	return j.schedule
}

// AsOf resolves today's calendar date in the job's timezone
func (j *DailyPipelineJob) AsOf() time.Time {
	y, m, d := j.now().In(j.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Run executes the daily pipeline for today's date.
// A run already in progress is reported and not retried.
func (j *DailyPipelineJob) Run(ctx context.Context) error {
	asOf := j.AsOf()
	j.logger.WithField("date", contracts.DateKey(asOf)).Info("Starting scheduled pipeline run")

	result, err := j.runner.RunDaily(ctx, asOf)
	if errors.Is(err, brain.ErrRunInProgress) {
		j.logger.Warn("Pipeline already running, skipping scheduled run")
		return nil
	}
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID,
		"heuristic":   len(result.Recommendations.Heuristic),
		"learned":     len(result.Recommendations.Learned),
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Scheduled pipeline run completed")

	return nil
}
