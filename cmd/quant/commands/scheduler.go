package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/niftron/internal/brain"
	"github.com/wonny/niftron/internal/events"
	"github.com/wonny/niftron/internal/scheduler"
	"github.com/wonny/niftron/internal/scheduler/jobs"
	"github.com/wonny/niftron/pkg/config"
	"github.com/wonny/niftron/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `일별 파이프라인 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run daily_pipeline`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- daily_pipeline: 평일 18:00 (PIPELINE_SCHEDULE, PIPELINE_TIMEZONE 기준)
  ingest → indicators → rank, 실패 시 1회 재시도

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// newDailyScheduler registers the daily pipeline job on a new scheduler
func newDailyScheduler(a *app, orch *brain.Orchestrator) (*scheduler.Scheduler, error) {
	loc := a.cfg.Location()
	sched := scheduler.New(a.log,
		scheduler.WithLocation(loc),
		scheduler.WithTimeout(a.cfg.Pipeline.RunTimeout),
	)

	job := jobs.NewDailyPipelineJob(orch, a.cfg.Pipeline.Schedule, loc, a.log)
	if err := sched.AddJob(job); err != nil {
		return nil, fmt.Errorf("add job: %w", err)
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== niftron Scheduler ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	publisher := events.New(a.cfg, a.log)
	defer publisher.Close()

	sched, err := newDailyScheduler(a, a.orchestrator(true, publisher))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		if next, ok := sched.NextRun(jobName); ok {
			fmt.Printf("  - %s (next: %s)\n", jobName, next.Format(time.RFC3339))
		} else {
			fmt.Printf("  - %s\n", jobName)
		}
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	printJobStats(sched)
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	job := jobs.NewDailyPipelineJob(nil, cfg.Pipeline.Schedule, cfg.Location(), logger.Nop())

	widths := []int{20, 20, 16}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "TIMEZONE"}, widths)
	PrintTableRow([]string{job.Name(), job.Schedule(), cfg.Location().String()}, widths)

	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	jobName := args[0]
	if jobName != jobs.DailyPipelineJobName {
		return fmt.Errorf("job %s not found", jobName)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	publisher := events.New(a.cfg, a.log)
	defer publisher.Close()

	job := jobs.NewDailyPipelineJob(a.orchestrator(true, publisher), a.cfg.Pipeline.Schedule, a.cfg.Location(), a.log)
	fmt.Printf("Running job: %s (as of %s)\n", jobName, job.AsOf().Format("2006-01-02"))

	start := time.Now()
	if err := job.Run(cmd.Context()); err != nil {
		PrintError(fmt.Sprintf("%s failed: %v", jobName, err))
		return err
	}

	PrintSuccess(fmt.Sprintf("%s completed in %.2fs", jobName, time.Since(start).Seconds()))
	return nil
}

func printJobStats(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()

	for _, jobName := range sched.GetAllJobs() {
		stat := stats[jobName]
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.LastError != "" {
			fmt.Printf("   Last Error: %s\n", stat.LastError)
		}
		fmt.Println()
	}
}
