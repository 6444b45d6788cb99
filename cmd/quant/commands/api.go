package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/niftron/internal/api"
	"github.com/wonny/niftron/internal/api/handlers"
	"github.com/wonny/niftron/internal/audit"
	"github.com/wonny/niftron/internal/events"
	"github.com/wonny/niftron/internal/scheduler"
	"github.com/wonny/niftron/internal/scheduler/jobs"
	"github.com/wonny/niftron/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- 추천 / 성과 / 자산곡선 조회 엔드포인트 제공
- 수동 분석 실행 트리거 (시간당 3회 제한)
- --scheduler 옵션으로 일별 파이프라인 스케줄 동시 실행

Endpoints:
  GET  /health                         - Health check
  GET  /api/v1/recommendations         - 일별 Top K 추천
  GET  /api/v1/performance             - 전략별 성과 지표
  GET  /api/v1/charts/equity-curve     - 자산 곡선
  POST /api/v1/run-analysis            - 파이프라인 실행
  GET  /api/v1/data/quality            - 최근 품질 스냅샷

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "scheduler", false, "일별 파이프라인 스케줄러 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== niftron API Server ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	log.WithFields(map[string]interface{}{
		"port":     a.cfg.Port,
		"env":      a.cfg.Env,
		"strategy": a.strategy.Meta.StrategyID,
		"learned":  a.model != nil,
	}).Info("Initializing API server")

	publisher := events.New(a.cfg, log)
	defer publisher.Close()

	orch := a.orchestrator(true, publisher)

	defaults := a.backtestConfig(time.Time{})
	if a.strategy.Backtest.End == "" {
		defaults.End = time.Time{} // 요청 시점 기준
	}

	h := api.Handlers{
		Health:          handlers.NewHealthHandler(a.db, log),
		Recommendations: handlers.NewRecommendationHandler(a.recommendations, redis.NewCache(a.redis, "niftron"), log),
		Performance:     handlers.NewPerformanceHandler(a.backtestEngine(), audit.NewAnalyzer(log), defaults, log),
		Pipeline:        handlers.NewPipelineHandler(orch, redis.NewRateLimiter(a.redis, "niftron"), a.quality, a.cfg.Pipeline.RunTimeout, log),
	}

	router := api.NewRouter(h, log)
	server := api.New(a.cfg, log, router)

	var sched *scheduler.Scheduler
	if apiWithScheduler {
		sched, err = newDailyScheduler(a, orch)
		if err != nil {
			return err
		}
		sched.Start()
	}

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	if sched != nil {
		if next, ok := sched.NextRun(jobs.DailyPipelineJobName); ok {
			fmt.Printf("⏰ Next pipeline run: %s\n", next.Format(time.RFC3339))
		}
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	h.Pipeline.Wait()

	log.Info("Server stopped")
	return nil
}
