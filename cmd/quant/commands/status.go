package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/internal/s0_data/quality"
	"github.com/wonny/niftron/internal/selection"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "시스템 상태 조회",
	Long: `DB / Redis / 모델 / 최근 실행 결과를 표시합니다.

표시 정보:
- Database: 응답 시간, 커넥션 풀
- Redis: 활성 여부
- Universe: 등록 종목 수
- 최근 추천일, 최근 품질 스냅샷

Example:
  go run ./cmd/quant status
  go run ./cmd/quant status --watch 5s`,
	RunE: runStatus,
}

var (
	// Status flags
	statusWatch time.Duration
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().DurationVar(&statusWatch, "watch", 0, "갱신 간격 (0이면 1회)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if statusWatch <= 0 {
		return displayStatus(cmd.Context(), a)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(statusWatch)
	defer ticker.Stop()

	if err := displayStatus(cmd.Context(), a); err != nil {
		return err
	}

	for {
		select {
		case <-sigChan:
			fmt.Println("\n✅ Status monitor stopped")
			return nil

		case <-ticker.C:
			// Clear screen (ANSI escape code)
			fmt.Print("\033[H\033[2J")
			fmt.Printf("Refresh: %v | Last update: %s\n\n", statusWatch, time.Now().Format("15:04:05"))

			if err := displayStatus(cmd.Context(), a); err != nil {
				return err
			}
		}
	}
}

func displayStatus(ctx context.Context, a *app) error {
	fmt.Println("=== niftron Status ===")
	fmt.Println()

	fmt.Println("🗄  Database")
	PrintSeparator()
	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		PrintError(fmt.Sprintf("unhealthy: %s", health.Error))
	} else {
		PrintKeyValue("Response", health.ResponseTime.String(), 10)
		PrintKeyValue("Conns", fmt.Sprintf("%d/%d (idle %d)", health.Stats.AcquiredConns, health.Stats.MaxConns, health.Stats.IdleConns), 10)
	}
	fmt.Println()

	fmt.Println("⚡ Redis")
	PrintSeparator()
	PrintKeyValue("Enabled", fmt.Sprintf("%t", a.redis.Enabled()), 10)
	fmt.Println()

	fmt.Println("📈 Pipeline")
	PrintSeparator()
	if n, err := a.stocks.Count(ctx); err == nil {
		PrintKeyValue("Universe", fmt.Sprintf("%d stocks", n), 10)
	}

	model := "none (heuristic only)"
	if a.model != nil {
		model = a.model.Version()
	}
	PrintKeyValue("Model", model, 10)

	latest, err := a.recommendations.LatestDate(ctx)
	switch {
	case err == nil:
		PrintKeyValue("Ranked", contracts.DateKey(latest), 10)
	case errors.Is(err, selection.ErrNoRecommendations):
		PrintKeyValue("Ranked", "never", 10)
	default:
		return err
	}

	snapshot, err := a.quality.GetLatest(ctx)
	switch {
	case err == nil:
		state := "passed"
		if !snapshot.Passed {
			state = "blocked"
		}
		PrintKeyValue("Quality", fmt.Sprintf("%s %s (%.3f)", contracts.DateKey(snapshot.Date), state, snapshot.QualityScore), 10)
	case errors.Is(err, quality.ErrSnapshotNotFound):
		PrintKeyValue("Quality", "no snapshot", 10)
	default:
		return err
	}
	fmt.Println()

	return nil
}
