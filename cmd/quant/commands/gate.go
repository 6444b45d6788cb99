package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/niftron/internal/s0_data/quality"
)

// gateCmd represents the gate command
var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "데이터 품질 게이트",
	Long: `랭킹 전 데이터 품질 게이트를 확인합니다.

가중치: 가격 커버리지 0.6, 지표 커버리지 0.4
통과 조건: 각 커버리지가 전략의 quality 임계값 이상

Example:
  go run ./cmd/quant gate check --date 2024-03-15
  go run ./cmd/quant gate check --save
  go run ./cmd/quant gate latest`,
}

var (
	gateCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "기준일 품질 검사",
		RunE:  runGateCheck,
	}

	gateLatestCmd = &cobra.Command{
		Use:   "latest",
		Short: "최근 저장된 스냅샷",
		RunE:  runGateLatest,
	}

	// Flags
	gateDate string
	gateSave bool
)

func init() {
	rootCmd.AddCommand(gateCmd)
	gateCmd.AddCommand(gateCheckCmd)
	gateCmd.AddCommand(gateLatestCmd)

	gateCheckCmd.Flags().StringVar(&gateDate, "date", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")
	gateCheckCmd.Flags().BoolVar(&gateSave, "save", false, "스냅샷 저장")
}

func runGateCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	asOf, err := a.parseDateFlag(gateDate)
	if err != nil {
		return err
	}

	printStageHeader("Quality Gate", asOf)
	PrintKeyValue("min price", pct(a.strategy.Quality.MinPriceCoverage), 13)
	PrintKeyValue("min indicator", pct(a.strategy.Quality.MinIndicatorCoverage), 13)
	fmt.Println()

	snapshot, err := a.qualityGate().Check(cmd.Context(), asOf)
	if err != nil {
		return fmt.Errorf("quality check: %w", err)
	}
	printSnapshot(snapshot)

	if gateSave {
		if err := a.quality.SaveSnapshot(cmd.Context(), snapshot); err != nil {
			return err
		}
		PrintSuccess("Snapshot saved")
	}

	if !snapshot.Passed {
		PrintWarning("Ranking is blocked for this date")
	}
	return nil
}

func runGateLatest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.quality.GetLatest(cmd.Context())
	if errors.Is(err, quality.ErrSnapshotNotFound) {
		PrintInfo("No quality snapshot stored yet")
		return nil
	}
	if err != nil {
		return err
	}

	printStageHeader("Latest Snapshot", snapshot.Date)
	printSnapshot(snapshot)
	return nil
}
