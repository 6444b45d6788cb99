package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/niftron/internal/audit"
	"github.com/wonny/niftron/internal/contracts"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "표본 외 백테스트",
	Long: `표본 외 기간의 일별 Top K 동일가중 포트폴리오를 시뮬레이션하고
전략별 성과 지표와 LEARNED vs HEURISTIC Welch t-검정을 출력합니다.

전략:
- LEARNED / HEURISTIC  앙상블 점수 Top K
- TREND / MOMENTUM / MACD  단일 시그널 Top K
- BENCHMARK  전 종목 동일가중

Flags:
  --from   시작 날짜 (YYYY-MM-DD, 기본: 전략 oos_start)
  --to     종료 날짜 (YYYY-MM-DD, 기본: 전략 end 또는 오늘)
  --save   성과 지표를 performance_reports에 저장

Example:
  go run ./cmd/quant backtest
  go run ./cmd/quant backtest --from 2023-01-01 --to 2023-12-31 --save`,
	RunE: runBacktest,
}

var (
	// Flags
	backtestFrom string
	backtestTo   string
	backtestSave bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "종료 날짜 (YYYY-MM-DD)")
	backtestCmd.Flags().BoolVar(&backtestSave, "save", false, "성과 지표 저장")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== niftron Backtest Engine ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	today, _ := a.parseDateFlag("")
	config := a.backtestConfig(today)

	if backtestFrom != "" {
		if config.Start, err = contracts.ParseDay(backtestFrom); err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
	}
	if backtestTo != "" {
		if config.End, err = contracts.ParseDay(backtestTo); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}
	if config.End.Before(config.Start) {
		return fmt.Errorf("end %s is before start %s", contracts.DateKey(config.End), contracts.DateKey(config.Start))
	}

	fmt.Printf("\n📅 Period: %s ~ %s\n", contracts.DateKey(config.Start), contracts.DateKey(config.End))
	fmt.Printf("📦 Portfolio Size: %d\n", a.strategy.Backtest.PortfolioSize)
	fmt.Printf("🏷  Labels: %d days, > %.1f%%\n\n", config.Labels.HorizonDays, config.Labels.Threshold*100)

	fmt.Println("🚀 Starting backtest...")
	start := time.Now()

	result, err := a.backtestEngine().Run(cmd.Context(), config)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	report, err := audit.NewAnalyzer(a.log).Report(result.Strategies, result.Benchmark)
	if err != nil {
		return fmt.Errorf("analyze backtest: %w", err)
	}
	report.ModelVersion = result.ModelVersion

	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Model: %s   Observations: %d   Cached: %t\n", result.ModelVersion, result.Observations, result.Cached)
	PrintDoubleSeparator()
	printMetrics(report.Metrics)

	if report.TTest != nil {
		t := report.TTest
		fmt.Printf("\nWelch t-test %s vs %s: t=%.3f df=%.1f p=%.4f\n", t.A, t.B, t.T, t.DF, t.PValue)
	}

	if backtestSave {
		if err := a.reports.SaveReport(cmd.Context(), report); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		PrintSuccess(fmt.Sprintf("Report saved (%d strategies)", len(report.Metrics)))
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("Backtest completed in %.2fs", time.Since(start).Seconds()))
	return nil
}

func printMetrics(metrics []*contracts.PerformanceMetrics) {
	widths := []int{10, 6, 9, 8, 8, 8, 8, 8, 8, 7, 7}
	PrintTableHeader([]string{"STRATEGY", "DAYS", "TOTAL", "CAGR", "VOL", "SHARPE", "SORTINO", "CALMAR", "MDD", "BETA", "WIN"}, widths)
	for _, m := range metrics {
		PrintTableRow([]string{
			m.Strategy,
			strconv.Itoa(m.Periods),
			pct(m.TotalReturn),
			pct(m.CAGR),
			pct(m.AnnualizedVolatility),
			fmt.Sprintf("%.2f", m.Sharpe),
			fmt.Sprintf("%.2f", m.Sortino),
			fmt.Sprintf("%.2f", m.Calmar),
			pct(m.MaxDrawdown),
			fmt.Sprintf("%.2f", m.Beta),
			pct(m.WinRate),
		}, widths)
	}
}
