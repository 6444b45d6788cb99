package commands

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/internal/events"
)

var (
	pipelineCmd = &cobra.Command{
		Use:   "pipeline",
		Short: "일별 파이프라인 실행 (ingest → indicators → rank)",
		Long: `거래일 하나에 대해 전체 파이프라인을 순서대로 실행합니다.
앞 단계가 실패하면 이후 단계는 실행되지 않습니다.

Flags:
  --date         기준일 (YYYY-MM-DD, 기본: 오늘)
  --skip-ingest  CSV 적재 생략 (DB에 가격이 이미 있을 때)

Example:
  go run ./cmd/quant pipeline --date 2024-03-15
  go run ./cmd/quant pipeline --skip-ingest`,
		RunE: runPipeline,
	}

	ingestCmd = &cobra.Command{
		Use:   "ingest",
		Short: "가격 CSV 적재",
		Long: `UNIVERSE_FILE의 종목을 등록하고 DATA_DIR/<SYMBOL>.csv 일봉을 적재합니다.

Example:
  go run ./cmd/quant ingest --date 2024-03-15`,
		RunE: runIngest,
	}

	indicatorsCmd = &cobra.Command{
		Use:   "indicators",
		Short: "지표 계산 및 저장",
		Long: `기준일까지의 가격으로 SMA/EMA/RSI/MACD/모멘텀을 계산해 저장하고
데이터 품질 스냅샷을 기록합니다.

Example:
  go run ./cmd/quant indicators --date 2024-03-15`,
		RunE: runIndicators,
	}

	rankCmd = &cobra.Command{
		Use:   "rank",
		Short: "시그널/앙상블 점수 → Top K 추천",
		Long: `품질 게이트 통과 후 시그널과 앙상블 점수를 계산하고
모델별 Top K 추천을 저장합니다.

Example:
  go run ./cmd/quant rank --date 2024-03-15`,
		RunE: runRank,
	}

	// Flags
	pipelineDate       string
	pipelineSkipIngest bool
)

func init() {
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(indicatorsCmd)
	rootCmd.AddCommand(rankCmd)

	for _, c := range []*cobra.Command{pipelineCmd, ingestCmd, indicatorsCmd, rankCmd} {
		c.Flags().StringVar(&pipelineDate, "date", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")
	}
	pipelineCmd.Flags().BoolVar(&pipelineSkipIngest, "skip-ingest", false, "CSV 적재 생략")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	asOf, err := a.parseDateFlag(pipelineDate)
	if err != nil {
		return err
	}

	publisher := events.New(a.cfg, a.log)
	defer publisher.Close()

	printStageHeader("Daily Pipeline", asOf)

	result, err := a.orchestrator(!pipelineSkipIngest, publisher).RunDaily(cmd.Context(), asOf)
	if result != nil {
		printStages(result.Stages)
		if result.QualitySnapshot != nil {
			printSnapshot(result.QualitySnapshot)
		}
		if result.Recommendations != nil {
			printRecommendations(result.Recommendations)
		}
	}
	if err != nil {
		PrintError(err.Error())
		return err
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("Run %s completed in %.2fs", result.RunID, result.Duration.Seconds()))
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	asOf, err := a.parseDateFlag(pipelineDate)
	if err != nil {
		return err
	}

	printStageHeader("Ingest", asOf)
	PrintKeyValue("Data Dir", a.cfg.Pipeline.DataDir, 10)
	PrintKeyValue("Universe", a.cfg.Pipeline.UniverseFile, 10)
	fmt.Println()

	report, err := a.orchestrator(true, nil).Ingest(cmd.Context(), asOf)
	if report != nil {
		printBatchReport(report)
	}
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess("Ingest completed")
	return nil
}

func runIndicators(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	asOf, err := a.parseDateFlag(pipelineDate)
	if err != nil {
		return err
	}

	printStageHeader("Indicators", asOf)

	result, err := a.orchestrator(false, nil).ComputeIndicators(cmd.Context(), asOf)
	if result != nil {
		if result.Report != nil {
			printBatchReport(result.Report)
		}
		PrintKeyValue("Rows Saved", strconv.Itoa(result.Rows), 12)
		if result.Quality != nil {
			printSnapshot(result.Quality)
		}
	}
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess("Indicators completed")
	return nil
}

func runRank(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	asOf, err := a.parseDateFlag(pipelineDate)
	if err != nil {
		return err
	}

	publisher := events.New(a.cfg, a.log)
	defer publisher.Close()

	printStageHeader("Rank", asOf)

	result, err := a.orchestrator(false, publisher).ScoreAndRank(cmd.Context(), asOf)
	if result != nil {
		if result.Quality != nil {
			printSnapshot(result.Quality)
		}
		if result.Set != nil {
			PrintKeyValue("Scored", strconv.Itoa(result.Scored), 10)
			printFiltered(result.Filtered)
			printRecommendations(result.Set)
		}
	}
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess("Rank completed")
	return nil
}

func printStageHeader(title string, asOf time.Time) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
	fmt.Printf("  As Of     : %s\n", contracts.DateKey(asOf))
	fmt.Printf("  Started   : %s\n", time.Now().Format("2006-01-02 15:04:05"))
	PrintSeparator()
}

func printStages(stages []contracts.PipelineResult) {
	widths := []int{12, 8, 8, 8, 10}
	PrintTableHeader([]string{"STAGE", "OK", "IN", "OUT", "MS"}, widths)
	for _, s := range stages {
		ok := "✅"
		if !s.Success {
			ok = "❌"
		}
		PrintTableRow([]string{
			s.Stage.String(), ok,
			strconv.Itoa(s.InputCount), strconv.Itoa(s.OutputCount),
			strconv.FormatInt(s.Duration, 10),
		}, widths)
	}
	fmt.Println()
}

func printBatchReport(report *contracts.BatchReport) {
	PrintKeyValue("Succeeded", strconv.Itoa(report.Count(contracts.StockSucceeded)), 10)
	PrintKeyValue("Skipped", strconv.Itoa(report.Count(contracts.StockSkipped)), 10)
	PrintKeyValue("Failed", strconv.Itoa(report.Count(contracts.StockFailed)), 10)

	for _, f := range report.Failures() {
		fmt.Printf("   ❌ %s (#%d): %s\n", f.Symbol, f.StockID, f.Reason)
	}
	fmt.Println()
}

func printSnapshot(s *contracts.DataQualitySnapshot) {
	status := "PASSED"
	if !s.Passed {
		status = "BLOCKED"
	}
	fmt.Printf("Quality Gate: %s (score %.3f, %d/%d stocks)\n", status, s.QualityScore, s.ValidStocks, s.TotalStocks)
	for _, key := range []string{contracts.CoveragePrice, contracts.CoverageIndicator} {
		PrintKeyValue(key, fmt.Sprintf("%.1f%%", s.Coverage[key]*100), 10)
	}
	fmt.Println()
}

func printFiltered(filtered map[string]int) {
	reasons := make([]string, 0, len(filtered))
	for reason := range filtered {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		PrintKeyValue("filtered:"+reason, strconv.Itoa(filtered[reason]), 10)
	}
	fmt.Println()
}

func printRecommendations(set *contracts.RecommendationSet) {
	groups := []struct {
		title string
		recs  []contracts.Recommendation
	}{
		{"HEURISTIC", set.Heuristic},
		{"LEARNED", set.Learned},
	}

	widths := []int{4, 14, 24, 8, 6, 8, 8}
	for _, g := range groups {
		fmt.Printf("%s (%d)\n", g.title, len(g.recs))
		if len(g.recs) == 0 {
			fmt.Println()
			continue
		}
		PrintTableHeader([]string{"#", "SYMBOL", "COMPANY", "SCORE", "TREND", "MOM", "MACD"}, widths)
		for _, r := range g.recs {
			PrintTableRow([]string{
				strconv.Itoa(r.Rank),
				r.Symbol,
				truncate(r.CompanyName, widths[2]),
				fmt.Sprintf("%.2f", r.Score),
				strconv.Itoa(r.Breakdown.TrendSignal),
				fmt.Sprintf("%.2f", r.Breakdown.MomentumScore),
				strconv.Itoa(r.Breakdown.MACDScore),
			}, widths)
		}
		fmt.Println()
	}
}
