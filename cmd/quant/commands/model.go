package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/internal/ensemble"
)

// modelCmd represents the model command
var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "학습 모델 관리",
	Long: `LEARNED 점수에 사용할 로지스틱 모델을 관리합니다.

Subcommands:
  train  - cutoff 이전 데이터로 학습 후 아티팩트 저장
  show   - 현재 아티팩트 정보`,
}

var (
	modelTrainCmd = &cobra.Command{
		Use:   "train",
		Short: "모델 학습",
		Long: `저장된 지표와 가격으로 forward return 라벨을 만들고
시간순 교차검증(셔플 없음) 후 전체 학습 구간으로 최종 모델을 학습합니다.

Flags:
  --out      아티팩트 경로 (기본: MODEL_PATH 또는 전략 artifact_path)
  --version  모델 버전 (기본: <strategy_id>-<cutoff>)

Example:
  go run ./cmd/quant model train
  go run ./cmd/quant model train --out models/learned.json --version v2`,
		RunE: runModelTrain,
	}

	modelShowCmd = &cobra.Command{
		Use:   "show",
		Short: "아티팩트 정보",
		RunE:  runModelShow,
	}

	// Flags
	modelOut     string
	modelVersion string
)

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelTrainCmd)
	modelCmd.AddCommand(modelShowCmd)

	modelTrainCmd.Flags().StringVar(&modelOut, "out", "", "아티팩트 경로")
	modelTrainCmd.Flags().StringVar(&modelVersion, "version", "", "모델 버전")
}

func runModelTrain(cmd *cobra.Command, args []string) error {
	fmt.Println("=== niftron Model Training ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out := modelOut
	if out == "" {
		out = a.modelPath()
	}
	if out == "" {
		return fmt.Errorf("no artifact path: set --out, MODEL_PATH or model.artifact_path")
	}

	training := a.strategy.Training
	cutoff := training.CutoffDate()
	version := modelVersion
	if version == "" {
		version = fmt.Sprintf("%s-%s", a.strategy.Meta.StrategyID, training.Cutoff)
	}

	ctx := cmd.Context()
	indicatorRows, err := a.indicators.GetRange(ctx, time.Time{}, cutoff)
	if err != nil {
		return fmt.Errorf("load indicators: %w", err)
	}
	// forward return 라벨은 cutoff 이후 가격도 필요
	prices, err := a.prices.GetCloses(ctx, time.Time{}, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}

	labels := ensemble.LabelConfig{
		HorizonDays: a.strategy.Labels.HorizonDays,
		Threshold:   a.strategy.Labels.Threshold,
	}
	rows := ensemble.PrepareDataset(indicatorRows, prices, labels)
	ensemble.SortChronologically(rows)

	fmt.Printf("\n📅 Cutoff: %s\n", contracts.DateKey(cutoff))
	fmt.Printf("📊 Stocks: %d  Labelled rows: %d\n\n", len(indicatorRows), len(rows))

	model, report, err := ensemble.NewTrainer(a.log).Train(rows, ensemble.TrainConfig{
		Cutoff:       cutoff,
		Folds:        training.Folds,
		Epochs:       training.Epochs,
		LearningRate: training.LearningRate,
		L2:           training.L2,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("train model: %w", err)
	}

	widths := []int{6, 10, 10, 8, 10}
	PrintTableHeader([]string{"FOLD", "TRAIN", "TEST", "F1", "ACCURACY"}, widths)
	for _, f := range report.Folds {
		PrintTableRow([]string{
			fmt.Sprintf("%d", f.Fold),
			fmt.Sprintf("%d", f.TrainRows),
			fmt.Sprintf("%d", f.TestRows),
			fmt.Sprintf("%.3f", f.F1),
			pct(f.Accuracy),
		}, widths)
	}
	fmt.Println()
	PrintKeyValue("Rows", fmt.Sprintf("%d", report.Rows), 13)
	PrintKeyValue("Positive Rate", pct(report.PositiveRate), 13)
	PrintKeyValue("Mean F1", fmt.Sprintf("%.3f", report.MeanF1), 13)
	fmt.Println()

	if err := ensemble.SaveModel(out, model); err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("Model %s saved to %s", model.Version(), out))
	return nil
}

func runModelShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.model == nil {
		PrintWarning(fmt.Sprintf("No learned model at %q, LEARNED recommendations are disabled", a.modelPath()))
		return nil
	}

	m := a.model
	PrintKeyValue("Path", a.modelPath(), 15)
	PrintKeyValue("Version", m.Version(), 15)
	PrintKeyValue("Trained Through", m.TrainedThrough, 15)
	PrintKeyValue("Created", m.CreatedAt.Format(time.RFC3339), 15)
	PrintKeyValue("Intercept", fmt.Sprintf("%.4f", m.Intercept), 15)
	PrintKeyValue("w(trend)", fmt.Sprintf("%.4f", m.Coefficients.TrendSignal), 15)
	PrintKeyValue("w(momentum)", fmt.Sprintf("%.4f", m.Coefficients.MomentumScore), 15)
	PrintKeyValue("w(macd)", fmt.Sprintf("%.4f", m.Coefficients.MACDScore), 15)
	return nil
}
