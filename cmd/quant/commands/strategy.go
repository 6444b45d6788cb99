package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/niftron/internal/ensemble"
	"github.com/wonny/niftron/internal/strategyconfig"
	"github.com/wonny/niftron/pkg/config"
)

// strategyCmd represents the strategy command
var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "전략 설정 검증",
	Long: `전략 YAML을 읽어 검증하고 해시와 주요 값을 출력합니다.
알 수 없는 필드는 오류, 권장 범위 위반은 경고로 표시됩니다.

Example:
  go run ./cmd/quant strategy validate
  go run ./cmd/quant strategy validate config/strategy/niftron.yaml`,
}

var strategyValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "전략 YAML 검증",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStrategyValidate,
}

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyValidateCmd)
}

func runStrategyValidate(cmd *cobra.Command, args []string) error {
	path := strategyPath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.Pipeline.StrategyConfigPath
	}

	s, data, err := strategyconfig.Load(path)
	if err != nil {
		PrintError(fmt.Sprintf("%s: %v", path, err))
		return err
	}

	modelVersion := "none"
	if m, err := ensemble.LoadModel(s.Model.ArtifactPath); err == nil {
		modelVersion = m.Version()
	}

	snapshot, err := strategyconfig.NewDecisionSnapshot(s, data, modelVersion)
	if err != nil {
		return err
	}

	PrintDoubleSeparator()
	fmt.Printf("  %s (v%s)\n", s.Meta.StrategyID, s.Meta.Version)
	PrintSeparator()
	PrintKeyValue("Path", path, 14)
	PrintKeyValue("Hash", snapshot.ConfigHash, 14)
	PrintKeyValue("Timezone", s.Meta.Timezone, 14)
	PrintKeyValue("Top K", fmt.Sprintf("%d", s.Ranking.TopK), 14)
	PrintKeyValue("Label", fmt.Sprintf("%dd > %s", s.Labels.HorizonDays, pct(s.Labels.Threshold)), 14)
	PrintKeyValue("Train Cutoff", s.Training.Cutoff, 14)
	PrintKeyValue("OOS Start", s.Backtest.OOSStart, 14)
	PrintKeyValue("Portfolio", fmt.Sprintf("%d", s.Backtest.PortfolioSize), 14)
	PrintKeyValue("Cache TTL", s.Backtest.CacheTTL.String(), 14)
	PrintKeyValue("Model", fmt.Sprintf("%s (%s)", s.Model.ArtifactPath, snapshot.ModelVersion), 14)
	PrintSeparator()

	warnings := strategyconfig.Warn(s)
	for _, w := range warnings {
		fmt.Printf("⚠️  [%s] %s\n", w.Code, w.Message)
	}

	PrintSuccess(fmt.Sprintf("Strategy valid (%d warnings)", len(warnings)))
	return nil
}
