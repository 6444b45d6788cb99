package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyPath string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "niftron - NIFTY 종목 추천 분석 파이프라인",
	Long: `niftron Unified CLI

일별 가격 → 지표 → 시그널 → 앙상블 점수 → Top K 추천.
표본 외 백테스트로 학습/휴리스틱 전략을 비교합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant migrate up
  go run ./cmd/quant pipeline --date 2024-03-15
  go run ./cmd/quant backtest --save
  go run ./cmd/quant api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyPath, "strategy", "", "전략 YAML 경로 (기본: STRATEGY_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
