package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

// Counter supplies the counts the gate needs
type Counter interface {
	Count(ctx context.Context) (int, error)
	CountPricesOn(ctx context.Context, date time.Time) (int, error)
	CountIndicatorsOn(ctx context.Context, date time.Time) (int, error)
}

// Config holds quality gate thresholds
type Config struct {
	MinPriceCoverage     float64 `yaml:"min_price_coverage"`     // 0.8
	MinIndicatorCoverage float64 `yaml:"min_indicator_coverage"` // 0.0
}

// DefaultConfig returns the thresholds used when the strategy file omits them
func DefaultConfig() Config {
	return Config{MinPriceCoverage: 0.8}
}

// 가중치 (합계 = 1.0)
var weights = map[string]float64{
	contracts.CoveragePrice:     0.6,
	contracts.CoverageIndicator: 0.4,
}

// QualityGate validates data coverage for a date and produces snapshots
type QualityGate struct {
	counter Counter
	config  Config
	logger  *logger.Logger
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(counter Counter, config Config, log *logger.Logger) *QualityGate {
	return &QualityGate{
		counter: counter,
		config:  config,
		logger:  log.WithField("module", "quality_gate"),
	}
}

// Check measures coverage on date and decides whether the data is usable
// ⭐ SSOT: 지표 → 랭킹 전 품질 검증
func (g *QualityGate) Check(ctx context.Context, date time.Time) (*contracts.DataQualitySnapshot, error) {
	date = contracts.Day(date)

	total, err := g.counter.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count total stocks: %w", err)
	}

	prices, err := g.counter.CountPricesOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("check price coverage: %w", err)
	}

	features, err := g.counter.CountIndicatorsOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("check indicator coverage: %w", err)
	}

	snapshot := Evaluate(date, total, prices, features, g.config)

	g.logger.WithFields(map[string]interface{}{
		"date":      contracts.DateKey(date),
		"total":     snapshot.TotalStocks,
		"valid":     snapshot.ValidStocks,
		"price":     snapshot.Coverage[contracts.CoveragePrice],
		"indicator": snapshot.Coverage[contracts.CoverageIndicator],
		"score":     snapshot.QualityScore,
		"passed":    snapshot.Passed,
	}).Info("Quality check completed")

	return snapshot, nil
}

// Evaluate builds a snapshot from raw counts
func Evaluate(date time.Time, total, withPrice, withIndicators int, cfg Config) *contracts.DataQualitySnapshot {
	snapshot := &contracts.DataQualitySnapshot{
		Date:        contracts.Day(date),
		TotalStocks: total,
		ValidStocks: withIndicators,
		Coverage: map[string]float64{
			contracts.CoveragePrice:     ratio(withPrice, total),
			contracts.CoverageIndicator: ratio(withIndicators, total),
		},
	}

	for key, weight := range weights {
		snapshot.QualityScore += snapshot.Coverage[key] * weight
	}

	snapshot.Passed = total > 0 &&
		snapshot.Coverage[contracts.CoveragePrice] >= cfg.MinPriceCoverage &&
		snapshot.Coverage[contracts.CoverageIndicator] >= cfg.MinIndicatorCoverage

	return snapshot
}

func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	r := float64(n) / float64(total)
	if r > 1 {
		return 1
	}
	return r
}
