package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/internal/ensemble"
	"github.com/wonny/niftron/pkg/logger"
	"github.com/wonny/niftron/pkg/redis"
)

// Strategy names one replayed selection rule
type Strategy string

const (
	StrategyLearned   Strategy = Strategy(contracts.ModelLearned)
	StrategyHeuristic Strategy = Strategy(contracts.ModelHeuristic)
	StrategyTrend     Strategy = "TREND"
	StrategyMomentum  Strategy = "MOMENTUM"
	StrategyMACD      Strategy = "MACD"
	StrategyBenchmark Strategy = "BENCHMARK"
)

// Strategies returns the simulated strategies in report order
func Strategies() []Strategy {
	return []Strategy{StrategyLearned, StrategyHeuristic, StrategyTrend, StrategyMomentum, StrategyMACD}
}

// warm-up slack so the first out-of-sample row still has a predecessor
const lookbackDays = 14

// forwardDays covers horizon trading days past the window end in calendar days
func forwardDays(horizon int) int {
	return horizon*2 + lookbackDays
}

// Config holds backtest configuration
type Config struct {
	Start       time.Time
	End         time.Time
	Labels      ensemble.LabelConfig
	CacheTTL    time.Duration
	Fingerprint string // strategy configuration hash
}

// Result holds one full simulation over [Start, End]
type Result struct {
	Start        time.Time                `json:"start"`
	End          time.Time                `json:"end"`
	ModelVersion string                   `json:"model_version"`
	Observations int                      `json:"observations"`
	Strategies   []contracts.ReturnSeries `json:"strategies"`
	Benchmark    contracts.ReturnSeries   `json:"benchmark"`
	GeneratedAt  time.Time                `json:"generated_at"`
	Cached       bool                     `json:"cached"`
}

// Series returns the series for a strategy, if simulated
func (r *Result) Series(s Strategy) (contracts.ReturnSeries, bool) {
	for _, series := range r.Strategies {
		if series.Name == string(s) {
			return series, true
		}
	}
	return contracts.ReturnSeries{}, false
}

// Engine runs backtesting simulations
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	indicators contracts.IndicatorRepository
	prices     contracts.PriceRepository
	scorer     *ensemble.Scorer
	simulator  *Simulator
	cache      *redis.Cache
	logger     *logger.Logger
}

// NewEngine creates a new backtest engine. cache may be nil.
func NewEngine(
	indicators contracts.IndicatorRepository,
	prices contracts.PriceRepository,
	scorer *ensemble.Scorer,
	simulator *Simulator,
	cache *redis.Cache,
	log *logger.Logger,
) *Engine {
	return &Engine{
		indicators: indicators,
		prices:     prices,
		scorer:     scorer,
		simulator:  simulator,
		cache:      cache,
		logger:     log.WithField("module", "backtest"),
	}
}

// CacheKey identifies a simulation by window, strategy configuration and model version
func (e *Engine) CacheKey(config Config) string {
	fingerprint := fmt.Sprintf("%s:%s:k%d", config.Fingerprint, e.scorer.ModelVersion(), e.simulator.PortfolioSize())
	return redis.BacktestKey(contracts.DateKey(config.Start), contracts.DateKey(config.End), fingerprint)
}

// Run executes the out-of-sample simulation, serving a cached result when one is fresh
func (e *Engine) Run(ctx context.Context, config Config) (*Result, error) {
	config.Start = contracts.Day(config.Start)
	config.End = contracts.Day(config.End)
	if config.End.Before(config.Start) {
		return nil, fmt.Errorf("backtest end %s precedes start %s",
			contracts.DateKey(config.End), contracts.DateKey(config.Start))
	}

	key := e.CacheKey(config)
	if e.cache != nil {
		var cached Result
		hit, err := e.cache.Get(ctx, key, &cached)
		if err != nil {
			e.logger.WithError(err).Warn("Backtest cache read failed")
		}
		if hit {
			cached.Cached = true
			e.logger.WithField("key", key).Info("Backtest served from cache")
			return &cached, nil
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"start_date":    contracts.DateKey(config.Start),
		"end_date":      contracts.DateKey(config.End),
		"model_version": e.scorer.ModelVersion(),
	}).Info("Starting backtest")

	startTime := time.Now()

	rows, err := e.loadDataset(ctx, config)
	if err != nil {
		return nil, err
	}

	result, err := e.Simulate(ctx, rows)
	if err != nil {
		return nil, err
	}
	result.Start = config.Start
	result.End = config.End

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, result, config.CacheTTL); err != nil {
			e.logger.WithError(err).Warn("Backtest cache write failed")
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"observations": result.Observations,
		"periods":      result.Benchmark.Len(),
		"duration_ms":  time.Since(startTime).Milliseconds(),
	}).Info("Backtest completed")

	return result, nil
}

// Simulate scores labelled rows and replays every strategy plus the benchmark.
// The learned strategy is omitted when no model is available.
func (e *Engine) Simulate(ctx context.Context, rows []ensemble.LabeledRow) (*Result, error) {
	obs := make(map[Strategy][]Observation)
	bench := make([]Observation, 0, len(rows))

	for _, row := range rows {
		score := e.scorer.Score(row.Signal)
		base := Observation{StockID: row.Signal.StockID, Date: row.Signal.Date, ForwardReturn: row.DailyReturn}

		add := func(s Strategy, v float64) {
			o := base
			o.Score = v
			obs[s] = append(obs[s], o)
		}

		add(StrategyHeuristic, score.HeuristicScore)
		if learned, ok := score.Score(contracts.ModelLearned); ok {
			add(StrategyLearned, learned)
		}
		add(StrategyTrend, float64(row.Signal.TrendSignal))
		add(StrategyMomentum, row.Signal.MomentumScore)
		add(StrategyMACD, float64(row.Signal.MACDScore))
		bench = append(bench, base)
	}

	result := &Result{
		ModelVersion: e.scorer.ModelVersion(),
		Observations: len(rows),
		GeneratedAt:  time.Now().UTC(),
	}

	for _, s := range Strategies() {
		if s == StrategyLearned && !e.scorer.Learned() {
			continue
		}
		series, err := e.simulator.Run(ctx, string(s), obs[s])
		if err != nil {
			return nil, fmt.Errorf("failed to simulate %s: %w", s, err)
		}
		result.Strategies = append(result.Strategies, series)
	}

	benchmark, err := e.simulator.Benchmark(ctx, string(StrategyBenchmark), bench)
	if err != nil {
		return nil, fmt.Errorf("failed to simulate benchmark: %w", err)
	}
	result.Benchmark = benchmark

	return result, nil
}

// loadDataset reads indicators and prices and keeps labelled rows dated within the window.
// Data past End is read so the last window dates still get their forward returns.
func (e *Engine) loadDataset(ctx context.Context, config Config) ([]ensemble.LabeledRow, error) {
	labels := config.Labels
	if labels.HorizonDays == 0 {
		labels = ensemble.DefaultLabelConfig
	}

	from := config.Start.AddDate(0, 0, -lookbackDays)
	through := config.End.AddDate(0, 0, forwardDays(labels.HorizonDays))

	indicators, err := e.indicators.GetRange(ctx, from, through)
	if err != nil {
		return nil, fmt.Errorf("failed to load indicators: %w", err)
	}

	prices, err := e.prices.GetCloses(ctx, from, through)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	all := ensemble.PrepareDataset(indicators, prices, labels)

	rows := all[:0]
	for _, r := range all {
		d := r.Signal.Date
		if !d.Before(config.Start) && !d.After(config.End) {
			rows = append(rows, r)
		}
	}
	return rows, nil
}
