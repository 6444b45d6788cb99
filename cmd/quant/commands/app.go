package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/niftron/internal/audit"
	"github.com/wonny/niftron/internal/backtest"
	"github.com/wonny/niftron/internal/brain"
	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/internal/ensemble"
	"github.com/wonny/niftron/internal/indicators"
	"github.com/wonny/niftron/internal/s0_data"
	"github.com/wonny/niftron/internal/s0_data/quality"
	"github.com/wonny/niftron/internal/selection"
	"github.com/wonny/niftron/internal/strategyconfig"
	"github.com/wonny/niftron/pkg/config"
	"github.com/wonny/niftron/pkg/database"
	"github.com/wonny/niftron/pkg/logger"
	"github.com/wonny/niftron/pkg/redis"
)

// app holds everything a command needs after bootstrap
// ⭐ SSOT: 컴포넌트 조립은 여기서만
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	db           *database.DB
	redis        *redis.Client
	strategy     *strategyconfig.Config
	strategyHash string
	model        *ensemble.LogisticModel // nil이면 휴리스틱만

	stocks          *s0_data.StockRepository
	prices          *s0_data.PriceRepository
	indicators      *s0_data.IndicatorRepository
	quality         *quality.Repository
	recommendations *selection.Repository
	reports         *audit.Repository
}

// newApp loads config and strategy, connects to PostgreSQL and Redis
// and loads the learned model when one is available
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if strategyPath != "" {
		cfg.Pipeline.StrategyConfigPath = strategyPath
	}

	log := logger.New(cfg)

	strategy, _, err := strategyconfig.Load(cfg.Pipeline.StrategyConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", cfg.Pipeline.StrategyConfigPath, err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache")
		rdb = redis.NewFromRedis(nil)
	}

	a := &app{
		cfg:             cfg,
		log:             log,
		db:              db,
		redis:           rdb,
		strategy:        strategy,
		strategyHash:    hash,
		stocks:          s0_data.NewStockRepository(db.Pool),
		prices:          s0_data.NewPriceRepository(db.Pool),
		indicators:      s0_data.NewIndicatorRepository(db.Pool),
		quality:         quality.NewRepository(db.Pool),
		recommendations: selection.NewRepository(db.Pool),
		reports:         audit.NewRepository(db.Pool),
	}

	a.model, err = ensemble.LoadModel(a.modelPath())
	switch {
	case err == nil:
		log.WithField("version", a.model.Version()).Info("Learned model loaded")
	case errors.Is(err, ensemble.ErrModelUnavailable):
		log.WithError(err).Warn("Learned model unavailable")
		a.model = nil
	default:
		a.Close()
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"env":      cfg.Env,
		"strategy": strategy.Meta.StrategyID,
		"hash":     hash[:12],
	}).Debug("Bootstrap complete")

	return a, nil
}

// Close releases the database pool and redis client
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.db.Close()
}

// modelPath prefers MODEL_PATH over the strategy artifact path
func (a *app) modelPath() string {
	if a.cfg.Pipeline.ModelPath != "" {
		return a.cfg.Pipeline.ModelPath
	}
	return a.strategy.Model.ArtifactPath
}

func (a *app) scorer() *ensemble.Scorer {
	// typed nil을 넘기면 Learned()가 true가 됨
	if a.model == nil {
		return ensemble.NewScorer(nil, a.log)
	}
	return ensemble.NewScorer(a.model, a.log)
}

func (a *app) qualityGate() *quality.QualityGate {
	counter := s0_data.NewCoverageCounter(a.stocks, a.prices, a.indicators)
	return quality.NewQualityGate(counter, quality.Config{
		MinPriceCoverage:     a.strategy.Quality.MinPriceCoverage,
		MinIndicatorCoverage: a.strategy.Quality.MinIndicatorCoverage,
	}, a.log)
}

func (a *app) ingestor() *s0_data.Ingestor {
	return s0_data.NewIngestor(a.stocks, a.prices, a.cfg.Pipeline.DataDir, a.cfg.Pipeline.UniverseFile, a.log)
}

// orchestrator wires the daily pipeline. withIngest=false skips the CSV stage.
func (a *app) orchestrator(withIngest bool, publisher contracts.RecommendationPublisher) *brain.Orchestrator {
	var ing *s0_data.Ingestor
	if withIngest {
		ing = a.ingestor()
	}
	return brain.NewOrchestrator(
		ing,
		indicators.NewEngine(a.cfg.Pipeline.Workers, a.log),
		a.qualityGate(),
		a.scorer(),
		selection.NewScreener(a.log),
		selection.NewRanker(a.strategy.Ranking.TopK, a.log),
		publisher,
		a.stocks,
		a.prices,
		a.indicators,
		a.recommendations,
		a.quality,
		a.log,
	)
}

func (a *app) backtestEngine() *backtest.Engine {
	return backtest.NewEngine(
		a.indicators,
		a.prices,
		a.scorer(),
		backtest.NewSimulator(a.strategy.Backtest.PortfolioSize, a.cfg.Pipeline.Workers, a.log),
		redis.NewCache(a.redis, "niftron"),
		a.log,
	)
}

// backtestConfig returns the configured out-of-sample window ending at asOf
func (a *app) backtestConfig(asOf time.Time) backtest.Config {
	return backtest.Config{
		Start: a.strategy.Backtest.OOSStartDate(),
		End:   a.strategy.Backtest.EndDate(asOf),
		Labels: ensemble.LabelConfig{
			HorizonDays: a.strategy.Labels.HorizonDays,
			Threshold:   a.strategy.Labels.Threshold,
		},
		CacheTTL:    a.strategy.Backtest.CacheTTL,
		Fingerprint: a.strategyHash,
	}
}

// parseDateFlag parses YYYY-MM-DD, defaulting to today in the pipeline timezone
func (a *app) parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().In(a.cfg.Location())
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := contracts.ParseDay(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return d, nil
}
