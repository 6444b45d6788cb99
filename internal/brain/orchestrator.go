package brain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/internal/ensemble"
	"github.com/wonny/niftron/internal/indicators"
	"github.com/wonny/niftron/internal/s0_data"
	"github.com/wonny/niftron/internal/s0_data/quality"
	"github.com/wonny/niftron/internal/selection"
	"github.com/wonny/niftron/internal/signals"
	"github.com/wonny/niftron/pkg/logger"
)

var (
	// ErrRunInProgress is returned when a pipeline run is already executing
	ErrRunInProgress = errors.New("pipeline run already in progress")
	// ErrQualityGate is returned when coverage on the as-of date is too low to rank
	ErrQualityGate = errors.New("data quality gate failed")
	// ErrNoSuccess is returned when stocks failed in a stage and none succeeded
	ErrNoSuccess = errors.New("no stock succeeded")
)

// signalLookback covers the previous trading day across weekends and holidays
const signalLookback = 14 * 24 * time.Hour

// SnapshotWriter persists quality gate snapshots
type SnapshotWriter interface {
	SaveSnapshot(ctx context.Context, snapshot *contracts.DataQualitySnapshot) error
}

// Orchestrator coordinates the three ordered pipeline stages
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	// Stage components
	ingestor        *s0_data.Ingestor
	indicatorEngine *indicators.Engine
	qualityGate     *quality.QualityGate
	scorer          *ensemble.Scorer
	screener        *selection.Screener
	ranker          *selection.Ranker
	publisher       contracts.RecommendationPublisher

	// Repositories
	stocks          contracts.StockRepository
	prices          contracts.PriceRepository
	indicators      contracts.IndicatorRepository
	recommendations contracts.RecommendationRepository
	qualityRepo     SnapshotWriter

	running sync.Mutex
	logger  *logger.Logger
}

// RunResult holds the results of a complete daily run
type RunResult struct {
	RunID           string                         `json:"run_id"`
	Date            time.Time                      `json:"date"`
	Success         bool                           `json:"success"`
	Error           string                         `json:"error,omitempty"`
	Stages          []contracts.PipelineResult     `json:"stages"`
	QualitySnapshot *contracts.DataQualitySnapshot `json:"quality_snapshot,omitempty"`
	Recommendations *contracts.RecommendationSet   `json:"recommendations,omitempty"`
	Duration        time.Duration                  `json:"duration"`
}

// IndicatorResult is the outcome of the indicator stage
type IndicatorResult struct {
	Report  *contracts.BatchReport
	Rows    int
	Quality *contracts.DataQualitySnapshot
}

// RankResult is the outcome of the rank stage
type RankResult struct {
	Set      *contracts.RecommendationSet
	Scored   int
	Filtered map[string]int
	Quality  *contracts.DataQualitySnapshot
}

// NewOrchestrator creates a new orchestrator.
// ingestor and publisher may be nil.
func NewOrchestrator(
	ingestor *s0_data.Ingestor,
	indicatorEngine *indicators.Engine,
	qualityGate *quality.QualityGate,
	scorer *ensemble.Scorer,
	screener *selection.Screener,
	ranker *selection.Ranker,
	publisher contracts.RecommendationPublisher,
	stocks contracts.StockRepository,
	prices contracts.PriceRepository,
	indicatorRepo contracts.IndicatorRepository,
	recommendations contracts.RecommendationRepository,
	qualityRepo SnapshotWriter,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		ingestor:        ingestor,
		indicatorEngine: indicatorEngine,
		qualityGate:     qualityGate,
		scorer:          scorer,
		screener:        screener,
		ranker:          ranker,
		publisher:       publisher,
		stocks:          stocks,
		prices:          prices,
		indicators:      indicatorRepo,
		recommendations: recommendations,
		qualityRepo:     qualityRepo,
		logger:          log.WithField("module", "orchestrator"),
	}
}

// RunDaily executes ingest → indicators → rank for asOf.
// A stage runs only after its predecessor succeeded.
func (o *Orchestrator) RunDaily(ctx context.Context, asOf time.Time) (*RunResult, error) {
	if !o.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.running.Unlock()

	startTime := time.Now()
	asOf = contracts.Day(asOf)

	result := &RunResult{
		RunID:  uuid.New().String(),
		Date:   asOf,
		Stages: make([]contracts.PipelineResult, 0, len(contracts.AllStages())),
	}

	log := o.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"date":   contracts.DateKey(asOf),
	})
	log.Info("Starting pipeline run")

	fail := func(stage contracts.Stage, err error) (*RunResult, error) {
		result.Error = fmt.Sprintf("%s failed: %v", stage, err)
		result.Duration = time.Since(startTime)
		log.WithError(err).WithField("stage", stage.String()).Error("Pipeline run aborted")
		return result, fmt.Errorf("%s failed: %w", stage, err)
	}

	// INGEST
	if o.ingestor != nil {
		stageStart := time.Now()
		report, err := o.Ingest(ctx, asOf)
		result.Stages = append(result.Stages, stageResult(result.RunID, contracts.StageIngest, report, stageStart, err))
		if err != nil {
			return fail(contracts.StageIngest, err)
		}
	}

	// INDICATORS
	stageStart := time.Now()
	ind, err := o.ComputeIndicators(ctx, asOf)
	var indReport *contracts.BatchReport
	if ind != nil {
		indReport = ind.Report
		result.QualitySnapshot = ind.Quality
	}
	result.Stages = append(result.Stages, stageResult(result.RunID, contracts.StageIndicators, indReport, stageStart, err))
	if err != nil {
		return fail(contracts.StageIndicators, err)
	}

	// RANK
	stageStart = time.Now()
	rank, err := o.ScoreAndRank(ctx, asOf)
	rankStage := contracts.PipelineResult{
		RunID:    result.RunID,
		Stage:    contracts.StageRank,
		Success:  err == nil,
		Duration: time.Since(stageStart).Milliseconds(),
	}
	if rank != nil {
		rankStage.InputCount = rank.Scored
		if rank.Set != nil {
			rankStage.OutputCount = rank.Set.Count()
		}
		if len(rank.Filtered) > 0 {
			rankStage.Metadata = map[string]interface{}{"filtered": rank.Filtered}
		}
		if rank.Quality != nil {
			result.QualitySnapshot = rank.Quality
		}
	}
	if err != nil {
		rankStage.Error = err.Error()
	}
	result.Stages = append(result.Stages, rankStage)
	if err != nil {
		return fail(contracts.StageRank, err)
	}

	result.Recommendations = rank.Set
	result.Success = true
	result.Duration = time.Since(startTime)

	log.WithFields(map[string]interface{}{
		"heuristic":   len(rank.Set.Heuristic),
		"learned":     len(rank.Set.Learned),
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Pipeline run completed")

	return result, nil
}

// Ingest loads price files for every universe member up to asOf
func (o *Orchestrator) Ingest(ctx context.Context, asOf time.Time) (*contracts.BatchReport, error) {
	if o.ingestor == nil {
		return nil, fmt.Errorf("ingest stage is not configured")
	}

	report, err := o.ingestor.Ingest(ctx, asOf)
	if err != nil {
		return report, err
	}
	if err := requireSuccess(report); err != nil {
		return report, err
	}
	return report, nil
}

// ComputeIndicators recomputes every stock's indicator history through asOf,
// stores it and records a quality snapshot for asOf.
func (o *Orchestrator) ComputeIndicators(ctx context.Context, asOf time.Time) (*IndicatorResult, error) {
	asOf = contracts.Day(asOf)

	series, err := o.prices.GetCloses(ctx, time.Time{}, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	rowsByStock, report := o.indicatorEngine.ComputeAll(ctx, asOf, series)
	if err := ctx.Err(); err != nil {
		return &IndicatorResult{Report: report}, err
	}

	ids := make([]int64, 0, len(rowsByStock))
	for id := range rowsByStock {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := &IndicatorResult{Report: report}
	for _, id := range ids {
		rows := rowsByStock[id]
		if len(rows) == 0 {
			continue
		}
		if err := o.indicators.SaveBatch(ctx, rows); err != nil {
			return result, fmt.Errorf("failed to save indicators for stock %d: %w", id, err)
		}
		result.Rows += len(rows)
	}

	if err := requireSuccess(report); err != nil {
		return result, err
	}

	snapshot, err := o.checkQuality(ctx, asOf)
	if err != nil {
		return result, err
	}
	result.Quality = snapshot

	o.logger.WithFields(map[string]interface{}{
		"date":      contracts.DateKey(asOf),
		"stocks":    len(rowsByStock),
		"rows":      result.Rows,
		"skipped":   report.Count(contracts.StockSkipped),
		"failed":    report.Count(contracts.StockFailed),
		"qualified": snapshot.Passed,
	}).Info("Indicators stored")

	return result, nil
}

// ScoreAndRank scores the asOf cross-section and replaces that date's
// recommendations. It refuses to run when the quality gate fails.
func (o *Orchestrator) ScoreAndRank(ctx context.Context, asOf time.Time) (*RankResult, error) {
	asOf = contracts.Day(asOf)

	snapshot, err := o.checkQuality(ctx, asOf)
	if err != nil {
		return nil, err
	}
	result := &RankResult{Quality: snapshot}
	if !snapshot.Passed {
		return result, fmt.Errorf("%w: price coverage %.2f, indicator coverage %.2f",
			ErrQualityGate,
			snapshot.Coverage[contracts.CoveragePrice],
			snapshot.Coverage[contracts.CoverageIndicator])
	}

	byStock, err := o.indicators.GetRange(ctx, asOf.Add(-signalLookback), asOf)
	if err != nil {
		return result, fmt.Errorf("failed to load indicators: %w", err)
	}

	sigs := make([]contracts.SignalRow, 0, len(byStock))
	for _, rows := range byStock {
		if sig, ok := signals.Latest(rows); ok {
			sigs = append(sigs, sig)
		}
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].StockID < sigs[j].StockID })

	scored := o.scorer.ScoreAll(sigs)
	result.Scored = len(scored)

	passed, filtered := o.screener.Screen(asOf, scored)
	result.Filtered = filtered

	set, err := o.ranker.RankAll(asOf, passed)
	if err != nil {
		return result, fmt.Errorf("failed to rank: %w", err)
	}

	if err := o.recommendations.ReplaceForDate(ctx, asOf, set.All()); err != nil {
		return result, fmt.Errorf("failed to save recommendations: %w", err)
	}

	if err := o.attachSymbols(ctx, set); err != nil {
		o.logger.WithError(err).Warn("Failed to attach symbols to recommendations")
	}
	result.Set = set

	if o.publisher != nil {
		if err := o.publisher.PublishRecommendations(ctx, set); err != nil {
			o.logger.WithError(err).Warn("Failed to publish recommendations")
		}
	}

	return result, nil
}

func (o *Orchestrator) checkQuality(ctx context.Context, asOf time.Time) (*contracts.DataQualitySnapshot, error) {
	snapshot, err := o.qualityGate.Check(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("quality check failed: %w", err)
	}
	if o.qualityRepo != nil {
		if err := o.qualityRepo.SaveSnapshot(ctx, snapshot); err != nil {
			return nil, fmt.Errorf("failed to save quality snapshot: %w", err)
		}
	}
	return snapshot, nil
}

func (o *Orchestrator) attachSymbols(ctx context.Context, set *contracts.RecommendationSet) error {
	stocks, err := o.stocks.List(ctx)
	if err != nil {
		return err
	}
	byID := make(map[int64]contracts.Stock, len(stocks))
	for _, s := range stocks {
		byID[s.ID] = s
	}

	for _, list := range [][]contracts.Recommendation{set.Heuristic, set.Learned} {
		for i := range list {
			if s, ok := byID[list[i].StockID]; ok {
				list[i].Symbol = s.Symbol
				list[i].CompanyName = s.CompanyName
			}
		}
	}
	return nil
}

// requireSuccess fails a stage where stocks failed and none succeeded.
// An all-skipped batch passes: skips are not errors.
func requireSuccess(report *contracts.BatchReport) error {
	if report == nil || len(report.Results) == 0 {
		return nil
	}
	if report.Count(contracts.StockSucceeded) > 0 || report.Count(contracts.StockFailed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d skipped, %d failed", ErrNoSuccess,
		report.Count(contracts.StockSkipped), report.Count(contracts.StockFailed))
}

func stageResult(runID string, stage contracts.Stage, report *contracts.BatchReport, start time.Time, err error) contracts.PipelineResult {
	r := contracts.PipelineResult{
		RunID:    runID,
		Stage:    stage,
		Success:  err == nil,
		Duration: time.Since(start).Milliseconds(),
	}
	if report != nil {
		r.InputCount = len(report.Results)
		r.OutputCount = report.Count(contracts.StockSucceeded)
		r.Metadata = map[string]interface{}{
			"skipped": report.Count(contracts.StockSkipped),
			"failed":  report.Count(contracts.StockFailed),
		}
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
