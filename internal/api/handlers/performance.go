package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/niftron/internal/audit"
	"github.com/wonny/niftron/internal/backtest"
	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

// BacktestRunner runs (or serves a cached) out-of-sample simulation
type BacktestRunner interface {
	Run(ctx context.Context, config backtest.Config) (*backtest.Result, error)
}

// PerformanceHandler serves backtest metrics and equity curves
// ⭐ SSOT: 성과 API 핸들러
type PerformanceHandler struct {
	runner   BacktestRunner
	analyzer *audit.Analyzer
	defaults backtest.Config
	now      func() time.Time
	logger   *logger.Logger
}

// NewPerformanceHandler creates a new performance handler.
// defaults supplies the window when a request omits start/end; a zero End means today.
func NewPerformanceHandler(runner BacktestRunner, analyzer *audit.Analyzer, defaults backtest.Config, log *logger.Logger) *PerformanceHandler {
	return &PerformanceHandler{
		runner:   runner,
		analyzer: analyzer,
		defaults: defaults,
		now:      time.Now,
		logger:   log,
	}
}

// PerformanceResponse is the metrics view of a backtest
type PerformanceResponse struct {
	Start        string                          `json:"start"`
	End          string                          `json:"end"`
	ModelVersion string                          `json:"model_version"`
	Periods      int                             `json:"periods"`
	Cached       bool                            `json:"cached"`
	Metrics      map[string]map[string]float64   `json:"metrics"`
	Strategies   []*contracts.PerformanceMetrics `json:"strategies"`
	TTest        *audit.TTestResult              `json:"t_test,omitempty"`
}

// ChartDataset is one line of the equity chart
type ChartDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// EquityCurveResponse is the labels/datasets layout used by charting front-ends
type EquityCurveResponse struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// GetPerformance runs the backtest and returns per-strategy metrics
// GET /api/v1/performance?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *PerformanceHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	result, report, ok := h.evaluate(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, PerformanceResponse{
		Start:        contracts.DateKey(result.Start),
		End:          contracts.DateKey(result.End),
		ModelVersion: result.ModelVersion,
		Periods:      result.Benchmark.Len(),
		Cached:       result.Cached,
		Metrics:      report.MetricsMap(),
		Strategies:   report.Metrics,
		TTest:        report.TTest,
	})
}

// GetEquityCurve returns cumulative growth of 1 unit per strategy
// GET /api/v1/charts/equity-curve?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *PerformanceHandler) GetEquityCurve(w http.ResponseWriter, r *http.Request) {
	result, report, ok := h.evaluate(w, r)
	if !ok {
		return
	}

	bench := report.Equity[result.Benchmark.Name]
	resp := EquityCurveResponse{
		Labels:   make([]string, len(bench)),
		Datasets: make([]ChartDataset, 0, len(result.Strategies)+1),
	}
	for i, p := range bench {
		resp.Labels[i] = contracts.DateKey(p.Date)
	}

	names := make([]string, 0, len(result.Strategies)+1)
	for _, s := range result.Strategies {
		names = append(names, s.Name)
	}
	names = append(names, result.Benchmark.Name)

	for _, name := range names {
		curve := report.Equity[name]
		data := make([]float64, len(curve))
		for i, p := range curve {
			data[i] = p.Value
		}
		resp.Datasets = append(resp.Datasets, ChartDataset{Label: name, Data: data})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *PerformanceHandler) evaluate(w http.ResponseWriter, r *http.Request) (*backtest.Result, *audit.Report, bool) {
	config, err := h.window(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	if config.End.Before(config.Start) {
		respondError(w, http.StatusBadRequest, "end precedes start")
		return nil, nil, false
	}

	result, err := h.runner.Run(r.Context(), config)
	if err != nil {
		h.logger.WithError(err).Error("Backtest failed")
		respondError(w, http.StatusInternalServerError, "Failed to run backtest")
		return nil, nil, false
	}

	report, err := h.analyzer.Report(result.Strategies, result.Benchmark)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build performance report")
		respondError(w, http.StatusInternalServerError, "Failed to compute performance metrics")
		return nil, nil, false
	}
	report.ModelVersion = result.ModelVersion

	return result, report, true
}

func (h *PerformanceHandler) window(r *http.Request) (backtest.Config, error) {
	config := h.defaults
	if config.End.IsZero() {
		config.End = contracts.Day(h.now())
	}

	if start, ok, err := queryDate(r, "start"); err != nil {
		return config, err
	} else if ok {
		config.Start = start
	}
	if end, ok, err := queryDate(r, "end"); err != nil {
		return config, err
	} else if ok {
		config.End = end
	}
	return config, nil
}
