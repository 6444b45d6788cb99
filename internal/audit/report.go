package audit

import (
	"fmt"
	"time"

	"github.com/wonny/niftron/internal/contracts"
)

// Report is the full out-of-sample evaluation of every simulated strategy
type Report struct {
	Start        time.Time                          `json:"start"`
	End          time.Time                          `json:"end"`
	ModelVersion string                             `json:"model_version"`
	Metrics      []*contracts.PerformanceMetrics    `json:"metrics"`
	Equity       map[string][]contracts.EquityPoint `json:"equity_curves"`
	TTest        *TTestResult                       `json:"t_test,omitempty"`
}

// MetricsMap returns strategy → flat metric map, benchmark included
func (r *Report) MetricsMap() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(r.Metrics))
	for _, m := range r.Metrics {
		out[m.Strategy] = m.Map()
	}
	return out
}

// Report analyzes every strategy against bench and builds equity curves.
// The t-test compares LEARNED with HEURISTIC when both are present.
func (a *Analyzer) Report(strategies []contracts.ReturnSeries, bench contracts.ReturnSeries) (*Report, error) {
	report := &Report{
		Equity: make(map[string][]contracts.EquityPoint, len(strategies)+1),
	}

	byName := make(map[string]contracts.ReturnSeries, len(strategies))
	for _, s := range strategies {
		m, err := a.Analyze(s, bench)
		if err != nil {
			return nil, fmt.Errorf("failed to analyze %s: %w", s.Name, err)
		}
		report.Metrics = append(report.Metrics, m)
		report.Equity[s.Name] = EquityCurve(s)
		byName[s.Name] = s
	}

	report.Metrics = append(report.Metrics, a.AnalyzeBenchmark(bench))
	report.Equity[bench.Name] = EquityCurve(bench)

	learned, okL := byName[string(contracts.ModelLearned)]
	heuristic, okH := byName[string(contracts.ModelHeuristic)]
	if okL && okH {
		t := WelchTTest(learned, heuristic)
		report.TTest = &t
	}

	if n := len(bench.Points); n > 0 {
		report.Start = bench.Points[0].Date
		report.End = bench.Points[n-1].Date
	}

	a.logger.WithFields(map[string]interface{}{
		"strategies": len(strategies),
		"periods":    len(bench.Points),
	}).Info("Performance report built")

	return report, nil
}
