package audit

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

var start = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func series(name string, returns ...float64) contracts.ReturnSeries {
	s := contracts.ReturnSeries{Name: name}
	for i, r := range returns {
		s.Points = append(s.Points, contracts.ReturnPoint{Date: start.AddDate(0, 0, i), Return: r})
	}
	return s
}

func constant(name string, r float64, n int) contracts.ReturnSeries {
	returns := make([]float64, n)
	for i := range returns {
		returns[i] = r
	}
	return series(name, returns...)
}

func TestAnalyze_ConstantReturn(t *testing.T) {
	const r = 0.001
	n := 100
	a := NewAnalyzer(logger.Nop())

	m, err := a.Analyze(constant("S", r, n), constant("B", 0.0005, n))
	require.NoError(t, err)

	assert.Equal(t, n, m.Periods)
	assert.InDelta(t, math.Pow(1+r, float64(n))-1, m.TotalReturn, 1e-12)
	assert.InDelta(t, math.Pow(1+r, 252)-1, m.CAGR, 1e-9)
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.InDelta(t, 0.0, m.AnnualizedVolatility, 1e-12)
	assert.Equal(t, 0.0, m.Sharpe, "zero volatility resolves to 0")
	assert.Equal(t, 0.0, m.Sortino, "no downside resolves to 0")
	assert.Equal(t, 0.0, m.Calmar, "zero drawdown resolves to 0")
	assert.Equal(t, 0.0, m.Beta, "zero benchmark variance resolves to 0")
	assert.InDelta(t, m.CAGR, m.Alpha, 1e-12)
	assert.Equal(t, 1.0, m.WinRate)
}

func TestAnalyze_KnownValues(t *testing.T) {
	a := NewAnalyzer(logger.Nop())
	strat := series("S", 0.10, -0.05, 0.02, -0.01)
	bench := series("B", 0.05, -0.02, 0.01, 0.00)

	m, err := a.Analyze(strat, bench)
	require.NoError(t, err)

	assert.InDelta(t, 1.10*0.95*1.02*0.99-1, m.TotalReturn, 1e-12)
	assert.InDelta(t, -0.05, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, 0.5, m.WinRate, 1e-12)

	// sample statistics (n-1)
	rs := []float64{0.10, -0.05, 0.02, -0.01}
	bs := []float64{0.05, -0.02, 0.01, 0.00}
	assert.InDelta(t, covariance(rs, bs)/variance(bs), m.Beta, 1e-12)
	assert.InDelta(t, stdev(rs)*math.Sqrt(252), m.AnnualizedVolatility, 1e-12)
	assert.InDelta(t, m.CAGR/(stdev([]float64{-0.05, -0.01})*math.Sqrt(252)), m.Sortino, 1e-9)
	assert.InDelta(t, m.CAGR/0.05, m.Calmar, 1e-9)

	benchCAGR := math.Pow(1.05*0.98*1.01, 252.0/4) - 1
	assert.InDelta(t, m.CAGR-m.Beta*benchCAGR, m.Alpha, 1e-6)
}

func TestAnalyze_BenchmarkCoverage(t *testing.T) {
	a := NewAnalyzer(logger.Nop())

	_, err := a.Analyze(series("S", 0.1, 0.2, 0.3), series("B", 0.1, 0.2))
	assert.ErrorIs(t, err, ErrBenchmarkCoverage)
}

func TestAnalyze_Empty(t *testing.T) {
	m, err := NewAnalyzer(logger.Nop()).Analyze(contracts.ReturnSeries{Name: "S"}, contracts.ReturnSeries{Name: "B"})
	require.NoError(t, err)
	assert.Equal(t, 0, m.Periods)
	assert.Equal(t, 0.0, m.CAGR)
}

func TestAnalyzeBenchmark(t *testing.T) {
	m := NewAnalyzer(logger.Nop()).AnalyzeBenchmark(series("BENCHMARK", 0.01, -0.02, 0.03))
	assert.Equal(t, 0.0, m.Alpha)
	assert.Equal(t, 1.0, m.Beta)
	assert.Len(t, m.Map(), 9)
}

func TestMaxDrawdown(t *testing.T) {
	// peak at 1.2, trough at 0.9
	assert.InDelta(t, 0.9/1.2-1, maxDrawdown([]float64{0.2, -0.25, 0.1}), 1e-12)
	assert.Equal(t, 0.0, maxDrawdown([]float64{0.01, 0.02}))
}

func TestEquityCurve(t *testing.T) {
	curve := EquityCurve(series("S", 0.1, -0.1, 0))
	require.Len(t, curve, 3)
	assert.InDelta(t, 1.1, curve[0].Value, 1e-12)
	assert.InDelta(t, 0.99, curve[1].Value, 1e-12)
	assert.InDelta(t, 0.99, curve[2].Value, 1e-12)
	assert.Equal(t, start, curve[0].Date)
}

func TestWelchTTest(t *testing.T) {
	a := series("LEARNED", 0.01, 0.02, 0.03, 0.04, 0.05)
	b := series("HEURISTIC", 0.00, 0.01, 0.00, 0.01, 0.00, 0.01)

	res := WelchTTest(a, b)

	// mean diff 0.025, va = 0.00025/5, vb = 0.00003/6
	va, vb := 0.00025/5, 0.00003/6
	assert.InDelta(t, 0.025/math.Sqrt(va+vb), res.T, 1e-9)
	assert.InDelta(t, (va+vb)*(va+vb)/(va*va/4+vb*vb/5), res.DF, 1e-9)
	assert.Greater(t, res.PValue, 0.0)
	assert.Less(t, res.PValue, 0.05)

	same := WelchTTest(a, a)
	assert.InDelta(t, 0.0, same.T, 1e-12)
	assert.InDelta(t, 1.0, same.PValue, 1e-9)

	degenerate := WelchTTest(constant("A", 0.01, 5), constant("B", 0.01, 5))
	assert.Equal(t, 0.0, degenerate.T)
	assert.Equal(t, 1.0, degenerate.PValue)
}

func TestStudentTwoSided(t *testing.T) {
	// t = 2.228, df = 10 is the 5% two-sided critical value
	assert.InDelta(t, 0.05, studentTwoSided(2.228, 10), 1e-3)
	assert.InDelta(t, 1.0, studentTwoSided(0, 10), 1e-12)
}

func TestReport(t *testing.T) {
	a := NewAnalyzer(logger.Nop())
	learned := series("LEARNED", 0.01, 0.02, -0.01)
	heuristic := series("HEURISTIC", 0.00, 0.01, 0.01)
	bench := series("BENCHMARK", 0.005, 0.005, 0.0)

	report, err := a.Report([]contracts.ReturnSeries{learned, heuristic}, bench)
	require.NoError(t, err)

	require.Len(t, report.Metrics, 3)
	assert.Equal(t, "BENCHMARK", report.Metrics[2].Strategy)
	assert.Contains(t, report.Equity, "LEARNED")
	assert.Contains(t, report.Equity, "BENCHMARK")
	require.NotNil(t, report.TTest)
	assert.Equal(t, start, report.Start)
	assert.Equal(t, start.AddDate(0, 0, 2), report.End)

	metrics := report.MetricsMap()
	assert.Equal(t, 1.0, metrics["BENCHMARK"][contracts.MetricBeta])

	noModel, err := a.Report([]contracts.ReturnSeries{heuristic}, bench)
	require.NoError(t, err)
	assert.Nil(t, noModel.TTest)
}
