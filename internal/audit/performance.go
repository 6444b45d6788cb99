package audit

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

// TradingDaysPerYear annualizes daily statistics
const TradingDaysPerYear = 252

// sample variances below this are rounding noise of a constant series
const varianceFloor = 1e-20

// ErrBenchmarkCoverage is returned when the benchmark misses a date of the strategy series
var ErrBenchmarkCoverage = errors.New("benchmark does not cover strategy dates")

// Analyzer turns return series into risk/return statistics
// ⭐ SSOT: 성과 분석 로직은 여기서만
type Analyzer struct {
	logger *logger.Logger
}

// NewAnalyzer creates a new performance analyzer
func NewAnalyzer(log *logger.Logger) *Analyzer {
	return &Analyzer{logger: log.WithField("module", "audit")}
}

// Analyze computes the metrics of series against bench.
// Every zero-denominator ratio resolves to 0.
func (a *Analyzer) Analyze(series, bench contracts.ReturnSeries) (*contracts.PerformanceMetrics, error) {
	benchIndex := bench.Index()

	returns := series.Values()
	benchReturns := make([]float64, len(series.Points))
	for i, p := range series.Points {
		b, ok := benchIndex[contracts.DateKey(p.Date)]
		if !ok {
			return nil, fmt.Errorf("%w: %s missing %s", ErrBenchmarkCoverage, bench.Name, contracts.DateKey(p.Date))
		}
		benchReturns[i] = b
	}

	m := compute(series.Name, returns)

	m.Beta = beta(returns, benchReturns)
	m.Alpha = m.CAGR - m.Beta*cagr(totalReturn(benchReturns), len(benchReturns))

	a.logger.WithFields(map[string]interface{}{
		"strategy":     m.Strategy,
		"periods":      m.Periods,
		"total_return": m.TotalReturn,
		"sharpe":       m.Sharpe,
		"max_drawdown": m.MaxDrawdown,
	}).Debug("Performance analysis completed")

	return m, nil
}

// AnalyzeBenchmark computes the benchmark's own metrics with alpha fixed at 0 and beta at 1
func (a *Analyzer) AnalyzeBenchmark(bench contracts.ReturnSeries) *contracts.PerformanceMetrics {
	m := compute(bench.Name, bench.Values())
	m.Alpha = 0
	m.Beta = 1
	return m
}

func compute(name string, returns []float64) *contracts.PerformanceMetrics {
	n := len(returns)
	m := &contracts.PerformanceMetrics{Strategy: name, Periods: n}
	if n == 0 {
		return m
	}

	m.TotalReturn = totalReturn(returns)
	m.CAGR = cagr(m.TotalReturn, n)
	m.AnnualizedVolatility = stdev(returns) * math.Sqrt(TradingDaysPerYear)
	m.MaxDrawdown = maxDrawdown(returns)

	m.Sharpe = ratio(m.CAGR, m.AnnualizedVolatility)
	m.Sortino = ratio(m.CAGR, downsideDeviation(returns))
	m.Calmar = ratio(m.CAGR, math.Abs(m.MaxDrawdown))

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	m.WinRate = float64(wins) / float64(n)

	return m
}

// totalReturn calculates cumulative return
func totalReturn(returns []float64) float64 {
	cum := 1.0
	for _, r := range returns {
		cum *= 1 + r
	}
	return cum - 1
}

// cagr annualizes a total return over n daily periods. A wiped-out equity curve yields -1.
func cagr(total float64, n int) float64 {
	if n == 0 {
		return 0
	}
	if 1+total <= 0 {
		return -1
	}
	return math.Pow(1+total, TradingDaysPerYear/float64(n)) - 1
}

// maxDrawdown is the deepest decline of the compounded curve from its running peak
func maxDrawdown(returns []float64) float64 {
	cum := 1.0
	peak := math.Inf(-1)
	maxDD := 0.0

	for _, r := range returns {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		if peak <= 0 {
			continue
		}
		if dd := (cum - peak) / peak; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// downsideDeviation is the annualized sample stdev of the negative returns
func downsideDeviation(returns []float64) float64 {
	var neg []float64
	for _, r := range returns {
		if r < 0 {
			neg = append(neg, r)
		}
	}
	return stdev(neg) * math.Sqrt(TradingDaysPerYear)
}

func beta(returns, bench []float64) float64 {
	v := variance(bench)
	if v == 0 {
		return 0
	}
	return covariance(returns, bench) / v
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// variance is the sample variance (n-1); fewer than two points yields 0
func variance(xs []float64) float64 {
	return covariance(xs, xs)
}

func covariance(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	sum := 0.0
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	cov := sum / float64(n-1)
	if math.Abs(cov) < varianceFloor {
		return 0
	}
	return cov
}

func stdev(xs []float64) float64 {
	return math.Sqrt(variance(xs))
}

func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}
