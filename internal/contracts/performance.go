package contracts

import "time"

// ReturnPoint is the realized return of a strategy on one date
type ReturnPoint struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// ReturnSeries is an ordered-by-date return series. Entries are always finite.
type ReturnSeries struct {
	Name   string        `json:"name"`
	Points []ReturnPoint `json:"points"`
}

// Len returns the number of periods
func (s ReturnSeries) Len() int {
	return len(s.Points)
}

// Values returns the returns in date order
func (s ReturnSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Return
	}
	return out
}

// Index maps date keys to returns
func (s ReturnSeries) Index() map[string]float64 {
	out := make(map[string]float64, len(s.Points))
	for _, p := range s.Points {
		out[DateKey(p.Date)] = p.Return
	}
	return out
}

// EquityPoint is the cumulative growth of 1 unit on a date
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Metric keys of the flat metrics map
const (
	MetricCAGR                 = "cagr"
	MetricAnnualizedVolatility = "annualized_volatility"
	MetricSharpe               = "sharpe"
	MetricSortino              = "sortino"
	MetricCalmar               = "calmar"
	MetricMaxDrawdown          = "max_drawdown"
	MetricAlpha                = "alpha"
	MetricBeta                 = "beta"
	MetricWinRate              = "win_rate"
)

// PerformanceMetrics holds risk/return statistics for one strategy.
// All values are fractions (0.12 = 12%).
// ⭐ SSOT: 성과 지표 구조
type PerformanceMetrics struct {
	Strategy             string  `json:"strategy"`
	Periods              int     `json:"periods"`
	TotalReturn          float64 `json:"total_return"`
	CAGR                 float64 `json:"cagr"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	Sharpe               float64 `json:"sharpe"`
	Sortino              float64 `json:"sortino"`
	Calmar               float64 `json:"calmar"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	Alpha                float64 `json:"alpha"`
	Beta                 float64 `json:"beta"`
	WinRate              float64 `json:"win_rate"`
}

// Map flattens the metrics into the nine-key report form
func (m *PerformanceMetrics) Map() map[string]float64 {
	return map[string]float64{
		MetricCAGR:                 m.CAGR,
		MetricAnnualizedVolatility: m.AnnualizedVolatility,
		MetricSharpe:               m.Sharpe,
		MetricSortino:              m.Sortino,
		MetricCalmar:               m.Calmar,
		MetricMaxDrawdown:          m.MaxDrawdown,
		MetricAlpha:                m.Alpha,
		MetricBeta:                 m.Beta,
		MetricWinRate:              m.WinRate,
	}
}
