package ensemble

import "github.com/wonny/niftron/internal/contracts"

// Heuristic weights. Fixed design constants, not learned.
const (
	WeightTrend    = 0.40
	WeightMomentum = 0.30
	WeightMACD     = 0.30
)

// NormalizeTrend maps a trend signal from [-1, 1] onto [0, 100]
func NormalizeTrend(trend int) float64 {
	return float64(trend+1) * 50
}

// HeuristicScore is the fixed-weight convex combination of the normalized signals
func HeuristicScore(s contracts.SignalRow) float64 {
	return WeightTrend*NormalizeTrend(s.TrendSignal) +
		WeightMomentum*s.MomentumScore +
		WeightMACD*float64(s.MACDScore)
}
