package selection

import (
	"math"
	"time"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

// Filter reasons reported by the screener
const (
	FilterStale      = "stale_date"
	FilterNonFinite  = "non_finite_score"
	FilterOutOfRange = "signal_out_of_range"
)

// Screener keeps only score rows that may enter a cross-sectional ranking
// ⭐ SSOT: 랭킹 적격성 판단은 여기서만
type Screener struct {
	logger *logger.Logger
}

// NewScreener creates a new screener
func NewScreener(log *logger.Logger) *Screener {
	return &Screener{logger: log.WithField("module", "screener")}
}

// Screen returns rows dated exactly asOf with well-formed signals and scores,
// plus a reason -> count map of what was filtered.
func (s *Screener) Screen(asOf time.Time, rows []contracts.ScoreRow) ([]contracts.ScoreRow, map[string]int) {
	passed := make([]contracts.ScoreRow, 0, len(rows))
	filtered := make(map[string]int)

	for _, row := range rows {
		if reason := checkConditions(asOf, row); reason != "" {
			filtered[reason]++
			continue
		}
		passed = append(passed, row)
	}

	if len(filtered) > 0 {
		s.logger.WithFields(map[string]interface{}{
			"as_of":    contracts.DateKey(asOf),
			"passed":   len(passed),
			"filtered": filtered,
		}).Info("Screened score rows")
	}

	return passed, filtered
}

func checkConditions(asOf time.Time, row contracts.ScoreRow) string {
	if !contracts.Day(row.Date).Equal(contracts.Day(asOf)) {
		return FilterStale
	}

	sig := row.Signal
	if sig.TrendSignal < -1 || sig.TrendSignal > 1 ||
		(sig.MACDScore != 0 && sig.MACDScore != 100) ||
		sig.MomentumScore < 0 || sig.MomentumScore > 100 {
		return FilterOutOfRange
	}

	if !finite(row.HeuristicScore) {
		return FilterNonFinite
	}
	if row.LearnedScore != nil && !finite(*row.LearnedScore) {
		return FilterNonFinite
	}
	return ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
