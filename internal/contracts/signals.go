package contracts

import "time"

// SignalRow is derived from two adjacent IndicatorRows (t and t-1)
// ⭐ SSOT: 시그널 → 앙상블 전달 구조
type SignalRow struct {
	StockID       int64     `json:"stock_id"`
	Date          time.Time `json:"date"`
	TrendSignal   int       `json:"trend_signal"`   // -1, 0, 1
	MomentumScore float64   `json:"momentum_score"` // 0 ~ 100
	MACDScore     int       `json:"macd_score"`     // 0 or 100
}

// Breakdown returns the explainability payload attached to a recommendation
func (s SignalRow) Breakdown() Breakdown {
	return Breakdown{
		TrendSignal:   s.TrendSignal,
		MomentumScore: s.MomentumScore,
		MACDScore:     s.MACDScore,
	}
}

// Features returns the classifier input vector in canonical order
func (s SignalRow) Features() [3]float64 {
	return [3]float64{float64(s.TrendSignal), s.MomentumScore, float64(s.MACDScore)}
}

// ModelType identifies the scoring path behind a score or recommendation
type ModelType string

const (
	// ModelHeuristic fixed-weight linear combination of normalized signals
	ModelHeuristic ModelType = "HEURISTIC"
	// ModelLearned classifier probability scaled to 0 ~ 100
	ModelLearned ModelType = "LEARNED"
)

// AllModelTypes returns the model types in reporting order
func AllModelTypes() []ModelType {
	return []ModelType{ModelHeuristic, ModelLearned}
}

// IsValid checks the model type string
func (m ModelType) IsValid() bool {
	return m == ModelHeuristic || m == ModelLearned
}

// ScoreRow carries both ensemble scores for one stock on one date.
// LearnedScore is nil when no trained scoring function was available.
type ScoreRow struct {
	StockID        int64     `json:"stock_id"`
	Date           time.Time `json:"date"`
	Signal         SignalRow `json:"signal"`
	HeuristicScore float64   `json:"heuristic_score"`
	LearnedScore   *float64  `json:"learned_score,omitempty"`
}

// Score returns the score for the given model and whether it is present
func (r ScoreRow) Score(model ModelType) (float64, bool) {
	switch model {
	case ModelHeuristic:
		return r.HeuristicScore, true
	case ModelLearned:
		if r.LearnedScore == nil {
			return 0, false
		}
		return *r.LearnedScore, true
	default:
		return 0, false
	}
}
