package contracts

import "time"

// MaxRecommendations caps every recommendation list
const MaxRecommendations = 5

// Recommendation is one ranked buy candidate for a date and model
// ⭐ SSOT: 랭킹 결과 전달 구조 (날짜 단위 전체 교체)
type Recommendation struct {
	Date        time.Time `json:"date"`
	Rank        int       `json:"rank"` // 1-based
	StockID     int64     `json:"stock_id"`
	Symbol      string    `json:"symbol,omitempty"`
	CompanyName string    `json:"company_name,omitempty"`
	Score       float64   `json:"score"`
	ModelType   ModelType `json:"model_type"`
	Breakdown   Breakdown `json:"algorithm_scores"`
}

// Breakdown is the signal triple behind a score
type Breakdown struct {
	TrendSignal   int     `json:"trend_signal"`
	MomentumScore float64 `json:"momentum_score"`
	MACDScore     int     `json:"macd_score"`
}

// RecommendationSet groups the lists produced by one ranking run
type RecommendationSet struct {
	Date      time.Time        `json:"date"`
	Heuristic []Recommendation `json:"heuristic"`
	Learned   []Recommendation `json:"learned"`
}

// All returns both lists concatenated, heuristic first
func (s *RecommendationSet) All() []Recommendation {
	out := make([]Recommendation, 0, len(s.Heuristic)+len(s.Learned))
	out = append(out, s.Heuristic...)
	return append(out, s.Learned...)
}

// Count returns the total number of recommendations
func (s *RecommendationSet) Count() int {
	return len(s.Heuristic) + len(s.Learned)
}
