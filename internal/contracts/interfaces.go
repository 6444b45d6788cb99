package contracts

import "context"

// Classifier is a trained scoring function over the three signal features.
// ⭐ SSOT: 학습 모델 인터페이스 (명시적 주입, 전역 싱글톤 없음)
type Classifier interface {
	// PredictProba returns P(favorable forward outcome) in [0, 1]
	PredictProba(features [3]float64) float64
	// Version identifies the artifact, used in cache keys
	Version() string
}

// RecommendationPublisher announces a completed ranking run
type RecommendationPublisher interface {
	PublishRecommendations(ctx context.Context, set *RecommendationSet) error
}
