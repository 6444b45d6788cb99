package ensemble

import (
	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

// Scorer turns signal rows into score rows along both ensemble paths.
// The classifier is injected; a nil classifier means heuristic-only output.
type Scorer struct {
	classifier contracts.Classifier
	logger     *logger.Logger
}

// NewScorer creates a new scorer. classifier may be nil.
func NewScorer(classifier contracts.Classifier, log *logger.Logger) *Scorer {
	s := &Scorer{
		classifier: classifier,
		logger:     log.WithField("module", "ensemble"),
	}
	if classifier == nil {
		s.logger.Warn("No learned model available, scoring heuristic only")
	}
	return s
}

// Learned reports whether a trained scoring function is available
func (s *Scorer) Learned() bool {
	return s.classifier != nil
}

// ModelVersion returns the classifier version or "none"
func (s *Scorer) ModelVersion() string {
	if s.classifier == nil {
		return "none"
	}
	return s.classifier.Version()
}

// Score computes both scores for one signal row
func (s *Scorer) Score(sig contracts.SignalRow) contracts.ScoreRow {
	row := contracts.ScoreRow{
		StockID:        sig.StockID,
		Date:           sig.Date,
		Signal:         sig,
		HeuristicScore: HeuristicScore(sig),
	}
	if s.classifier != nil {
		learned := 100 * s.classifier.PredictProba(sig.Features())
		row.LearnedScore = &learned
	}
	return row
}

// ScoreAll scores every signal row in order
func (s *Scorer) ScoreAll(sigs []contracts.SignalRow) []contracts.ScoreRow {
	out := make([]contracts.ScoreRow, len(sigs))
	for i, sig := range sigs {
		out[i] = s.Score(sig)
	}
	return out
}
