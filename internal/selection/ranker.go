package selection

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

// ErrInvalidDate is returned when a score row does not belong to the ranked date
var ErrInvalidDate = errors.New("score row outside ranking date")

// Ranker selects the top K stocks of a single-date cross-section per model.
// Ties resolve by ascending stock id, so identical input always yields identical output.
// ⭐ SSOT: 랭킹 로직은 여기서만
type Ranker struct {
	topK   int
	logger *logger.Logger
}

// NewRanker creates a new ranker. topK is capped at contracts.MaxRecommendations.
func NewRanker(topK int, log *logger.Logger) *Ranker {
	if topK <= 0 || topK > contracts.MaxRecommendations {
		topK = contracts.MaxRecommendations
	}
	return &Ranker{
		topK:   topK,
		logger: log.WithField("module", "ranker"),
	}
}

// TopK returns the effective list length
func (r *Ranker) TopK() int {
	return r.topK
}

// Rank orders rows by the model's score and returns ranks 1..min(K, eligible).
// Rows without a score for the model are not eligible.
func (r *Ranker) Rank(date time.Time, rows []contracts.ScoreRow, model contracts.ModelType) ([]contracts.Recommendation, error) {
	if !model.IsValid() {
		return nil, fmt.Errorf("unknown model type %q", model)
	}

	type candidate struct {
		row   contracts.ScoreRow
		score float64
	}

	day := contracts.Day(date)
	candidates := make([]candidate, 0, len(rows))
	for _, row := range rows {
		if !contracts.Day(row.Date).Equal(day) {
			return nil, fmt.Errorf("%w: stock %d dated %s, ranking %s",
				ErrInvalidDate, row.StockID, contracts.DateKey(row.Date), contracts.DateKey(day))
		}
		score, ok := row.Score(model)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{row: row, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].row.StockID < candidates[j].row.StockID
	})

	n := len(candidates)
	if n > r.topK {
		n = r.topK
	}

	recs := make([]contracts.Recommendation, n)
	for i := 0; i < n; i++ {
		c := candidates[i]
		recs[i] = contracts.Recommendation{
			Date:      day,
			Rank:      i + 1,
			StockID:   c.row.StockID,
			Score:     c.score,
			ModelType: model,
			Breakdown: c.row.Signal.Breakdown(),
		}
	}

	fields := map[string]interface{}{
		"date":     contracts.DateKey(day),
		"model":    model,
		"eligible": len(candidates),
		"selected": n,
	}
	if n > 0 {
		fields["top_stock"] = recs[0].StockID
		fields["top_score"] = recs[0].Score
	}
	r.logger.WithFields(fields).Info("Ranking completed")

	return recs, nil
}

// RankAll ranks the cross-section for every model type.
// Without learned scores the learned list is empty rather than an error.
func (r *Ranker) RankAll(date time.Time, rows []contracts.ScoreRow) (*contracts.RecommendationSet, error) {
	heuristic, err := r.Rank(date, rows, contracts.ModelHeuristic)
	if err != nil {
		return nil, err
	}
	learned, err := r.Rank(date, rows, contracts.ModelLearned)
	if err != nil {
		return nil, err
	}
	if len(learned) == 0 && len(rows) > 0 {
		r.logger.WithField("date", contracts.DateKey(date)).Warn("No learned scores available, learned list is empty")
	}

	return &contracts.RecommendationSet{
		Date:      contracts.Day(date),
		Heuristic: heuristic,
		Learned:   learned,
	}, nil
}

// ValidateRanks checks that each model's list is exactly ranks 1..n
func ValidateRanks(recs []contracts.Recommendation) error {
	byModel := make(map[contracts.ModelType][]int)
	for _, rec := range recs {
		byModel[rec.ModelType] = append(byModel[rec.ModelType], rec.Rank)
	}

	for model, ranks := range byModel {
		if len(ranks) > contracts.MaxRecommendations {
			return fmt.Errorf("%s has %d recommendations, max %d", model, len(ranks), contracts.MaxRecommendations)
		}
		sort.Ints(ranks)
		for i, rank := range ranks {
			if rank != i+1 {
				return fmt.Errorf("%s ranks are not contiguous: %v", model, ranks)
			}
		}
	}
	return nil
}
