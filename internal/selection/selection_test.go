package selection

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

var asOf = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func scoreRow(id int64, date time.Time, heuristic float64, learned *float64) contracts.ScoreRow {
	return contracts.ScoreRow{
		StockID: id,
		Date:    date,
		Signal: contracts.SignalRow{
			StockID:       id,
			Date:          date,
			TrendSignal:   1,
			MomentumScore: 60,
			MACDScore:     100,
		},
		HeuristicScore: heuristic,
		LearnedScore:   learned,
	}
}

func ptr(v float64) *float64 { return &v }

func TestScreener(t *testing.T) {
	s := NewScreener(logger.Nop())

	stale := scoreRow(2, asOf.AddDate(0, 0, -1), 70, nil)
	badTrend := scoreRow(3, asOf, 70, nil)
	badTrend.Signal.TrendSignal = 2
	badMACD := scoreRow(4, asOf, 70, nil)
	badMACD.Signal.MACDScore = 50
	nan := scoreRow(5, asOf, math.NaN(), nil)
	infLearned := scoreRow(6, asOf, 40, ptr(math.Inf(1)))

	rows := []contracts.ScoreRow{
		scoreRow(1, asOf, 70, ptr(55)),
		stale, badTrend, badMACD, nan, infLearned,
		scoreRow(7, asOf.Add(9*time.Hour), 20, nil), // same calendar day
	}

	passed, filtered := s.Screen(asOf, rows)

	require.Len(t, passed, 2)
	assert.Equal(t, int64(1), passed[0].StockID)
	assert.Equal(t, int64(7), passed[1].StockID)
	assert.Equal(t, map[string]int{
		FilterStale:      1,
		FilterOutOfRange: 2,
		FilterNonFinite:  2,
	}, filtered)
}

func TestRanker(t *testing.T) {
	log := logger.Nop()

	t.Run("orders by score with ascending id tie-break", func(t *testing.T) {
		r := NewRanker(3, log)
		rows := []contracts.ScoreRow{
			scoreRow(9, asOf, 50, nil),
			scoreRow(4, asOf, 80, nil),
			scoreRow(7, asOf, 80, nil),
			scoreRow(1, asOf, 10, nil),
		}

		recs, err := r.Rank(asOf, rows, contracts.ModelHeuristic)
		require.NoError(t, err)
		require.Len(t, recs, 3)

		ids := []int64{recs[0].StockID, recs[1].StockID, recs[2].StockID}
		assert.Equal(t, []int64{4, 7, 9}, ids)
		for i, rec := range recs {
			assert.Equal(t, i+1, rec.Rank)
			assert.Equal(t, contracts.ModelHeuristic, rec.ModelType)
			assert.Equal(t, asOf, rec.Date)
		}
		assert.Equal(t, 1, recs[0].Breakdown.TrendSignal)
		assert.Equal(t, 100, recs[0].Breakdown.MACDScore)
	})

	t.Run("five stocks fill ranks one to five", func(t *testing.T) {
		cases := []struct {
			id        int64
			score     float64
			trend     int
			momentum  float64
			macdScore int
		}{
			{id: 12, score: 60, trend: 0, momentum: 55.5, macdScore: 100},
			{id: 3, score: 90, trend: 1, momentum: 71.25, macdScore: 100},
			{id: 40, score: 50, trend: -1, momentum: 20, macdScore: 0},
			{id: 7, score: 80, trend: 1, momentum: 33.75, macdScore: 0},
			{id: 21, score: 70, trend: 0, momentum: 64, macdScore: 100},
		}

		rows := make([]contracts.ScoreRow, 0, len(cases))
		for _, c := range cases {
			row := scoreRow(c.id, asOf, c.score, nil)
			row.Signal.TrendSignal = c.trend
			row.Signal.MomentumScore = c.momentum
			row.Signal.MACDScore = c.macdScore
			rows = append(rows, row)
		}

		recs, err := NewRanker(5, log).Rank(asOf, rows, contracts.ModelHeuristic)
		require.NoError(t, err)
		require.Len(t, recs, 5)

		wantIDs := []int64{3, 7, 21, 12, 40}
		wantScores := []float64{90, 80, 70, 60, 50}
		for i, rec := range recs {
			assert.Equal(t, i+1, rec.Rank)
			assert.Equal(t, wantIDs[i], rec.StockID)
			assert.InDelta(t, wantScores[i], rec.Score, 1e-9)

			var origin contracts.SignalRow
			for _, row := range rows {
				if row.StockID == rec.StockID {
					origin = row.Signal
				}
			}
			assert.Equal(t, origin.TrendSignal, rec.Breakdown.TrendSignal)
			assert.Equal(t, origin.MomentumScore, rec.Breakdown.MomentumScore)
			assert.Equal(t, origin.MACDScore, rec.Breakdown.MACDScore)
		}
		assert.NoError(t, ValidateRanks(recs))
	})

	t.Run("fewer eligible than K", func(t *testing.T) {
		r := NewRanker(5, log)
		recs, err := r.Rank(asOf, []contracts.ScoreRow{scoreRow(1, asOf, 50, nil)}, contracts.ModelHeuristic)
		require.NoError(t, err)
		assert.Len(t, recs, 1)

		recs, err = r.Rank(asOf, nil, contracts.ModelHeuristic)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("K is capped", func(t *testing.T) {
		assert.Equal(t, contracts.MaxRecommendations, NewRanker(50, log).TopK())
		assert.Equal(t, contracts.MaxRecommendations, NewRanker(0, log).TopK())
		assert.Equal(t, 2, NewRanker(2, log).TopK())
	})

	t.Run("rejects rows from another date", func(t *testing.T) {
		r := NewRanker(5, log)
		rows := []contracts.ScoreRow{scoreRow(1, asOf, 50, nil), scoreRow(2, asOf.AddDate(0, 0, 1), 60, nil)}

		_, err := r.Rank(asOf, rows, contracts.ModelHeuristic)
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("rejects unknown model", func(t *testing.T) {
		_, err := NewRanker(5, log).Rank(asOf, nil, contracts.ModelType("RANDOM"))
		assert.Error(t, err)
	})

	t.Run("RankAll ranks each model independently", func(t *testing.T) {
		r := NewRanker(2, log)
		rows := []contracts.ScoreRow{
			scoreRow(1, asOf, 90, ptr(10)),
			scoreRow(2, asOf, 20, ptr(95)),
			scoreRow(3, asOf, 60, ptr(70)),
		}

		set, err := r.RankAll(asOf, rows)
		require.NoError(t, err)
		require.Len(t, set.Heuristic, 2)
		require.Len(t, set.Learned, 2)
		assert.Equal(t, int64(1), set.Heuristic[0].StockID)
		assert.Equal(t, int64(3), set.Heuristic[1].StockID)
		assert.Equal(t, int64(2), set.Learned[0].StockID)
		assert.Equal(t, int64(3), set.Learned[1].StockID)
		assert.InDelta(t, 95, set.Learned[0].Score, 1e-9)
		assert.NoError(t, ValidateRanks(set.All()))
	})

	t.Run("RankAll without learned scores", func(t *testing.T) {
		set, err := NewRanker(5, log).RankAll(asOf, []contracts.ScoreRow{scoreRow(1, asOf, 50, nil)})
		require.NoError(t, err)
		assert.Len(t, set.Heuristic, 1)
		assert.Empty(t, set.Learned)
	})

	t.Run("deterministic across input order", func(t *testing.T) {
		r := NewRanker(5, log)
		a := []contracts.ScoreRow{scoreRow(3, asOf, 50, nil), scoreRow(1, asOf, 50, nil), scoreRow(2, asOf, 50, nil)}
		b := []contracts.ScoreRow{a[2], a[0], a[1]}

		ra, err := r.Rank(asOf, a, contracts.ModelHeuristic)
		require.NoError(t, err)
		rb, err := r.Rank(asOf, b, contracts.ModelHeuristic)
		require.NoError(t, err)
		assert.Equal(t, ra, rb)
		assert.Equal(t, int64(1), ra[0].StockID)
	})
}

func TestValidateRanks(t *testing.T) {
	rec := func(model contracts.ModelType, rank int) contracts.Recommendation {
		return contracts.Recommendation{Date: asOf, Rank: rank, StockID: int64(rank), ModelType: model}
	}

	assert.NoError(t, ValidateRanks(nil))
	assert.NoError(t, ValidateRanks([]contracts.Recommendation{
		rec(contracts.ModelHeuristic, 2), rec(contracts.ModelHeuristic, 1), rec(contracts.ModelLearned, 1),
	}))
	assert.Error(t, ValidateRanks([]contracts.Recommendation{
		rec(contracts.ModelHeuristic, 1), rec(contracts.ModelHeuristic, 3),
	}))

	six := make([]contracts.Recommendation, 0, 6)
	for i := 1; i <= 6; i++ {
		six = append(six, rec(contracts.ModelLearned, i))
	}
	assert.Error(t, ValidateRanks(six))
}

func TestGroupByModel(t *testing.T) {
	recs := []contracts.Recommendation{
		{Rank: 1, StockID: 1, ModelType: contracts.ModelHeuristic},
		{Rank: 1, StockID: 2, ModelType: contracts.ModelLearned},
		{Rank: 2, StockID: 3, ModelType: contracts.ModelHeuristic},
	}

	set := GroupByModel(asOf, recs)
	assert.Equal(t, asOf, set.Date)
	assert.Len(t, set.Heuristic, 2)
	assert.Len(t, set.Learned, 1)

	empty := GroupByModel(asOf, nil)
	assert.NotNil(t, empty.Heuristic)
	assert.NotNil(t, empty.Learned)
}
