package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/internal/ensemble"
	"github.com/wonny/niftron/pkg/logger"
)

var base = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func obs(stockID int64, day int, score, ret float64) Observation {
	return Observation{StockID: stockID, Date: base.AddDate(0, 0, day), Score: score, ForwardReturn: ret}
}

func TestSelectTopK(t *testing.T) {
	day := []Observation{
		obs(4, 0, 50, 0.01),
		obs(2, 0, 90, 0.02),
		obs(3, 0, 50, 0.03),
		obs(1, 0, math.NaN(), 0.04),
		obs(5, 0, 70, math.Inf(1)),
	}

	picked := SelectTopK(day, 3)
	require.Len(t, picked, 3)
	assert.Equal(t, []int64{2, 3, 4}, []int64{picked[0].StockID, picked[1].StockID, picked[2].StockID})

	assert.Nil(t, SelectTopK(day, 4), "only three eligible observations")
}

func TestPortfolioReturn_FewerThanK(t *testing.T) {
	day := []Observation{obs(1, 0, 10, 0.5), obs(2, 0, 20, 0.5)}
	assert.Equal(t, 0.0, PortfolioReturn(day, 5))
	assert.Equal(t, 0.0, PortfolioReturn(nil, 5))
}

func TestSimulator_Run(t *testing.T) {
	sim := NewSimulator(2, 4, logger.Nop())

	input := []Observation{
		// day 2 listed first to check ordering
		obs(1, 2, 1, 0.10), obs(2, 2, 2, 0.20), obs(3, 2, 3, 0.30),
		obs(1, 0, 3, 0.01), obs(2, 0, 2, 0.02), obs(3, 0, 1, 0.03),
		obs(1, 1, 5, 0.50),
	}

	series, err := sim.Run(context.Background(), "TEST", input)
	require.NoError(t, err)

	require.Equal(t, 3, series.Len())
	assert.Equal(t, "TEST", series.Name)
	assert.Equal(t, base, series.Points[0].Date)
	assert.InDelta(t, 0.015, series.Points[0].Return, 1e-12)
	assert.Equal(t, 0.0, series.Points[1].Return, "fewer than K eligible records a zero return")
	assert.InDelta(t, 0.25, series.Points[2].Return, 1e-12)

	again, err := sim.Run(context.Background(), "TEST", input)
	require.NoError(t, err)
	assert.Equal(t, series, again)
}

func TestSimulator_Benchmark(t *testing.T) {
	sim := NewSimulator(5, 2, logger.Nop())

	series, err := sim.Benchmark(context.Background(), "BENCHMARK", []Observation{
		obs(1, 0, 0, 0.01), obs(2, 0, 0, 0.03), obs(3, 0, 0, math.NaN()),
		obs(1, 1, 0, -0.02),
	})
	require.NoError(t, err)

	require.Equal(t, 2, series.Len())
	assert.InDelta(t, 0.02, series.Points[0].Return, 1e-12)
	assert.InDelta(t, -0.02, series.Points[1].Return, 1e-12)
}

func TestSimulator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulator(1, 1, logger.Nop()).Run(ctx, "X", []Observation{obs(1, 0, 1, 0.1)})
	assert.Error(t, err)
}

type fakeIndicators struct {
	rows map[int64][]contracts.IndicatorRow
}

func (f *fakeIndicators) GetByStock(context.Context, int64, time.Time) ([]contracts.IndicatorRow, error) {
	return nil, nil
}

func (f *fakeIndicators) GetRange(_ context.Context, from, to time.Time) (map[int64][]contracts.IndicatorRow, error) {
	out := make(map[int64][]contracts.IndicatorRow, len(f.rows))
	for id, rows := range f.rows {
		for _, r := range rows {
			if inRange(r.Date, from, to) {
				out[id] = append(out[id], r)
			}
		}
	}
	return out, nil
}

func inRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

func (f *fakeIndicators) SaveBatch(context.Context, []contracts.IndicatorRow) error { return nil }

type fakePrices struct {
	bars map[int64][]contracts.PriceBar
}

func (f *fakePrices) GetByStock(context.Context, int64, time.Time) ([]contracts.PriceBar, error) {
	return nil, nil
}

func (f *fakePrices) GetCloses(_ context.Context, from, to time.Time) (map[int64][]contracts.PriceBar, error) {
	out := make(map[int64][]contracts.PriceBar, len(f.bars))
	for id, bars := range f.bars {
		for _, b := range bars {
			if inRange(b.Date, from, to) {
				out[id] = append(out[id], b)
			}
		}
	}
	return out, nil
}

func (f *fakePrices) SaveBatch(context.Context, []contracts.PriceBar) (int, error) { return 0, nil }

// six stocks, thirty days; stock s compounds at s*0.1% per day with flat signals
func syntheticUniverse() (*fakeIndicators, *fakePrices) {
	ind := &fakeIndicators{rows: map[int64][]contracts.IndicatorRow{}}
	px := &fakePrices{bars: map[int64][]contracts.PriceBar{}}

	for s := int64(1); s <= 6; s++ {
		close := 100.0
		for d := 0; d < 30; d++ {
			date := base.AddDate(0, 0, d)
			ind.rows[s] = append(ind.rows[s], contracts.IndicatorRow{
				StockID: s, Date: date, SMA50: 1, SMA200: 2, RSI14: 50,
			})
			px.bars[s] = append(px.bars[s], contracts.PriceBar{StockID: s, Date: date, Close: close})
			close *= 1 + 0.001*float64(s)
		}
	}
	return ind, px
}

func TestEngine_Run(t *testing.T) {
	ind, px := syntheticUniverse()
	scorer := ensemble.NewScorer(nil, logger.Nop())
	engine := NewEngine(ind, px, scorer, NewSimulator(5, 4, logger.Nop()), nil, logger.Nop())

	result, err := engine.Run(context.Background(), Config{
		Start:  base.AddDate(0, 0, 5),
		End:    base.AddDate(0, 0, 29),
		Labels: ensemble.DefaultLabelConfig,
	})
	require.NoError(t, err)

	assert.Equal(t, "none", result.ModelVersion)
	assert.False(t, result.Cached)

	_, hasLearned := result.Series(StrategyLearned)
	assert.False(t, hasLearned, "learned strategy is omitted without a model")
	assert.Len(t, result.Strategies, 4)

	// rows 5..19 keep a full forward window
	require.Equal(t, 15, result.Benchmark.Len())
	for _, p := range result.Benchmark.Points {
		assert.InDelta(t, 0.0035, p.Return, 1e-9)
	}

	heuristic, ok := result.Series(StrategyHeuristic)
	require.True(t, ok)
	for _, p := range heuristic.Points {
		// all scores tie, so the five lowest stock ids are held
		assert.InDelta(t, 0.003, p.Return, 1e-9)
	}
}

func TestEngine_RunKeepsEveryWindowDate(t *testing.T) {
	ind, px := syntheticUniverse()
	engine := NewEngine(ind, px, ensemble.NewScorer(nil, logger.Nop()), NewSimulator(5, 4, logger.Nop()), nil, logger.Nop())

	start, end := base.AddDate(0, 0, 1), base.AddDate(0, 0, 15)
	result, err := engine.Run(context.Background(), Config{
		Start:  start,
		End:    end,
		Labels: ensemble.DefaultLabelConfig,
	})
	require.NoError(t, err)

	// closes after End supply the forward returns of the last window dates
	require.Equal(t, 15, result.Benchmark.Len())
	for i, p := range result.Benchmark.Points {
		assert.Equal(t, start.AddDate(0, 0, i), p.Date)
	}
	assert.Equal(t, end, result.Benchmark.Points[14].Date)

	for _, series := range result.Strategies {
		assert.Equal(t, 15, series.Len(), series.Name)
	}
}

func TestEngine_RunInvalidWindow(t *testing.T) {
	ind, px := syntheticUniverse()
	engine := NewEngine(ind, px, ensemble.NewScorer(nil, logger.Nop()), NewSimulator(5, 1, logger.Nop()), nil, logger.Nop())

	_, err := engine.Run(context.Background(), Config{Start: base.AddDate(0, 0, 10), End: base})
	assert.Error(t, err)
}

type constClassifier struct{}

func (constClassifier) PredictProba([3]float64) float64 { return 0.5 }
func (constClassifier) Version() string                { return "v-test" }

func TestEngine_CacheKey(t *testing.T) {
	ind, px := syntheticUniverse()
	cfg := Config{Start: base, End: base.AddDate(0, 0, 30), Fingerprint: "abc"}

	none := NewEngine(ind, px, ensemble.NewScorer(nil, logger.Nop()), NewSimulator(5, 1, logger.Nop()), nil, logger.Nop())
	model := NewEngine(ind, px, ensemble.NewScorer(constClassifier{}, logger.Nop()), NewSimulator(5, 1, logger.Nop()), nil, logger.Nop())

	assert.Equal(t, "backtest:2023-01-01:2023-01-31:abc:none:k5", none.CacheKey(cfg))
	assert.NotEqual(t, none.CacheKey(cfg), model.CacheKey(cfg), "model version is part of the key")
}
