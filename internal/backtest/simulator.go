package backtest

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

// DefaultPortfolioSize is the number of names held each day
const DefaultPortfolioSize = 5

// Observation is one stock on one date: the score used to pick it and the
// return realized on the following trading day.
type Observation struct {
	StockID       int64     `json:"stock_id"`
	Date          time.Time `json:"date"`
	Score         float64   `json:"score"`
	ForwardReturn float64   `json:"forward_return"`
}

func (o Observation) eligible() bool {
	return isFinite(o.Score) && isFinite(o.ForwardReturn)
}

// Simulator replays a daily top-K equal-weight selection
// ⭐ SSOT: 일별 리밸런싱 시뮬레이션은 여기서만
type Simulator struct {
	portfolioSize int
	workers       int
	logger        *logger.Logger
}

// NewSimulator creates a new simulator
func NewSimulator(portfolioSize, workers int, log *logger.Logger) *Simulator {
	if portfolioSize < 1 {
		portfolioSize = DefaultPortfolioSize
	}
	if workers < 1 {
		workers = 1
	}
	return &Simulator{
		portfolioSize: portfolioSize,
		workers:       workers,
		logger:        log.WithField("module", "simulator"),
	}
}

// PortfolioSize returns K
func (s *Simulator) PortfolioSize() int {
	return s.portfolioSize
}

// Run produces one return per date present in obs.
// A date with fewer than K eligible stocks records 0.
func (s *Simulator) Run(ctx context.Context, name string, obs []Observation) (contracts.ReturnSeries, error) {
	k := s.portfolioSize
	series, err := s.perDate(ctx, name, obs, func(day []Observation) float64 {
		return PortfolioReturn(day, k)
	})
	if err != nil {
		return series, err
	}

	s.logger.WithFields(map[string]interface{}{
		"strategy": name,
		"periods":  series.Len(),
		"k":        k,
	}).Debug("Simulation completed")

	return series, nil
}

// Benchmark averages the forward return of every eligible stock per date
func (s *Simulator) Benchmark(ctx context.Context, name string, obs []Observation) (contracts.ReturnSeries, error) {
	return s.perDate(ctx, name, obs, EqualWeightReturn)
}

// perDate fans dates out to workers and merges results in date order
func (s *Simulator) perDate(ctx context.Context, name string, obs []Observation, fn func([]Observation) float64) (contracts.ReturnSeries, error) {
	dates, groups := groupByDate(obs)
	points := make([]contracts.ReturnPoint, len(dates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range dates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			points[i] = contracts.ReturnPoint{Date: dates[i], Return: fn(groups[i])}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return contracts.ReturnSeries{Name: name}, err
	}

	return contracts.ReturnSeries{Name: name, Points: points}, nil
}

// SelectTopK returns the k highest-scoring eligible observations.
// Ties resolve by ascending stock id. Returns nil when fewer than k are eligible.
func SelectTopK(day []Observation, k int) []Observation {
	eligible := make([]Observation, 0, len(day))
	for _, o := range day {
		if o.eligible() {
			eligible = append(eligible, o)
		}
	}
	if k < 1 || len(eligible) < k {
		return nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Score != eligible[j].Score {
			return eligible[i].Score > eligible[j].Score
		}
		return eligible[i].StockID < eligible[j].StockID
	})
	return eligible[:k]
}

// PortfolioReturn is the mean forward return of the top k, or 0 when no trade is possible
func PortfolioReturn(day []Observation, k int) float64 {
	picked := SelectTopK(day, k)
	if picked == nil {
		return 0
	}

	sum := 0.0
	for _, o := range picked {
		sum += o.ForwardReturn
	}
	return sum / float64(len(picked))
}

// EqualWeightReturn is the mean forward return across all stocks with a finite return
func EqualWeightReturn(day []Observation) float64 {
	sum, n := 0.0, 0
	for _, o := range day {
		if isFinite(o.ForwardReturn) {
			sum += o.ForwardReturn
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// groupByDate buckets observations per calendar date, dates ascending
func groupByDate(obs []Observation) ([]time.Time, [][]Observation) {
	index := make(map[string]int)
	var dates []time.Time
	var groups [][]Observation

	for _, o := range obs {
		key := contracts.DateKey(o.Date)
		i, ok := index[key]
		if !ok {
			i = len(dates)
			index[key] = i
			dates = append(dates, contracts.Day(o.Date))
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], o)
	}

	order := make([]int, len(dates))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return dates[order[a]].Before(dates[order[b]]) })

	sortedDates := make([]time.Time, len(dates))
	sortedGroups := make([][]Observation, len(dates))
	for n, i := range order {
		sortedDates[n] = dates[i]
		sortedGroups[n] = groups[i]
	}
	return sortedDates, sortedGroups
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
