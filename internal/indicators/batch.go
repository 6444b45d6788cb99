package indicators

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

// Engine runs Compute over many stocks concurrently.
// Stocks share no state; a failing stock never aborts the batch.
type Engine struct {
	workers int
	logger  *logger.Logger
}

// NewEngine creates a new indicator batch engine
func NewEngine(workers int, log *logger.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		workers: workers,
		logger:  log.WithField("module", "indicators"),
	}
}

type job struct {
	stockID int64
	bars    []contracts.PriceBar
}

type outcome struct {
	result contracts.StockResult
	rows   []contracts.IndicatorRow
}

// ComputeAll computes indicators for every stock in series.
// Rows are merged by stock id; the report lists one result per stock in id order.
func (e *Engine) ComputeAll(ctx context.Context, asOf time.Time, series map[int64][]contracts.PriceBar) (map[int64][]contracts.IndicatorRow, *contracts.BatchReport) {
	jobs := make(chan job, len(series))
	outcomes := make(chan outcome, len(series))

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, jobs, outcomes)
		}()
	}

	for id, bars := range series {
		jobs <- job{stockID: id, bars: bars}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	rows := make(map[int64][]contracts.IndicatorRow, len(series))
	report := &contracts.BatchReport{Stage: contracts.StageIndicators, Date: asOf}
	for o := range outcomes {
		if o.result.Status == contracts.StockSucceeded {
			rows[o.result.StockID] = o.rows
		}
		report.Add(o.result)
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].StockID < report.Results[j].StockID
	})

	e.logger.WithFields(map[string]interface{}{
		"as_of":     contracts.DateKey(asOf),
		"stocks":    len(series),
		"succeeded": report.Count(contracts.StockSucceeded),
		"skipped":   report.Count(contracts.StockSkipped),
		"failed":    report.Count(contracts.StockFailed),
	}).Info("Indicator batch completed")

	return rows, report
}

func (e *Engine) worker(ctx context.Context, jobs <-chan job, outcomes chan<- outcome) {
	for j := range jobs {
		if err := ctx.Err(); err != nil {
			outcomes <- outcome{result: contracts.StockResult{
				StockID: j.stockID,
				Status:  contracts.StockFailed,
				Reason:  err.Error(),
			}}
			continue
		}
		outcomes <- e.computeOne(j)
	}
}

func (e *Engine) computeOne(j job) (o outcome) {
	o.result.StockID = j.stockID

	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("stock_id", j.stockID).Errorf("indicator computation panicked: %v", r)
			o = outcome{result: contracts.StockResult{
				StockID: j.stockID,
				Status:  contracts.StockFailed,
				Reason:  "panic during computation",
			}}
		}
	}()

	rows, err := Compute(j.stockID, j.bars)
	switch {
	case errors.Is(err, ErrInsufficientHistory):
		e.logger.WithFields(map[string]interface{}{
			"stock_id": j.stockID,
			"bars":     len(j.bars),
		}).Debug("Skipping stock with insufficient history")
		o.result.Status = contracts.StockSkipped
		o.result.Reason = err.Error()
	case err != nil:
		e.logger.WithError(err).WithField("stock_id", j.stockID).Warn("Indicator computation failed")
		o.result.Status = contracts.StockFailed
		o.result.Reason = err.Error()
	default:
		o.result.Status = contracts.StockSucceeded
		o.result.Rows = len(rows)
		o.rows = rows
	}
	return o
}
