package s0_data

import (
	"context"
	"time"
)

// CoverageCounter exposes per-date row counts for the quality gate
type CoverageCounter struct {
	stocks     *StockRepository
	prices     *PriceRepository
	indicators *IndicatorRepository
}

// NewCoverageCounter combines the repositories the quality gate reads from
func NewCoverageCounter(stocks *StockRepository, prices *PriceRepository, indicators *IndicatorRepository) *CoverageCounter {
	return &CoverageCounter{stocks: stocks, prices: prices, indicators: indicators}
}

// Count returns the universe size
func (c *CoverageCounter) Count(ctx context.Context) (int, error) {
	return c.stocks.Count(ctx)
}

// CountPricesOn returns how many stocks have a bar on date
func (c *CoverageCounter) CountPricesOn(ctx context.Context, date time.Time) (int, error) {
	return c.prices.CountOnDate(ctx, date)
}

// CountIndicatorsOn returns how many stocks have indicators on date
func (c *CoverageCounter) CountIndicatorsOn(ctx context.Context, date time.Time) (int, error) {
	return c.indicators.CountOnDate(ctx, date)
}
