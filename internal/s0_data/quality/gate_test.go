package quality

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

type fakeCounter struct {
	total, prices, indicators int
	err                       error
}

func (f *fakeCounter) Count(context.Context) (int, error) { return f.total, f.err }
func (f *fakeCounter) CountPricesOn(context.Context, time.Time) (int, error) {
	return f.prices, nil
}
func (f *fakeCounter) CountIndicatorsOn(context.Context, time.Time) (int, error) {
	return f.indicators, nil
}

func TestEvaluate(t *testing.T) {
	date := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

	snap := Evaluate(date, 10, 9, 5, Config{MinPriceCoverage: 0.8})

	assert.Equal(t, contracts.Day(date), snap.Date)
	assert.Equal(t, 10, snap.TotalStocks)
	assert.Equal(t, 5, snap.ValidStocks)
	assert.InDelta(t, 0.9, snap.Coverage[contracts.CoveragePrice], 1e-12)
	assert.InDelta(t, 0.5, snap.Coverage[contracts.CoverageIndicator], 1e-12)
	assert.InDelta(t, 0.6*0.9+0.4*0.5, snap.QualityScore, 1e-12)
	assert.True(t, snap.Passed)
}

func TestEvaluate_Thresholds(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, Evaluate(date, 10, 7, 7, Config{MinPriceCoverage: 0.8}).Passed)
	assert.False(t, Evaluate(date, 10, 10, 4, Config{MinPriceCoverage: 0.8, MinIndicatorCoverage: 0.5}).Passed)
	assert.False(t, Evaluate(date, 0, 0, 0, Config{}).Passed, "empty universe never passes")
}

func TestQualityGate_Check(t *testing.T) {
	gate := NewQualityGate(&fakeCounter{total: 4, prices: 4, indicators: 3}, DefaultConfig(), logger.Nop())

	snap, err := gate.Check(context.Background(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, snap.Passed)
	assert.InDelta(t, 0.75, snap.Coverage[contracts.CoverageIndicator], 1e-12)
}

func TestQualityGate_CheckError(t *testing.T) {
	gate := NewQualityGate(&fakeCounter{err: errors.New("boom")}, DefaultConfig(), logger.Nop())

	_, err := gate.Check(context.Background(), time.Now())
	assert.Error(t, err)
}
