package indicators

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/niftron/internal/contracts"
)

// Indicator parameters
const (
	ShortWindow    = 50
	LongWindow     = 200
	RSIPeriod      = 14
	MACDFast       = 12
	MACDSlow       = 26
	MACDSignalSpan = 9

	// MinHistory is the bar count below which a stock is skipped
	MinHistory = LongWindow
)

var (
	// ErrInsufficientHistory marks a stock with fewer than MinHistory bars (skip, not failure)
	ErrInsufficientHistory = errors.New("insufficient price history")
	// ErrMalformedSeries marks unusable input (unordered dates, non-finite or non-positive closes)
	ErrMalformedSeries = errors.New("malformed price series")
)

// Compute derives the indicator rows for one stock's chronologically ordered bars.
// Leading rows are dropped until every indicator is defined.
// ⭐ SSOT: 지표 계산은 여기서만
func Compute(stockID int64, bars []contracts.PriceBar) ([]contracts.IndicatorRow, error) {
	if len(bars) < MinHistory {
		return nil, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientHistory, len(bars), MinHistory)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			return nil, fmt.Errorf("%w: close %v on %s", ErrMalformedSeries, b.Close, contracts.DateKey(b.Date))
		}
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return nil, fmt.Errorf("%w: %s does not follow %s", ErrMalformedSeries,
				contracts.DateKey(b.Date), contracts.DateKey(bars[i-1].Date))
		}
		closes[i] = b.Close
	}

	sma50 := SMA(closes, ShortWindow)
	sma200 := SMA(closes, LongWindow)
	rsi := RSI(closes, RSIPeriod)
	macd, signal := MACD(closes, MACDFast, MACDSlow, MACDSignalSpan)

	rows := make([]contracts.IndicatorRow, 0, len(bars)-LongWindow+1)
	for i, b := range bars {
		if math.IsNaN(sma50[i]) || math.IsNaN(sma200[i]) || math.IsNaN(rsi[i]) {
			continue
		}
		rows = append(rows, contracts.IndicatorRow{
			StockID:    stockID,
			Date:       b.Date,
			SMA50:      sma50[i],
			SMA200:     sma200[i],
			RSI14:      rsi[i],
			MACD:       macd[i],
			MACDSignal: signal[i],
		})
	}
	return rows, nil
}
