package signals

import (
	"github.com/wonny/niftron/internal/contracts"
)

// Generate derives the signal row for cur using its predecessor prev
// ⭐ SSOT: 지표 → 시그널 변환은 여기서만
func Generate(cur, prev contracts.IndicatorRow) contracts.SignalRow {
	return contracts.SignalRow{
		StockID:       cur.StockID,
		Date:          cur.Date,
		TrendSignal:   Trend(cur, prev),
		MomentumScore: Momentum(cur),
		MACDScore:     MACDScore(cur, prev),
	}
}

// Build converts one stock's chronologically ordered indicator rows into signal rows.
// The first row has no predecessor and yields no signal.
func Build(rows []contracts.IndicatorRow) []contracts.SignalRow {
	if len(rows) < 2 {
		return nil
	}

	out := make([]contracts.SignalRow, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		out = append(out, Generate(rows[i], rows[i-1]))
	}
	return out
}

// Latest returns the signal for the last row, if it has a predecessor
func Latest(rows []contracts.IndicatorRow) (contracts.SignalRow, bool) {
	n := len(rows)
	if n < 2 {
		return contracts.SignalRow{}, false
	}
	return Generate(rows[n-1], rows[n-2]), true
}
