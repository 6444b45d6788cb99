package signals

import "github.com/wonny/niftron/internal/contracts"

// MACDScoreBullish is emitted on a fresh bullish macd crossing
const MACDScoreBullish = 100

// MACDCross detects a crossing of the macd line over its signal line
func MACDCross(cur, prev contracts.IndicatorRow) Cross {
	return edge(cur.MACD > cur.MACDSignal, prev.MACD > prev.MACDSignal)
}

// MACDScore is 100 on a bullish crossing and 0 otherwise.
// Bearish crossings score the same as no crossing: the recommender is long-only.
func MACDScore(cur, prev contracts.IndicatorRow) int {
	if MACDCross(cur, prev) == CrossBullish {
		return MACDScoreBullish
	}
	return 0
}
