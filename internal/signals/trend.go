package signals

import "github.com/wonny/niftron/internal/contracts"

// Cross is the direction of a sign change between two adjacent rows
type Cross int

const (
	CrossNone    Cross = 0
	CrossBullish Cross = 1
	CrossBearish Cross = -1
)

// edge detects a rising or falling transition of a boolean state
func edge(now, before bool) Cross {
	switch {
	case now && !before:
		return CrossBullish
	case !now && before:
		return CrossBearish
	default:
		return CrossNone
	}
}

// Trend returns +1 on a golden cross (sma_50 moves above sma_200),
// -1 on a death cross, 0 otherwise.
func Trend(cur, prev contracts.IndicatorRow) int {
	return int(edge(cur.SMA50 > cur.SMA200, prev.SMA50 > prev.SMA200))
}
