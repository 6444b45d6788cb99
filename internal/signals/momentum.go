package signals

import "github.com/wonny/niftron/internal/contracts"

// Momentum inverts RSI so that oversold stocks score high
func Momentum(cur contracts.IndicatorRow) float64 {
	return 100 - cur.RSI14
}
