package indicators

import "math"

// SMA returns the trailing simple mean over window values.
// Entries before the window fills are NaN.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i+1 < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

// EMA returns the exponentially smoothed series with α = 2/(span+1),
// seeded with the first observed value.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1] + alpha*(values[i]-out[i-1])
	}
	return out
}

// RSI returns the relative strength index over a trailing window of period
// price changes, using simple means of gains and losses. The first defined
// value is at index period. A zero loss average saturates at 100.
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(values) <= period {
		return out
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(values); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period {
			continue
		}
		out[i] = rsiValue(gainSum/float64(period), lossSum/float64(period))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	// running sums can leave tiny negative residue
	if avgLoss <= 1e-12 {
		return 100
	}
	if avgGain < 0 {
		avgGain = 0
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the macd line (ema fast − ema slow) and its signal line
func MACD(values []float64, fast, slow, signal int) ([]float64, []float64) {
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)

	line := make([]float64, len(values))
	for i := range values {
		line[i] = emaFast[i] - emaSlow[i]
	}
	return line, EMA(line, signal)
}
