package audit

import "github.com/wonny/niftron/internal/contracts"

// EquityCurve compounds a return series into Π(1+r), starting from the first period
func EquityCurve(series contracts.ReturnSeries) []contracts.EquityPoint {
	out := make([]contracts.EquityPoint, len(series.Points))
	value := 1.0
	for i, p := range series.Points {
		value *= 1 + p.Return
		out[i] = contracts.EquityPoint{Date: p.Date, Value: value}
	}
	return out
}
