package ensemble

import (
	"sort"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/internal/signals"
)

// LabelConfig controls forward-return labelling
type LabelConfig struct {
	HorizonDays int     // forward window of the training target
	Threshold   float64 // target = 1 iff forward return > Threshold
}

// DefaultLabelConfig is a 10 trading day horizon with a +2% threshold
var DefaultLabelConfig = LabelConfig{HorizonDays: 10, Threshold: 0.02}

// LabeledRow is one training / simulation observation.
// DailyReturn feeds the simulator only and is never a model feature.
type LabeledRow struct {
	Signal        contracts.SignalRow `json:"signal"`
	Close         float64             `json:"close"`
	ForwardReturn float64             `json:"forward_return"`
	Target        int                 `json:"target"`
	DailyReturn   float64             `json:"daily_return"`
}

// PrepareStock joins one stock's indicator rows with its closes, derives the
// signals and attaches forward returns. Rows without a close, a predecessor,
// or a full forward window are dropped.
func PrepareStock(rows []contracts.IndicatorRow, closes map[string]float64, cfg LabelConfig) []LabeledRow {
	type point struct {
		row   contracts.IndicatorRow
		close float64
	}

	joined := make([]point, 0, len(rows))
	for _, r := range rows {
		if c, ok := closes[contracts.DateKey(r.Date)]; ok && c > 0 {
			joined = append(joined, point{row: r, close: c})
		}
	}

	var out []LabeledRow
	for i := 1; i+cfg.HorizonDays < len(joined) && i+1 < len(joined); i++ {
		p := joined[i]
		forward := joined[i+cfg.HorizonDays].close/p.close - 1
		daily := joined[i+1].close/p.close - 1

		target := 0
		if forward > cfg.Threshold {
			target = 1
		}

		out = append(out, LabeledRow{
			Signal:        signals.Generate(p.row, joined[i-1].row),
			Close:         p.close,
			ForwardReturn: forward,
			Target:        target,
			DailyReturn:   daily,
		})
	}
	return out
}

// PrepareDataset builds the labelled dataset for the whole universe,
// ordered chronologically (date, then stock id).
func PrepareDataset(indicators map[int64][]contracts.IndicatorRow, prices map[int64][]contracts.PriceBar, cfg LabelConfig) []LabeledRow {
	var out []LabeledRow
	for stockID, rows := range indicators {
		bars := prices[stockID]
		closes := make(map[string]float64, len(bars))
		for _, b := range bars {
			closes[contracts.DateKey(b.Date)] = b.Close
		}
		out = append(out, PrepareStock(rows, closes, cfg)...)
	}

	SortChronologically(out)
	return out
}

// SortChronologically orders rows by date, then stock id
func SortChronologically(rows []LabeledRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Signal, rows[j].Signal
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.StockID < b.StockID
	})
}
