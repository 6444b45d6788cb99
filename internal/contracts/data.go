package contracts

import "time"

// DateLayout is the canonical calendar-date format used in keys, JSON and CLI flags
const DateLayout = "2006-01-02"

// Stock is one member of the equity universe
type Stock struct {
	ID          int64  `json:"stock_id"`
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name"`
}

// PriceBar is one daily OHLCV record. Immutable once ingested; one per (stock, trading day).
// ⭐ SSOT: 가격 데이터 전달 구조
type PriceBar struct {
	StockID       int64     `json:"stock_id"`
	Date          time.Time `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
}

// IndicatorRow holds the smoothed indicators for one stock on one date.
// Rows only exist once every field is defined (after warm-up).
type IndicatorRow struct {
	StockID    int64     `json:"stock_id"`
	Date       time.Time `json:"date"`
	SMA50      float64   `json:"sma_50"`
	SMA200     float64   `json:"sma_200"`
	RSI14      float64   `json:"rsi_14"`
	MACD       float64   `json:"macd"`
	MACDSignal float64   `json:"macd_signal"`
}

// Day truncates t to a UTC calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC calendar date
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DateKey formats t as YYYY-MM-DD
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Coverage keys of a DataQualitySnapshot
const (
	CoveragePrice     = "price"
	CoverageIndicator = "indicator"
)

// DataQualitySnapshot records how complete the stored data is for one date
// ⭐ SSOT: 데이터 품질 스냅샷
type DataQualitySnapshot struct {
	Date         time.Time          `json:"date"`
	TotalStocks  int                `json:"total_stocks"`
	ValidStocks  int                `json:"valid_stocks"`
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
	Passed       bool               `json:"passed"`
}
