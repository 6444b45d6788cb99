package s0_data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

// Skip reasons reported by the ingest stage
const (
	ReasonNoDataFile = "no_data_file"
	ReasonNoRows     = "no_valid_rows"
)

// ErrMissingColumn is returned when a price file lacks a required column
var ErrMissingColumn = errors.New("missing column")

// Ingestor loads daily bars from per-symbol CSV files
// ⭐ SSOT: 가격 적재(ingest) 단계
type Ingestor struct {
	stocks       contracts.StockRepository
	prices       contracts.PriceRepository
	dataDir      string
	universeFile string
	logger       *logger.Logger
}

// NewIngestor creates a new ingestor
func NewIngestor(stocks contracts.StockRepository, prices contracts.PriceRepository, dataDir, universeFile string, log *logger.Logger) *Ingestor {
	return &Ingestor{
		stocks:       stocks,
		prices:       prices,
		dataDir:      dataDir,
		universeFile: universeFile,
		logger:       log.WithField("module", "ingest"),
	}
}

// Ingest registers the universe and stores every bar dated on or before asOf
func (i *Ingestor) Ingest(ctx context.Context, asOf time.Time) (*contracts.BatchReport, error) {
	asOf = contracts.Day(asOf)
	report := &contracts.BatchReport{Stage: contracts.StageIngest, Date: asOf}

	if i.universeFile != "" {
		if err := i.registerUniverse(ctx); err != nil {
			return nil, err
		}
	}

	stocks, err := i.stocks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}

	for _, s := range stocks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Add(i.ingestStock(ctx, s, asOf))
	}

	i.logger.WithFields(map[string]interface{}{
		"date":      contracts.DateKey(asOf),
		"stocks":    len(stocks),
		"succeeded": report.Count(contracts.StockSucceeded),
		"skipped":   report.Count(contracts.StockSkipped),
		"failed":    report.Count(contracts.StockFailed),
	}).Info("Ingest completed")

	return report, nil
}

func (i *Ingestor) ingestStock(ctx context.Context, s contracts.Stock, asOf time.Time) contracts.StockResult {
	result := contracts.StockResult{StockID: s.ID, Symbol: s.Symbol}

	f, err := os.Open(filepath.Join(i.dataDir, s.Symbol+".csv"))
	if errors.Is(err, os.ErrNotExist) {
		result.Status = contracts.StockSkipped
		result.Reason = ReasonNoDataFile
		return result
	}
	if err != nil {
		result.Status = contracts.StockFailed
		result.Reason = err.Error()
		return result
	}
	defer f.Close()

	bars, dropped, err := ParseBars(f, s.ID, asOf)
	if err != nil {
		i.logger.WithError(err).WithField("symbol", s.Symbol).Warn("Failed to parse price file")
		result.Status = contracts.StockFailed
		result.Reason = err.Error()
		return result
	}
	if len(bars) == 0 {
		result.Status = contracts.StockSkipped
		result.Reason = ReasonNoRows
		return result
	}

	inserted, err := i.prices.SaveBatch(ctx, bars)
	if err != nil {
		result.Status = contracts.StockFailed
		result.Reason = err.Error()
		return result
	}

	i.logger.WithFields(map[string]interface{}{
		"symbol":   s.Symbol,
		"parsed":   len(bars),
		"dropped":  dropped,
		"inserted": inserted,
	}).Debug("Stock ingested")

	result.Status = contracts.StockSucceeded
	result.Rows = inserted
	return result
}

func (i *Ingestor) registerUniverse(ctx context.Context) error {
	f, err := os.Open(i.universeFile)
	if err != nil {
		return fmt.Errorf("failed to open universe file: %w", err)
	}
	defer f.Close()

	stocks, err := ParseUniverse(f)
	if err != nil {
		return fmt.Errorf("failed to parse universe file: %w", err)
	}

	for idx := range stocks {
		if _, err := i.stocks.Upsert(ctx, &stocks[idx]); err != nil {
			return err
		}
	}

	i.logger.WithField("stocks", len(stocks)).Info("Universe registered")
	return nil
}

// ParseUniverse reads symbol,company_name records. A header row is optional.
func ParseUniverse(r io.Reader) ([]contracts.Stock, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var stocks []contracts.Stock
	for n, rec := range records {
		symbol := strings.TrimSpace(rec[0])
		if symbol == "" {
			continue
		}
		if n == 0 && strings.EqualFold(symbol, "symbol") {
			continue
		}

		s := contracts.Stock{Symbol: symbol}
		if len(rec) > 1 {
			s.CompanyName = strings.TrimSpace(rec[1])
		}
		stocks = append(stocks, s)
	}
	return stocks, nil
}

// ParseBars reads a daily OHLCV file with a header row.
// Rows missing any OHLCV value, with volume <= 0 or dated after asOf are dropped.
// A zero asOf disables the date bound.
func ParseBars(r io.Reader, stockID int64, asOf time.Time) ([]contracts.PriceBar, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, err
	}
	if len(records) == 0 {
		return nil, 0, nil
	}

	cols := make(map[string]int, len(records[0]))
	for idx, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	for _, required := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	adjCol, hasAdj := cols["adj close"]

	var bars []contracts.PriceBar
	dropped := 0
	for _, rec := range records[1:] {
		bar, ok := parseBar(rec, cols, adjCol, hasAdj)
		if !ok || (!asOf.IsZero() && bar.Date.After(asOf)) {
			dropped++
			continue
		}
		bar.StockID = stockID
		bars = append(bars, bar)
	}
	return bars, dropped, nil
}

func parseBar(rec []string, cols map[string]int, adjCol int, hasAdj bool) (contracts.PriceBar, bool) {
	field := func(idx int) string {
		if idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	var bar contracts.PriceBar

	raw := field(cols["date"])
	if len(raw) < len(contracts.DateLayout) {
		return bar, false
	}
	date, err := contracts.ParseDay(raw[:len(contracts.DateLayout)])
	if err != nil {
		return bar, false
	}
	bar.Date = date

	values := make([]float64, 5)
	for n, name := range []string{"open", "high", "low", "close", "volume"} {
		v, err := strconv.ParseFloat(field(cols[name]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return bar, false
		}
		values[n] = v
	}
	if values[4] <= 0 {
		return bar, false
	}

	bar.Open, bar.High, bar.Low, bar.Close = values[0], values[1], values[2], values[3]
	bar.Volume = int64(values[4])
	bar.AdjustedClose = bar.Close
	if hasAdj {
		if v, err := strconv.ParseFloat(field(adjCol), 64); err == nil && !math.IsNaN(v) {
			bar.AdjustedClose = v
		}
	}
	return bar, true
}
