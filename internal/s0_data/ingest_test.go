package s0_data

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

const samplePrices = `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-02,100,102,99,101,100.5,12000
2024-01-03,101,103,100,102,101.5,0
2024-01-04,,103,100,102,101.5,9000
2024-01-05 00:00:00+05:30,102,104,101,103,102.5,15000.0
2024-01-08,103,105,102,104,103.5,11000
`

func TestParseBars(t *testing.T) {
	asOf := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	bars, dropped, err := ParseBars(strings.NewReader(samplePrices), 7, asOf)
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, 3, dropped, "zero volume, missing open and post as-of rows are dropped")

	assert.Equal(t, int64(7), bars[0].StockID)
	assert.Equal(t, "2024-01-02", contracts.DateKey(bars[0].Date))
	assert.Equal(t, 101.0, bars[0].Close)
	assert.Equal(t, 100.5, bars[0].AdjustedClose)
	assert.Equal(t, int64(12000), bars[0].Volume)

	assert.Equal(t, "2024-01-05", contracts.DateKey(bars[1].Date))
	assert.Equal(t, int64(15000), bars[1].Volume)
}

func TestParseBars_NoAsOfBound(t *testing.T) {
	bars, _, err := ParseBars(strings.NewReader(samplePrices), 1, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestParseBars_MissingAdjClose(t *testing.T) {
	in := "date,open,high,low,close,volume\n2024-01-02,1,2,1,1.5,10\n"

	bars, _, err := ParseBars(strings.NewReader(in), 1, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].AdjustedClose)
}

func TestParseBars_MissingColumn(t *testing.T) {
	_, _, err := ParseBars(strings.NewReader("Date,Open,High,Low,Close\n"), 1, time.Time{})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseUniverse(t *testing.T) {
	in := "symbol,company_name\nRELIANCE.NS,Reliance Industries\n\nTCS.NS\n"

	stocks, err := ParseUniverse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, "RELIANCE.NS", stocks[0].Symbol)
	assert.Equal(t, "Reliance Industries", stocks[0].CompanyName)
	assert.Equal(t, "TCS.NS", stocks[1].Symbol)
	assert.Empty(t, stocks[1].CompanyName)
}

type memStocks struct {
	stocks []contracts.Stock
}

func (m *memStocks) List(context.Context) ([]contracts.Stock, error) { return m.stocks, nil }

func (m *memStocks) GetBySymbol(_ context.Context, symbol string) (*contracts.Stock, error) {
	for i := range m.stocks {
		if m.stocks[i].Symbol == symbol {
			return &m.stocks[i], nil
		}
	}
	return nil, ErrStockNotFound
}

func (m *memStocks) Upsert(_ context.Context, s *contracts.Stock) (int64, error) {
	for i := range m.stocks {
		if m.stocks[i].Symbol == s.Symbol {
			s.ID = m.stocks[i].ID
			return s.ID, nil
		}
	}
	s.ID = int64(len(m.stocks) + 1)
	m.stocks = append(m.stocks, *s)
	return s.ID, nil
}

type memPrices struct {
	saved []contracts.PriceBar
}

func (m *memPrices) GetByStock(context.Context, int64, time.Time) ([]contracts.PriceBar, error) {
	return nil, nil
}

func (m *memPrices) GetCloses(context.Context, time.Time, time.Time) (map[int64][]contracts.PriceBar, error) {
	return nil, nil
}

func (m *memPrices) SaveBatch(_ context.Context, bars []contracts.PriceBar) (int, error) {
	m.saved = append(m.saved, bars...)
	return len(bars), nil
}

func TestIngestor_Ingest(t *testing.T) {
	dir := t.TempDir()
	universe := filepath.Join(dir, "universe.csv")
	require.NoError(t, os.WriteFile(universe, []byte("symbol,company_name\nAAA,Alpha\nBBB,Beta\nCCC,Gamma\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAA.csv"), []byte(samplePrices), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CCC.csv"), []byte("Open,Close\n1,2\n"), 0o644))

	stocks := &memStocks{}
	prices := &memPrices{}
	ing := NewIngestor(stocks, prices, dir, universe, logger.Nop())

	report, err := ing.Ingest(context.Background(), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, contracts.StageIngest, report.Stage)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 1, report.Count(contracts.StockSucceeded))
	assert.Equal(t, 1, report.Count(contracts.StockSkipped))
	assert.Equal(t, 1, report.Count(contracts.StockFailed))

	assert.Equal(t, 3, report.Results[0].Rows)
	assert.Equal(t, ReasonNoDataFile, report.Results[1].Reason)
	assert.Equal(t, "CCC", report.Failures()[0].Symbol)
	assert.Len(t, prices.saved, 3)
}

func TestPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db", pgx5URL("postgres://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://u:p@h:5432/db", pgx5URL("postgresql://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://x", pgx5URL("pgx5://x"))
}
