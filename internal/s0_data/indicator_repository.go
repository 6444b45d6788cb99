package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/niftron/internal/contracts"
)

// IndicatorRepository implements contracts.IndicatorRepository
// ⭐ SSOT: 지표 저장소는 여기서만
type IndicatorRepository struct {
	pool *pgxpool.Pool
}

// NewIndicatorRepository creates a new indicator repository
func NewIndicatorRepository(pool *pgxpool.Pool) *IndicatorRepository {
	return &IndicatorRepository{pool: pool}
}

const indicatorColumns = `stock_id, date, sma_50, sma_200, rsi_14, macd_value, macd_signal`

func scanIndicator(row pgx.Row) (contracts.IndicatorRow, error) {
	var ir contracts.IndicatorRow
	err := row.Scan(&ir.StockID, &ir.Date, &ir.SMA50, &ir.SMA200, &ir.RSI14, &ir.MACD, &ir.MACDSignal)
	ir.Date = contracts.Day(ir.Date)
	return ir, err
}

// GetByStock returns one stock's rows up to and including to, oldest first
func (r *IndicatorRepository) GetByStock(ctx context.Context, stockID int64, to time.Time) ([]contracts.IndicatorRow, error) {
	query := `
		SELECT ` + indicatorColumns + `
		FROM features
		WHERE stock_id = $1 AND date <= $2
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, stockID, contracts.Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query indicators for stock %d: %w", stockID, err)
	}
	defer rows.Close()

	var out []contracts.IndicatorRow
	for rows.Next() {
		ir, err := scanIndicator(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}
		out = append(out, ir)
	}
	return out, rows.Err()
}

// GetRange returns every stock's rows within [from, to], grouped by stock and oldest first
func (r *IndicatorRepository) GetRange(ctx context.Context, from, to time.Time) (map[int64][]contracts.IndicatorRow, error) {
	query := `
		SELECT ` + indicatorColumns + `
		FROM features
		WHERE date >= $1 AND date <= $2
		ORDER BY stock_id, date ASC
	`

	rows, err := r.pool.Query(ctx, query, contracts.Day(from), contracts.Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query indicators: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]contracts.IndicatorRow)
	for rows.Next() {
		ir, err := scanIndicator(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}
		out[ir.StockID] = append(out[ir.StockID], ir)
	}
	return out, rows.Err()
}

// SaveBatch upserts indicator rows
func (r *IndicatorRepository) SaveBatch(ctx context.Context, rows []contracts.IndicatorRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO features (` + indicatorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stock_id, date) DO UPDATE SET
			sma_50 = EXCLUDED.sma_50,
			sma_200 = EXCLUDED.sma_200,
			rsi_14 = EXCLUDED.rsi_14,
			macd_value = EXCLUDED.macd_value,
			macd_signal = EXCLUDED.macd_signal
	`

	batch := &pgx.Batch{}
	for _, ir := range rows {
		batch.Queue(query, ir.StockID, contracts.Day(ir.Date), ir.SMA50, ir.SMA200, ir.RSI14, ir.MACD, ir.MACDSignal)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert indicator: %w", err)
		}
	}
	return nil
}

// CountOnDate returns how many stocks have an indicator row on date
func (r *IndicatorRepository) CountOnDate(ctx context.Context, date time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT stock_id) FROM features WHERE date = $1`, contracts.Day(date),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count indicators on %s: %w", contracts.DateKey(date), err)
	}
	return n, nil
}
