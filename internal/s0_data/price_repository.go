package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/niftron/internal/contracts"
)

// PriceRepository implements contracts.PriceRepository.
// Prices are NUMERIC in storage and cross the boundary as decimals.
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

const priceColumns = `stock_id, date, open_price, high_price, low_price, close_price, adjusted_close_price, volume`

func scanPrice(row pgx.Row) (contracts.PriceBar, error) {
	var p contracts.PriceBar
	var open, high, low, closePrice, adjusted decimal.Decimal
	if err := row.Scan(&p.StockID, &p.Date, &open, &high, &low, &closePrice, &adjusted, &p.Volume); err != nil {
		return p, err
	}
	p.Date = contracts.Day(p.Date)
	p.Open = open.InexactFloat64()
	p.High = high.InexactFloat64()
	p.Low = low.InexactFloat64()
	p.Close = closePrice.InexactFloat64()
	p.AdjustedClose = adjusted.InexactFloat64()
	return p, nil
}

// GetByStock returns one stock's bars up to and including to, oldest first
func (r *PriceRepository) GetByStock(ctx context.Context, stockID int64, to time.Time) ([]contracts.PriceBar, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM daily_price_data
		WHERE stock_id = $1 AND date <= $2
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, stockID, contracts.Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for stock %d: %w", stockID, err)
	}
	defer rows.Close()

	var bars []contracts.PriceBar
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		bars = append(bars, p)
	}
	return bars, rows.Err()
}

// GetCloses returns every stock's bars within [from, to], grouped by stock and oldest first.
// A zero from means no lower bound.
func (r *PriceRepository) GetCloses(ctx context.Context, from, to time.Time) (map[int64][]contracts.PriceBar, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM daily_price_data
		WHERE date >= $1 AND date <= $2
		ORDER BY stock_id, date ASC
	`

	rows, err := r.pool.Query(ctx, query, contracts.Day(from), contracts.Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]contracts.PriceBar)
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		out[p.StockID] = append(out[p.StockID], p)
	}
	return out, rows.Err()
}

// SaveBatch inserts bars, keeping any bar already stored for the same (stock, date).
// Returns the number of rows actually inserted.
func (r *PriceRepository) SaveBatch(ctx context.Context, bars []contracts.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO daily_price_data (` + priceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (stock_id, date) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(query,
			b.StockID, contracts.Day(b.Date),
			decimal.NewFromFloat(b.Open),
			decimal.NewFromFloat(b.High),
			decimal.NewFromFloat(b.Low),
			decimal.NewFromFloat(b.Close),
			decimal.NewFromFloat(b.AdjustedClose),
			b.Volume,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range bars {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert price: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// CountOnDate returns how many stocks have a bar on date
func (r *PriceRepository) CountOnDate(ctx context.Context, date time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT stock_id) FROM daily_price_data WHERE date = $1`, contracts.Day(date),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count prices on %s: %w", contracts.DateKey(date), err)
	}
	return n, nil
}
