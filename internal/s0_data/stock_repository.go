package s0_data

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/niftron/internal/contracts"
)

// ErrStockNotFound is returned when a symbol is not part of the universe
var ErrStockNotFound = errors.New("stock not found")

// StockRepository implements contracts.StockRepository
// ⭐ SSOT: 종목 마스터 저장소는 여기서만
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository creates a new stock repository
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// List returns the whole universe ordered by stock id
func (r *StockRepository) List(ctx context.Context) ([]contracts.Stock, error) {
	rows, err := r.pool.Query(ctx, `SELECT stock_id, symbol, company_name FROM stocks ORDER BY stock_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	var stocks []contracts.Stock
	for rows.Next() {
		var s contracts.Stock
		if err := rows.Scan(&s.ID, &s.Symbol, &s.CompanyName); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// GetBySymbol looks up a stock by its ticker symbol
func (r *StockRepository) GetBySymbol(ctx context.Context, symbol string) (*contracts.Stock, error) {
	var s contracts.Stock
	err := r.pool.QueryRow(ctx,
		`SELECT stock_id, symbol, company_name FROM stocks WHERE symbol = $1`, symbol,
	).Scan(&s.ID, &s.Symbol, &s.CompanyName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrStockNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock %s: %w", symbol, err)
	}
	return &s, nil
}

// Upsert inserts the stock or refreshes its company name, returning its id
func (r *StockRepository) Upsert(ctx context.Context, stock *contracts.Stock) (int64, error) {
	query := `
		INSERT INTO stocks (symbol, company_name)
		VALUES ($1, $2)
		ON CONFLICT (symbol) DO UPDATE SET
			company_name = CASE WHEN EXCLUDED.company_name = '' THEN stocks.company_name
			                    ELSE EXCLUDED.company_name END
		RETURNING stock_id
	`

	var id int64
	if err := r.pool.QueryRow(ctx, query, stock.Symbol, stock.CompanyName).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert stock %s: %w", stock.Symbol, err)
	}
	stock.ID = id
	return id, nil
}

// Count returns the size of the universe
func (r *StockRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stocks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count stocks: %w", err)
	}
	return n, nil
}
