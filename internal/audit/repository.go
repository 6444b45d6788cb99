package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/niftron/internal/contracts"
)

// Repository handles performance report persistence
// ⭐ SSOT: 성과 리포트 저장/조회
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveReport replaces the stored metrics for the report's window and model version
func (r *Repository) SaveReport(ctx context.Context, report *Report) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM performance_reports
		WHERE period_start = $1 AND period_end = $2 AND model_version = $3
	`, contracts.Day(report.Start), contracts.Day(report.End), report.ModelVersion)
	if err != nil {
		return fmt.Errorf("failed to delete previous report: %w", err)
	}

	query := `
		INSERT INTO performance_reports (
			period_start, period_end, model_version, strategy, periods,
			total_return, cagr, annualized_volatility, sharpe, sortino,
			calmar, max_drawdown, alpha, beta, win_rate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	batch := &pgx.Batch{}
	for _, m := range report.Metrics {
		batch.Queue(query,
			contracts.Day(report.Start), contracts.Day(report.End), report.ModelVersion, m.Strategy, m.Periods,
			m.TotalReturn, m.CAGR, m.AnnualizedVolatility, m.Sharpe, m.Sortino,
			m.Calmar, m.MaxDrawdown, m.Alpha, m.Beta, m.WinRate,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range report.Metrics {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert metrics: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// GetLatestMetrics returns the metrics of the most recently saved report
func (r *Repository) GetLatestMetrics(ctx context.Context) ([]*contracts.PerformanceMetrics, time.Time, error) {
	query := `
		SELECT strategy, periods, total_return, cagr, annualized_volatility, sharpe,
		       sortino, calmar, max_drawdown, alpha, beta, win_rate, created_at
		FROM performance_reports
		WHERE created_at = (SELECT MAX(created_at) FROM performance_reports)
		ORDER BY strategy
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query performance reports: %w", err)
	}
	defer rows.Close()

	var out []*contracts.PerformanceMetrics
	var createdAt time.Time
	for rows.Next() {
		m := &contracts.PerformanceMetrics{}
		if err := rows.Scan(
			&m.Strategy, &m.Periods, &m.TotalReturn, &m.CAGR, &m.AnnualizedVolatility, &m.Sharpe,
			&m.Sortino, &m.Calmar, &m.MaxDrawdown, &m.Alpha, &m.Beta, &m.WinRate, &createdAt,
		); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan metrics: %w", err)
		}
		out = append(out, m)
	}
	return out, createdAt, rows.Err()
}
