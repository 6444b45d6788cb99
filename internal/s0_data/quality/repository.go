package quality

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/niftron/internal/contracts"
)

// ErrSnapshotNotFound is returned when no snapshot exists for the requested date
var ErrSnapshotNotFound = errors.New("quality snapshot not found")

// Repository handles data quality snapshot persistence
// ⭐ SSOT: 품질 스냅샷 저장/조회
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quality repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const snapshotColumns = `snapshot_date, total_stocks, valid_stocks, price_coverage, indicator_coverage, quality_score, passed`

// SaveSnapshot upserts a data quality snapshot
func (r *Repository) SaveSnapshot(ctx context.Context, snapshot *contracts.DataQualitySnapshot) error {
	query := `
		INSERT INTO data_quality_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (snapshot_date) DO UPDATE SET
			total_stocks = EXCLUDED.total_stocks,
			valid_stocks = EXCLUDED.valid_stocks,
			price_coverage = EXCLUDED.price_coverage,
			indicator_coverage = EXCLUDED.indicator_coverage,
			quality_score = EXCLUDED.quality_score,
			passed = EXCLUDED.passed,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		contracts.Day(snapshot.Date),
		snapshot.TotalStocks,
		snapshot.ValidStocks,
		snapshot.Coverage[contracts.CoveragePrice],
		snapshot.Coverage[contracts.CoverageIndicator],
		snapshot.QualityScore,
		snapshot.Passed,
	)
	if err != nil {
		return fmt.Errorf("save quality snapshot: %w", err)
	}

	return nil
}

// GetByDate retrieves a quality snapshot by date
func (r *Repository) GetByDate(ctx context.Context, date time.Time) (*contracts.DataQualitySnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM data_quality_snapshots WHERE snapshot_date = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, contracts.Day(date)))
}

// GetLatest retrieves the most recent quality snapshot
func (r *Repository) GetLatest(ctx context.Context) (*contracts.DataQualitySnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM data_quality_snapshots ORDER BY snapshot_date DESC LIMIT 1`
	return r.scanOne(r.pool.QueryRow(ctx, query))
}

func (r *Repository) scanOne(row pgx.Row) (*contracts.DataQualitySnapshot, error) {
	snapshot := &contracts.DataQualitySnapshot{
		Coverage: make(map[string]float64),
	}

	var priceCov, indicatorCov float64
	err := row.Scan(
		&snapshot.Date,
		&snapshot.TotalStocks,
		&snapshot.ValidStocks,
		&priceCov,
		&indicatorCov,
		&snapshot.QualityScore,
		&snapshot.Passed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quality snapshot: %w", err)
	}

	snapshot.Date = contracts.Day(snapshot.Date)
	snapshot.Coverage[contracts.CoveragePrice] = priceCov
	snapshot.Coverage[contracts.CoverageIndicator] = indicatorCov

	return snapshot, nil
}
