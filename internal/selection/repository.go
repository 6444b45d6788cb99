package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/niftron/internal/contracts"
)

// ErrNoRecommendations is returned when nothing has been ranked yet
var ErrNoRecommendations = errors.New("no recommendations found")

// Repository handles recommendation persistence
// ⭐ SSOT: 추천 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ReplaceForDate supersedes every recommendation stored for date with recs.
// Delete and insert run in one transaction, so readers never see a partial set.
func (r *Repository) ReplaceForDate(ctx context.Context, date time.Time, recs []contracts.Recommendation) error {
	if err := ValidateRanks(recs); err != nil {
		return fmt.Errorf("refusing to store recommendations: %w", err)
	}

	day := contracts.Day(date)
	for _, rec := range recs {
		if !contracts.Day(rec.Date).Equal(day) {
			return fmt.Errorf("%w: recommendation for %s in set for %s",
				ErrInvalidDate, contracts.DateKey(rec.Date), contracts.DateKey(day))
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM recommendations WHERE date = $1", day); err != nil {
		return fmt.Errorf("failed to delete old recommendations: %w", err)
	}

	query := `
		INSERT INTO recommendations (
			date, rank, stock_id, score, model_type, algorithm_scores
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, rec := range recs {
		breakdown, err := json.Marshal(rec.Breakdown)
		if err != nil {
			return fmt.Errorf("failed to marshal breakdown: %w", err)
		}
		_, err = tx.Exec(ctx, query,
			day, rec.Rank, rec.StockID, rec.Score, string(rec.ModelType), breakdown,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recommendation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByDate returns the recommendations for date ordered by model type and rank
func (r *Repository) GetByDate(ctx context.Context, date time.Time) ([]contracts.Recommendation, error) {
	query := `
		SELECT r.date, r.rank, r.stock_id, s.symbol, s.company_name,
		       r.score, r.model_type, r.algorithm_scores
		FROM recommendations r
		JOIN stocks s ON s.stock_id = r.stock_id
		WHERE r.date = $1
		ORDER BY r.model_type, r.rank ASC
	`

	rows, err := r.pool.Query(ctx, query, contracts.Day(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	results := make([]contracts.Recommendation, 0)
	for rows.Next() {
		var rec contracts.Recommendation
		var model string
		var breakdown []byte

		if err := rows.Scan(
			&rec.Date, &rec.Rank, &rec.StockID, &rec.Symbol, &rec.CompanyName,
			&rec.Score, &model, &breakdown,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}

		rec.ModelType = contracts.ModelType(model)
		if err := json.Unmarshal(breakdown, &rec.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
		}
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recommendations: %w", err)
	}

	return results, nil
}

// LatestDate returns the most recent date with stored recommendations
func (r *Repository) LatestDate(ctx context.Context) (time.Time, error) {
	var date *time.Time
	err := r.pool.QueryRow(ctx, "SELECT MAX(date) FROM recommendations").Scan(&date)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && date == nil) {
		return time.Time{}, ErrNoRecommendations
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest recommendation date: %w", err)
	}
	return *date, nil
}

// GroupByModel splits a flat list into a recommendation set
func GroupByModel(date time.Time, recs []contracts.Recommendation) *contracts.RecommendationSet {
	set := &contracts.RecommendationSet{
		Date:      contracts.Day(date),
		Heuristic: make([]contracts.Recommendation, 0),
		Learned:   make([]contracts.Recommendation, 0),
	}
	for _, rec := range recs {
		switch rec.ModelType {
		case contracts.ModelHeuristic:
			set.Heuristic = append(set.Heuristic, rec)
		case contracts.ModelLearned:
			set.Learned = append(set.Learned, rec)
		}
	}
	return set
}
