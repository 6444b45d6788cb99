package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// StockRepository manages the equity universe
type StockRepository interface {
	List(ctx context.Context) ([]Stock, error)
	GetBySymbol(ctx context.Context, symbol string) (*Stock, error)
	Upsert(ctx context.Context, stock *Stock) (int64, error)
}

// PriceRepository manages daily price bars
type PriceRepository interface {
	GetByStock(ctx context.Context, stockID int64, to time.Time) ([]PriceBar, error)
	GetCloses(ctx context.Context, from, to time.Time) (map[int64][]PriceBar, error)
	SaveBatch(ctx context.Context, bars []PriceBar) (int, error)
}

// IndicatorRepository manages computed indicator rows
type IndicatorRepository interface {
	GetByStock(ctx context.Context, stockID int64, to time.Time) ([]IndicatorRow, error)
	GetRange(ctx context.Context, from, to time.Time) (map[int64][]IndicatorRow, error)
	SaveBatch(ctx context.Context, rows []IndicatorRow) error
}

// RecommendationRepository stores ranking output with per-date overwrite semantics
type RecommendationRepository interface {
	ReplaceForDate(ctx context.Context, date time.Time, recs []Recommendation) error
	GetByDate(ctx context.Context, date time.Time) ([]Recommendation, error)
	LatestDate(ctx context.Context) (time.Time, error)
}
