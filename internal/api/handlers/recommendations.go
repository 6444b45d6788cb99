package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/internal/selection"
	"github.com/wonny/niftron/pkg/logger"
	"github.com/wonny/niftron/pkg/redis"
)

// RecommendationReader reads stored ranking output
type RecommendationReader interface {
	GetByDate(ctx context.Context, date time.Time) ([]contracts.Recommendation, error)
	LatestDate(ctx context.Context) (time.Time, error)
}

// RecommendationHandler serves the ranked buy candidates
// ⭐ SSOT: 추천 조회 API 핸들러
type RecommendationHandler struct {
	repo   RecommendationReader
	cache  *redis.Cache
	logger *logger.Logger
}

// NewRecommendationHandler creates a new recommendation handler. cache may be nil.
func NewRecommendationHandler(repo RecommendationReader, cache *redis.Cache, log *logger.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

// RecommendationResponse holds both model lists for one date
type RecommendationResponse struct {
	Date      string                     `json:"date"`
	Heuristic []contracts.Recommendation `json:"heuristic_recommendations"`
	Learned   []contracts.Recommendation `json:"learned_recommendations"`
}

// GetRecommendations returns recommendations for a date, defaulting to the latest ranked date
// GET /api/v1/recommendations?date=YYYY-MM-DD
func (h *RecommendationHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, explicit, err := queryDate(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !explicit {
		date, err = h.repo.LatestDate(ctx)
		if errors.Is(err, selection.ErrNoRecommendations) {
			respondError(w, http.StatusNotFound, "No recommendations found")
			return
		}
		if err != nil {
			h.logger.WithError(err).Error("Failed to get latest recommendation date")
			respondError(w, http.StatusInternalServerError, "Failed to retrieve recommendations")
			return
		}
	}

	key := redis.RecommendationsKey(contracts.DateKey(date))
	if h.cache != nil {
		var cached RecommendationResponse
		if hit, err := h.cache.Get(ctx, key, &cached); err != nil {
			h.logger.WithError(err).Warn("Recommendation cache read failed")
		} else if hit {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	recs, err := h.repo.GetByDate(ctx, date)
	if err != nil {
		h.logger.WithError(err).WithField("date", contracts.DateKey(date)).Error("Failed to get recommendations")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve recommendations")
		return
	}
	if len(recs) == 0 {
		respondError(w, http.StatusNotFound, "No recommendations for "+contracts.DateKey(date))
		return
	}

	set := selection.GroupByModel(date, recs)
	resp := RecommendationResponse{
		Date:      contracts.DateKey(set.Date),
		Heuristic: set.Heuristic,
		Learned:   set.Learned,
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, resp, redis.TTLShort); err != nil {
			h.logger.WithError(err).Warn("Recommendation cache write failed")
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
