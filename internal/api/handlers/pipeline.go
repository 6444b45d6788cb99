package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/niftron/internal/brain"
	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/internal/s0_data/quality"
	"github.com/wonny/niftron/pkg/logger"
	"github.com/wonny/niftron/pkg/redis"
)

// PipelineRunner runs the ordered daily stages for an as-of date
type PipelineRunner interface {
	RunDaily(ctx context.Context, asOf time.Time) (*brain.RunResult, error)
}

// SnapshotReader reads stored quality gate snapshots
type SnapshotReader interface {
	GetLatest(ctx context.Context) (*contracts.DataQualitySnapshot, error)
}

// PipelineHandler triggers pipeline runs and reports data quality
// ⭐ SSOT: 파이프라인 실행 API 핸들러
type PipelineHandler struct {
	runner   PipelineRunner
	limiter  *redis.RateLimiter
	quality  SnapshotReader
	timeout  time.Duration
	inFlight atomic.Bool
	wg       sync.WaitGroup
	logger   *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler. limiter may be nil.
func NewPipelineHandler(runner PipelineRunner, limiter *redis.RateLimiter, quality SnapshotReader, timeout time.Duration, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		runner:  runner,
		limiter: limiter,
		quality: quality,
		timeout: timeout,
		logger:  log,
	}
}

// RunAnalysisRequest names the as-of date to process
type RunAnalysisRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
}

// RunAnalysis starts the daily pipeline in the background
// POST /api/v1/run-analysis
func (h *PipelineHandler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	var req RunAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	asOf, err := contracts.ParseDay(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}

	if h.limiter != nil {
		allowed, remaining, err := h.limiter.Allow(r.Context(), redis.RunAnalysisRateLimit)
		if err != nil {
			h.logger.WithError(err).Warn("Rate limiter unavailable, allowing request")
		} else {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				respondError(w, http.StatusTooManyRequests, "Rate limit exceeded, try again later")
				return
			}
		}
	}

	if !h.inFlight.CompareAndSwap(false, true) {
		respondError(w, http.StatusConflict, "A pipeline run is already in progress")
		return
	}

	h.wg.Add(1)
	go h.run(asOf)

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "accepted",
		"date":    contracts.DateKey(asOf),
		"message": "Analysis pipeline triggered, new recommendations are being generated",
	})
}

func (h *PipelineHandler) run(asOf time.Time) {
	defer h.wg.Done()
	defer h.inFlight.Store(false)

	ctx := context.Background()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	log := h.logger.WithField("date", contracts.DateKey(asOf))
	result, err := h.runner.RunDaily(ctx, asOf)
	if errors.Is(err, brain.ErrRunInProgress) {
		log.Warn("Triggered run skipped, pipeline already running")
		return
	}
	if err != nil {
		log.WithError(err).Error("Triggered pipeline run failed")
		return
	}
	log.WithField("run_id", result.RunID).Info("Triggered pipeline run completed")
}

// Wait blocks until triggered runs have finished
func (h *PipelineHandler) Wait() {
	h.wg.Wait()
}

// GetQuality returns the latest data quality snapshot
// GET /api/v1/data/quality
func (h *PipelineHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.quality.GetLatest(r.Context())
	if errors.Is(err, quality.ErrSnapshotNotFound) {
		respondError(w, http.StatusNotFound, "No quality snapshot found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get quality snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve quality snapshot")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}
