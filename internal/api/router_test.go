package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/wonny/niftron/internal/api/handlers"
	"github.com/wonny/niftron/internal/audit"
	"github.com/wonny/niftron/internal/backtest"
	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/internal/selection"
	"github.com/wonny/niftron/pkg/database"
	"github.com/wonny/niftron/pkg/logger"
)

type healthyDB struct{}

func (healthyDB) HealthCheck(context.Context) (*database.HealthStatus, error) {
	return &database.HealthStatus{Healthy: true}, nil
}

type noRecommendations struct{}

func (noRecommendations) GetByDate(context.Context, time.Time) ([]contracts.Recommendation, error) {
	return nil, nil
}

func (noRecommendations) LatestDate(context.Context) (time.Time, error) {
	return time.Time{}, selection.ErrNoRecommendations
}

func testRouter() http.Handler {
	log := logger.Nop()
	return NewRouter(Handlers{
		Health:          handlers.NewHealthHandler(healthyDB{}, log),
		Recommendations: handlers.NewRecommendationHandler(noRecommendations{}, nil, log),
		Performance:     handlers.NewPerformanceHandler(nil, audit.NewAnalyzer(log), backtest.Config{}, log),
		Pipeline:        handlers.NewPipelineHandler(nil, nil, nil, 0, log),
	}, log)
}

func TestRouter(t *testing.T) {
	router := testRouter()

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"recommendations", http.MethodGet, "/api/v1/recommendations", http.StatusNotFound},
		{"bad performance window", http.MethodGet, "/api/v1/performance?start=nope", http.StatusBadRequest},
		{"run-analysis requires POST", http.MethodGet, "/api/v1/run-analysis", http.StatusMethodNotAllowed},
		{"run-analysis requires a date", http.MethodPost, "/api/v1/run-analysis", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/chat", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
	r.Use(recoveryMiddleware(logger.Nop()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}
