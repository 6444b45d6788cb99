package contracts

import "time"

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 이벤트, 배치 리포트에서 이 상수를 사용해야 함
//
// 파이프라인 흐름 (거래일마다 1회, 엄격한 순차 의존):
//   ingest → indicators → rank

// Stage represents a pipeline stage
type Stage string

const (
	// StageIngest 가격 데이터 적재
	// 위치: internal/s0_data/
	StageIngest Stage = "INGEST"

	// StageIndicators 지표 계산 및 저장
	// 위치: internal/indicators/
	StageIndicators Stage = "INDICATORS"

	// StageRank 시그널/앙상블 점수 → Top K 추천 저장
	// 위치: internal/signals/, internal/ensemble/, internal/selection/
	StageRank Stage = "RANK"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// AllStages returns all pipeline stages in execution order
func AllStages() []Stage {
	return []Stage{StageIngest, StageIndicators, StageRank}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// StockStatus is the outcome of processing one stock inside a batch
type StockStatus string

const (
	StockSucceeded StockStatus = "succeeded"
	StockSkipped   StockStatus = "skipped"
	StockFailed    StockStatus = "failed"
)

// StockResult is the per-stock outcome of a batch step
type StockResult struct {
	StockID int64       `json:"stock_id"`
	Symbol  string      `json:"symbol,omitempty"`
	Status  StockStatus `json:"status"`
	Rows    int         `json:"rows"`
	Reason  string      `json:"reason,omitempty"`
}

// BatchReport collects per-stock outcomes so failures are observable
type BatchReport struct {
	Stage   Stage         `json:"stage"`
	Date    time.Time     `json:"date"`
	Results []StockResult `json:"results"`
}

// Add appends a result
func (b *BatchReport) Add(r StockResult) {
	b.Results = append(b.Results, r)
}

// Count returns how many results have the given status
func (b *BatchReport) Count(status StockStatus) int {
	n := 0
	for _, r := range b.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Failures returns the failed results
func (b *BatchReport) Failures() []StockResult {
	var out []StockResult
	for _, r := range b.Results {
		if r.Status == StockFailed {
			out = append(out, r)
		}
	}
	return out
}

// PipelineResult represents the result of a pipeline stage execution
type PipelineResult struct {
	RunID       string                 `json:"run_id"`
	Stage       Stage                  `json:"stage"`
	Success     bool                   `json:"success"`
	InputCount  int                    `json:"input_count"`
	OutputCount int                    `json:"output_count"`
	Duration    int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
