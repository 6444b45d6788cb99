package ensemble

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"
)

// ErrModelUnavailable means no trained scoring function could be loaded.
// Callers degrade to heuristic-only output.
var ErrModelUnavailable = errors.New("learned model unavailable")

// Coefficients are the per-feature weights on the raw signal scale
type Coefficients struct {
	TrendSignal   float64 `json:"trend_signal"`
	MomentumScore float64 `json:"momentum_score"`
	MACDScore     float64 `json:"macd_score"`
}

// LogisticModel is the serialized learned scoring function
// ⭐ SSOT: 학습 모델 아티팩트 포맷
type LogisticModel struct {
	ModelVersion   string       `json:"version"`
	Intercept      float64      `json:"intercept"`
	Coefficients   Coefficients `json:"coefficients"`
	TrainedThrough string       `json:"trained_through,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// PredictProba returns P(target = 1 | features)
func (m *LogisticModel) PredictProba(features [3]float64) float64 {
	z := m.Intercept +
		m.Coefficients.TrendSignal*features[0] +
		m.Coefficients.MomentumScore*features[1] +
		m.Coefficients.MACDScore*features[2]
	return sigmoid(z)
}

// Version identifies the artifact
func (m *LogisticModel) Version() string {
	return m.ModelVersion
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// LoadModel reads a model artifact. A missing path or file yields ErrModelUnavailable.
func LoadModel(path string) (*LogisticModel, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no model path configured", ErrModelUnavailable)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found", ErrModelUnavailable, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}

	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrModelUnavailable, path, err)
	}
	if m.ModelVersion == "" {
		return nil, fmt.Errorf("%w: %s has no version", ErrModelUnavailable, path)
	}
	return &m, nil
}

// SaveModel writes a model artifact, creating parent directories
func SaveModel(path string, m *LogisticModel) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model dir: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model %s: %w", path, err)
	}
	return nil
}
