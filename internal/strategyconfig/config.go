package strategyconfig

import (
	"time"

	"github.com/wonny/niftron/internal/contracts"
)

// Config는 추천/백테스트 전략의 전체 설정
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Ranking  Ranking  `yaml:"ranking" json:"ranking"`
	Labels   Labels   `yaml:"labels" json:"labels"`
	Training Training `yaml:"training" json:"training"`
	Backtest Backtest `yaml:"backtest" json:"backtest"`
	Model    Model    `yaml:"model" json:"model"`
	Quality  Quality  `yaml:"quality" json:"quality"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Ranking 일별 Top K 추천
type Ranking struct {
	TopK int `yaml:"top_k" json:"top_k"` // <= 5
}

// Labels 학습 라벨 정의 (forward return)
type Labels struct {
	HorizonDays int     `yaml:"horizon_days" json:"horizon_days"` // 10
	Threshold   float64 `yaml:"threshold" json:"threshold"`       // 0.02
}

// Training 오프라인 모델 학습 (고정 하이퍼파라미터)
type Training struct {
	Cutoff       string  `yaml:"cutoff" json:"cutoff"` // YYYY-MM-DD, 이 날짜까지만 학습
	Folds        int     `yaml:"folds" json:"folds"`
	Epochs       int     `yaml:"epochs" json:"epochs"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
	L2           float64 `yaml:"l2" json:"l2"`
}

// Backtest 표본 외 시뮬레이션
type Backtest struct {
	OOSStart      string        `yaml:"oos_start" json:"oos_start"` // YYYY-MM-DD
	End           string        `yaml:"end" json:"end"`             // 비어 있으면 as-of
	PortfolioSize int           `yaml:"portfolio_size" json:"portfolio_size"`
	CacheTTL      time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// Model 학습 모델 아티팩트
type Model struct {
	ArtifactPath string `yaml:"artifact_path" json:"artifact_path"`
}

// Quality 랭킹 전 데이터 품질 기준
type Quality struct {
	MinPriceCoverage     float64 `yaml:"min_price_coverage" json:"min_price_coverage"`
	MinIndicatorCoverage float64 `yaml:"min_indicator_coverage" json:"min_indicator_coverage"`
}

// Default returns the built-in strategy used when no file is configured
func Default() *Config {
	cfg := &Config{
		Meta: Meta{StrategyID: "niftron_default", Version: "1", Timezone: "Asia/Kolkata"},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields
func ApplyDefaults(cfg *Config) {
	if cfg.Ranking.TopK == 0 {
		cfg.Ranking.TopK = contracts.MaxRecommendations
	}
	if cfg.Labels.HorizonDays == 0 {
		cfg.Labels.HorizonDays = 10
	}
	if cfg.Labels.Threshold == 0 {
		cfg.Labels.Threshold = 0.02
	}
	if cfg.Training.Cutoff == "" {
		cfg.Training.Cutoff = "2022-12-31"
	}
	if cfg.Training.Folds == 0 {
		cfg.Training.Folds = 5
	}
	if cfg.Training.Epochs == 0 {
		cfg.Training.Epochs = 400
	}
	if cfg.Training.LearningRate == 0 {
		cfg.Training.LearningRate = 0.5
	}
	if cfg.Training.L2 == 0 {
		cfg.Training.L2 = 1e-3
	}
	if cfg.Backtest.OOSStart == "" {
		cfg.Backtest.OOSStart = "2023-01-01"
	}
	if cfg.Backtest.PortfolioSize == 0 {
		cfg.Backtest.PortfolioSize = 5
	}
	if cfg.Backtest.CacheTTL == 0 {
		cfg.Backtest.CacheTTL = 12 * time.Hour
	}
	if cfg.Quality.MinPriceCoverage == 0 {
		cfg.Quality.MinPriceCoverage = 0.8
	}
}

// OOSStartDate returns the first out-of-sample date
func (b Backtest) OOSStartDate() time.Time {
	t, _ := contracts.ParseDay(b.OOSStart)
	return t
}

// EndDate returns the configured end date, or asOf when unset
func (b Backtest) EndDate(asOf time.Time) time.Time {
	if b.End == "" {
		return contracts.Day(asOf)
	}
	t, _ := contracts.ParseDay(b.End)
	return t
}

// CutoffDate returns the last date usable for training
func (t Training) CutoffDate() time.Time {
	d, _ := contracts.ParseDay(t.Cutoff)
	return d
}

// DecisionSnapshot 의사결정 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash   string    `json:"config_hash"`
	ConfigYAML   string    `json:"config_yaml"`
	StrategyID   string    `json:"strategy_id"`
	ModelVersion string    `json:"model_version"`
	CreatedAt    time.Time `json:"created_at"`
}
