package strategyconfig

import (
	"fmt"
	"time"

	"github.com/wonny/niftron/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Ranking ===
	if cfg.Ranking.TopK < 1 || cfg.Ranking.TopK > contracts.MaxRecommendations {
		return ValidationError{"ranking.top_k", fmt.Sprintf("must be in [1, %d]", contracts.MaxRecommendations)}
	}

	// === Labels ===
	if cfg.Labels.HorizonDays < 1 {
		return ValidationError{"labels.horizon_days", "must be >= 1"}
	}
	if cfg.Labels.Threshold <= -1 {
		return ValidationError{"labels.threshold", "must be > -1"}
	}

	// === Training ===
	if err := validateDate(cfg.Training.Cutoff); err != nil {
		return ValidationError{"training.cutoff", err.Error()}
	}
	if cfg.Training.Folds < 2 {
		return ValidationError{"training.folds", "must be >= 2"}
	}
	if cfg.Training.Epochs < 1 {
		return ValidationError{"training.epochs", "must be >= 1"}
	}
	if cfg.Training.LearningRate <= 0 {
		return ValidationError{"training.learning_rate", "must be > 0"}
	}
	if cfg.Training.L2 < 0 {
		return ValidationError{"training.l2", "must be >= 0"}
	}

	// === Backtest ===
	if err := validateDate(cfg.Backtest.OOSStart); err != nil {
		return ValidationError{"backtest.oos_start", err.Error()}
	}
	if cfg.Backtest.End != "" {
		if err := validateDate(cfg.Backtest.End); err != nil {
			return ValidationError{"backtest.end", err.Error()}
		}
		if cfg.Backtest.End < cfg.Backtest.OOSStart {
			return ValidationError{"backtest.end", "must not precede oos_start"}
		}
	}
	if cfg.Backtest.PortfolioSize < 1 {
		return ValidationError{"backtest.portfolio_size", "must be >= 1"}
	}
	if cfg.Backtest.CacheTTL < 0 {
		return ValidationError{"backtest.cache_ttl", "must be >= 0"}
	}

	// === Quality ===
	if err := validatePctRange(cfg.Quality.MinPriceCoverage, "quality.min_price_coverage"); err != nil {
		return err
	}
	if err := validatePctRange(cfg.Quality.MinIndicatorCoverage, "quality.min_indicator_coverage"); err != nil {
		return err
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 학습 구간과 표본 외 구간 겹침
	if cfg.Training.Cutoff >= cfg.Backtest.OOSStart {
		warnings = append(warnings, Warning{
			Code:    "TRAINING_OVERLAPS_OOS",
			Message: "training.cutoff >= backtest.oos_start: 표본 외 성과가 과대평가될 수 있음",
		})
	}

	// 추천 수와 시뮬레이션 포트폴리오 크기 불일치
	if cfg.Backtest.PortfolioSize != cfg.Ranking.TopK {
		warnings = append(warnings, Warning{
			Code:    "PORTFOLIO_SIZE_MISMATCH",
			Message: "backtest.portfolio_size != ranking.top_k: 백테스트가 실제 추천과 다름",
		})
	}

	if cfg.Model.ArtifactPath == "" {
		warnings = append(warnings, Warning{
			Code:    "NO_MODEL",
			Message: "model.artifact_path 미설정: LEARNED 추천 없이 HEURISTIC만 생성",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateDate(s string) error {
	if _, err := contracts.ParseDay(s); err != nil {
		return fmt.Errorf("must be YYYY-MM-DD format")
	}
	return nil
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
