package strategyconfig

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// 테스트용 YAML 경로
	path := "../../config/strategy/niftron.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Meta.StrategyID != "niftron_nifty50" {
		t.Errorf("expected strategy_id=niftron_nifty50, got %s", cfg.Meta.StrategyID)
	}
	if cfg.Backtest.CacheTTL != 12*time.Hour {
		t.Errorf("expected cache_ttl=12h, got %s", cfg.Backtest.CacheTTL)
	}

	// 해시 생성
	hash, err := Hash(cfg)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	// 동일 설정 → 동일 해시
	hash2, _ := Hash(cfg)
	if hash != hash2 {
		t.Error("hash not deterministic")
	}

	t.Logf("config hash: %s", hash)
	t.Logf("yaml size: %d bytes", len(yamlData))
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, data, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if data != nil {
		t.Error("expected no raw yaml for default config")
	}
	if cfg.Ranking.TopK != 5 || cfg.Backtest.PortfolioSize != 5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if got := cfg.Backtest.OOSStartDate(); got != time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("expected oos_start 2023-01-01, got %s", got)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("meta:\n  strategy_id: minimal\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Labels.HorizonDays != 10 {
		t.Errorf("expected horizon 10, got %d", cfg.Labels.HorizonDays)
	}
	if cfg.Labels.Threshold != 0.02 {
		t.Errorf("expected threshold 0.02, got %f", cfg.Labels.Threshold)
	}
	if cfg.Quality.MinPriceCoverage != 0.8 {
		t.Errorf("expected min_price_coverage 0.8, got %f", cfg.Quality.MinPriceCoverage)
	}
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse([]byte("meta:\n  strategy_id: x\nranking:\n  topk: 3\n"))
	if err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"top k above max", func(c *Config) { c.Ranking.TopK = 6 }, "ranking.top_k"},
		{"bad cutoff", func(c *Config) { c.Training.Cutoff = "31/12/2022" }, "training.cutoff"},
		{"single fold", func(c *Config) { c.Training.Folds = 1 }, "training.folds"},
		{"end before start", func(c *Config) { c.Backtest.End = "2022-06-01" }, "backtest.end"},
		{"coverage above one", func(c *Config) { c.Quality.MinPriceCoverage = 1.5 }, "quality.min_price_coverage"},
		{"bad timezone", func(c *Config) { c.Meta.Timezone = "Mars/Base" }, "meta.timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}

	if err := Validate(Default()); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestWarn(t *testing.T) {
	cfg := Default()
	cfg.Training.Cutoff = "2023-06-30"
	cfg.Backtest.PortfolioSize = 3

	codes := map[string]bool{}
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}

	for _, code := range []string{"TRAINING_OVERLAPS_OOS", "PORTFOLIO_SIZE_MISMATCH", "NO_MODEL"} {
		if !codes[code] {
			t.Errorf("expected warning %s", code)
		}
	}
}

func TestHashChangesWithConfig(t *testing.T) {
	a := Default()
	b := Default()
	b.Backtest.OOSStart = "2023-02-01"

	ha, _ := Hash(a)
	hb, _ := Hash(b)
	if ha == hb {
		t.Error("different configs must hash differently")
	}
}
