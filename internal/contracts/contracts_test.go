package contracts

import (
	"testing"
	"time"
)

func TestScoreRow_Score(t *testing.T) {
	learned := 62.5
	tests := []struct {
		name   string
		row    ScoreRow
		model  ModelType
		want   float64
		wantOK bool
	}{
		{"heuristic always present", ScoreRow{HeuristicScore: 41}, ModelHeuristic, 41, true},
		{"learned present", ScoreRow{LearnedScore: &learned}, ModelLearned, 62.5, true},
		{"learned absent", ScoreRow{HeuristicScore: 41}, ModelLearned, 0, false},
		{"unknown model", ScoreRow{HeuristicScore: 41}, ModelType("X"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.row.Score(tt.model)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Score(%s) = (%v, %v), want (%v, %v)", tt.model, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSignalRow_Breakdown(t *testing.T) {
	s := SignalRow{StockID: 7, TrendSignal: 1, MomentumScore: 55.5, MACDScore: 100}

	b := s.Breakdown()
	if b.TrendSignal != 1 || b.MomentumScore != 55.5 || b.MACDScore != 100 {
		t.Errorf("Breakdown() = %+v", b)
	}

	f := s.Features()
	if f != [3]float64{1, 55.5, 100} {
		t.Errorf("Features() = %v", f)
	}
}

func TestBatchReport_Count(t *testing.T) {
	report := &BatchReport{Stage: StageIndicators}
	report.Add(StockResult{StockID: 1, Status: StockSucceeded, Rows: 300})
	report.Add(StockResult{StockID: 2, Status: StockSkipped, Reason: "insufficient history"})
	report.Add(StockResult{StockID: 3, Status: StockFailed, Reason: "bad close"})
	report.Add(StockResult{StockID: 4, Status: StockSucceeded, Rows: 12})

	if got := report.Count(StockSucceeded); got != 2 {
		t.Errorf("Count(succeeded) = %d, want 2", got)
	}
	if got := report.Count(StockSkipped); got != 1 {
		t.Errorf("Count(skipped) = %d, want 1", got)
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].StockID != 3 {
		t.Errorf("Failures() = %+v", failures)
	}
}

func TestStages(t *testing.T) {
	stages := AllStages()
	if len(stages) != 3 || stages[0] != StageIngest || stages[2] != StageRank {
		t.Errorf("AllStages() = %v", stages)
	}
	if !IsValidStage("INDICATORS") {
		t.Error("INDICATORS should be valid")
	}
	if IsValidStage("S4_RANKER") {
		t.Error("S4_RANKER should be invalid")
	}
}

func TestReturnSeries(t *testing.T) {
	d1 := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	s := ReturnSeries{Name: "x", Points: []ReturnPoint{{d1, 0.01}, {d2, -0.02}}}

	if s.Len() != 2 {
		t.Fatalf("Len() = %d", s.Len())
	}
	if v := s.Values(); v[0] != 0.01 || v[1] != -0.02 {
		t.Errorf("Values() = %v", v)
	}
	if idx := s.Index(); idx["2023-01-03"] != -0.02 {
		t.Errorf("Index() = %v", idx)
	}
}

func TestPerformanceMetrics_Map(t *testing.T) {
	m := &PerformanceMetrics{CAGR: 0.1, Beta: 1, TotalReturn: 0.5}
	out := m.Map()

	if len(out) != 9 {
		t.Errorf("Map() has %d keys, want 9", len(out))
	}
	if out[MetricCAGR] != 0.1 || out[MetricBeta] != 1 {
		t.Errorf("Map() = %v", out)
	}
	if _, ok := out["total_return"]; ok {
		t.Error("total_return is not part of the flat map")
	}
}

func TestDayHelpers(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	d := Day(time.Date(2024, 3, 1, 23, 30, 0, 0, ist))
	if DateKey(d) != "2024-03-01" || d.Location() != time.UTC {
		t.Errorf("Day() = %v", d)
	}

	parsed, err := ParseDay("2024-03-01")
	if err != nil || !parsed.Equal(d) {
		t.Errorf("ParseDay() = %v, %v", parsed, err)
	}
}
