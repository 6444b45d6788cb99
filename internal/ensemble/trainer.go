package ensemble

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/logger"
)

// ErrEmptyTrainingSet is returned when no labelled rows fall inside the training window
var ErrEmptyTrainingSet = errors.New("empty training set")

// TrainConfig holds the fixed hyperparameters of the logistic fit
type TrainConfig struct {
	Cutoff       time.Time // rows dated after Cutoff are held out
	Folds        int
	Epochs       int
	LearningRate float64
	L2           float64
	Version      string
}

// DefaultTrainConfig returns the production hyperparameters
func DefaultTrainConfig(cutoff time.Time, version string) TrainConfig {
	return TrainConfig{
		Cutoff:       cutoff,
		Folds:        5,
		Epochs:       400,
		LearningRate: 0.5,
		L2:           1e-3,
		Version:      version,
	}
}

// FoldScore is the validation result of one chronological fold
type FoldScore struct {
	Fold      int     `json:"fold"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
	F1        float64 `json:"f1"`
	Accuracy  float64 `json:"accuracy"`
}

// TrainReport summarises a training run
type TrainReport struct {
	Rows         int         `json:"rows"`
	PositiveRate float64     `json:"positive_rate"`
	Folds        []FoldScore `json:"folds"`
	MeanF1       float64     `json:"mean_f1"`
}

// Trainer fits the learned scoring function offline
type Trainer struct {
	logger *logger.Logger
}

// NewTrainer creates a new trainer
func NewTrainer(log *logger.Logger) *Trainer {
	return &Trainer{logger: log.WithField("module", "trainer")}
}

// Train fits a logistic model on rows dated on or before cfg.Cutoff.
// Rows must already be in chronological order; folds are never shuffled.
func (t *Trainer) Train(rows []LabeledRow, cfg TrainConfig) (*LogisticModel, *TrainReport, error) {
	train := make([]LabeledRow, 0, len(rows))
	for _, r := range rows {
		if cfg.Cutoff.IsZero() || !r.Signal.Date.After(cfg.Cutoff) {
			train = append(train, r)
		}
	}
	if len(train) == 0 {
		return nil, nil, ErrEmptyTrainingSet
	}

	report := &TrainReport{Rows: len(train)}
	positives := 0
	for _, r := range train {
		positives += r.Target
	}
	report.PositiveRate = float64(positives) / float64(len(train))

	folds, err := ChronologicalSplits(len(train), cfg.Folds)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to split training set: %w", err)
	}

	var f1Sum float64
	for i, f := range folds {
		m := fit(train[:f.TrainEnd], cfg)
		test := train[f.TestStart:f.TestEnd]
		f1, acc := evaluate(m, test)
		report.Folds = append(report.Folds, FoldScore{
			Fold:      i + 1,
			TrainRows: f.TrainEnd,
			TestRows:  len(test),
			F1:        f1,
			Accuracy:  acc,
		})
		f1Sum += f1

		t.logger.WithFields(map[string]interface{}{
			"fold":     i + 1,
			"train":    f.TrainEnd,
			"test":     len(test),
			"f1":       f1,
			"accuracy": acc,
		}).Info("Fold evaluated")
	}
	report.MeanF1 = f1Sum / float64(len(folds))

	model := fit(train, cfg)
	if !cfg.Cutoff.IsZero() {
		model.TrainedThrough = contracts.DateKey(cfg.Cutoff)
	}
	model.CreatedAt = time.Now().UTC()

	return model, report, nil
}

// fit runs batch gradient descent on standardized features and maps the
// weights back to the raw signal scale.
func fit(rows []LabeledRow, cfg TrainConfig) *LogisticModel {
	n := float64(len(rows))
	var mean, std [3]float64
	for _, r := range rows {
		x := r.Signal.Features()
		for j := range x {
			mean[j] += x[j]
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, r := range rows {
		x := r.Signal.Features()
		for j := range x {
			d := x[j] - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}

	var w [3]float64
	var b float64
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		var gw [3]float64
		var gb float64
		for _, r := range rows {
			x := r.Signal.Features()
			z := b
			for j := range x {
				x[j] = (x[j] - mean[j]) / std[j]
				z += w[j] * x[j]
			}
			diff := sigmoid(z) - float64(r.Target)
			for j := range x {
				gw[j] += diff * x[j]
			}
			gb += diff
		}
		for j := range w {
			w[j] -= cfg.LearningRate * (gw[j]/n + cfg.L2*w[j])
		}
		b -= cfg.LearningRate * gb / n
	}

	raw := [3]float64{w[0] / std[0], w[1] / std[1], w[2] / std[2]}
	intercept := b
	for j := range raw {
		intercept -= raw[j] * mean[j]
	}

	return &LogisticModel{
		ModelVersion: cfg.Version,
		Intercept:    intercept,
		Coefficients: Coefficients{
			TrendSignal:   raw[0],
			MomentumScore: raw[1],
			MACDScore:     raw[2],
		},
	}
}

// evaluate returns the F1 score and accuracy at a 0.5 decision threshold
func evaluate(m *LogisticModel, rows []LabeledRow) (float64, float64) {
	if len(rows) == 0 {
		return 0, 0
	}
	var tp, fp, fn, correct int
	for _, r := range rows {
		pred := 0
		if m.PredictProba(r.Signal.Features()) >= 0.5 {
			pred = 1
		}
		switch {
		case pred == 1 && r.Target == 1:
			tp++
		case pred == 1 && r.Target == 0:
			fp++
		case pred == 0 && r.Target == 1:
			fn++
		}
		if pred == r.Target {
			correct++
		}
	}
	acc := float64(correct) / float64(len(rows))
	if tp == 0 {
		return 0, acc
	}
	precision := float64(tp) / float64(tp+fp)
	recall := float64(tp) / float64(tp+fn)
	return 2 * precision * recall / (precision + recall), acc
}
