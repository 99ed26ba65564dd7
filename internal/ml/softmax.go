package ml

import (
	"context"
	"fmt"
	"math"

	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/features"
	"github.com/yourusername/bet-advisor/internal/models"
)

// Softmax is a multinomial logistic regression trained by full-batch gradient descent
// on standardised features with an L2 penalty.
type Softmax struct {
	cfg     config.SoftmaxConfig
	schema  []string
	mean    []float64
	std     []float64
	weights [][]float64 // [class][feature], bias last
	classes int
}

// NewSoftmax creates an unfitted classifier
func NewSoftmax(cfg config.SoftmaxConfig) *Softmax {
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 300
	}
	return &Softmax{cfg: cfg}
}

func (s *Softmax) Name() string { return ModelSoftmax }
func (s *Softmax) Kind() string { return "discriminative" }

// Fit trains on the dataset's feature matrix
func (s *Softmax) Fit(ctx context.Context, ds *features.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.schema = append([]string(nil), ds.Schema...)
	return s.FitMatrix(ds.X(), ds.Y(), NumClasses)
}

// FitMatrix trains on raw rows with class labels in [0, k)
func (s *Softmax) FitMatrix(x [][]float64, y []int, k int) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("%w: softmax needs matching non-empty rows and labels", models.ErrInvalidInputs)
	}
	d := len(x[0])
	s.classes = k
	s.mean, s.std = standardisation(x)

	rows := make([][]float64, len(x))
	for i := range x {
		rows[i] = s.standardise(x[i])
	}

	s.weights = make([][]float64, k)
	for c := range s.weights {
		s.weights[c] = make([]float64, d+1)
	}

	n := float64(len(rows))
	grad := make([][]float64, k)
	for c := range grad {
		grad[c] = make([]float64, d+1)
	}
	z := make([]float64, k)
	for epoch := 0; epoch < s.cfg.Epochs; epoch++ {
		for c := range grad {
			for j := range grad[c] {
				grad[c][j] = 0
			}
		}
		for i, row := range rows {
			s.logits(row, z)
			softmaxInPlace(z)
			for c := 0; c < k; c++ {
				r := z[c]
				if y[i] == c {
					r--
				}
				for j, v := range row {
					grad[c][j] += r * v
				}
				grad[c][d] += r
			}
		}
		for c := 0; c < k; c++ {
			for j := 0; j <= d; j++ {
				g := grad[c][j] / n
				if j < d {
					g += s.cfg.L2 * s.weights[c][j]
				}
				s.weights[c][j] -= s.cfg.LearningRate * g
			}
		}
	}
	return nil
}

// ProbaRow returns class probabilities for one raw row
func (s *Softmax) ProbaRow(x []float64) ([]float64, error) {
	if s.weights == nil {
		return nil, models.ErrNoModel
	}
	if len(x) != len(s.mean) {
		return nil, fmt.Errorf("%w: softmax fitted on %d columns, got %d", models.ErrSchemaMismatch, len(s.mean), len(x))
	}
	z := make([]float64, s.classes)
	s.logits(s.standardise(x), z)
	softmaxInPlace(z)
	return z, nil
}

// PredictProba returns the 1X2 distribution of a sample
func (s *Softmax) PredictProba(sample *features.Sample) ([]float64, error) {
	return s.ProbaRow(sample.Vector.Values)
}

// FeatureImportances is the mean absolute standardised weight per feature across classes
func (s *Softmax) FeatureImportances() map[string]float64 {
	if s.weights == nil || len(s.schema) == 0 {
		return nil
	}
	scores := make([]float64, len(s.schema))
	for j := range scores {
		for c := range s.weights {
			scores[j] += math.Abs(s.weights[c][j])
		}
		scores[j] /= float64(len(s.weights))
	}
	return normaliseImportances(s.schema, scores)
}

func (s *Softmax) logits(row []float64, z []float64) {
	d := len(row)
	for c := range z {
		w := s.weights[c]
		v := w[d]
		for j, x := range row {
			v += w[j] * x
		}
		z[c] = v
	}
}

func (s *Softmax) standardise(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.mean[j]) / s.std[j]
	}
	return out
}

// standardisation returns per-column mean and standard deviation; constant columns get std 1
func standardisation(x [][]float64) (mean, std []float64) {
	d := len(x[0])
	n := float64(len(x))
	mean = make([]float64, d)
	std = make([]float64, d)
	for _, row := range x {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			diff := v - mean[j]
			std[j] += diff * diff
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] < 1e-12 {
			std[j] = 1
		}
	}
	return mean, std
}
