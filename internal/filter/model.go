package filter

import (
	"fmt"
	"math"
	"time"

	"github.com/bytedance/sonic"

	"signal_bot/internal/models"
)

// Model: классификатор: вероятность того, что следующая свеча закроется выше.
type Model interface {
	ProbabilityPositive(x []float64) float64
}

// LogisticModel: логистическая регрессия на стандартизованных признаках.
// После обучения не изменяется, при переобучении заменяется целиком.
type LogisticModel struct {
	Mean      []float64 `json:"mean"`
	Std       []float64 `json:"std"`
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Rows      int       `json:"rows"`
	TrainedAt time.Time `json:"trained_at"`
}

func (m *LogisticModel) ProbabilityPositive(x []float64) float64 {
	if len(x) != len(m.Weights) {
		// модель другой размерности, решать не берёмся
		return 0.5
	}
	z := m.Bias
	for i, v := range x {
		z += m.Weights[i] * (v - m.Mean[i]) / m.Std[i]
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	// без переполнения exp на больших |z|
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// Sample: строка обучающей выборки.
type Sample struct {
	X []float64
	Y float64 // 0 или 1
}

type FitOptions struct {
	Epochs       int     `yaml:"epochs" default:"400"`
	LearningRate float64 `yaml:"learning_rate" default:"0.1"`
	L2           float64 `yaml:"l2" default:"0.001"`
}

func DefaultFitOptions() FitOptions {
	return FitOptions{Epochs: 400, LearningRate: 0.1, L2: 0.001}
}

// FitLogistic: полный градиентный спуск по всей выборке.
func FitLogistic(samples []Sample, opts FitOptions) (*LogisticModel, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty sample set", models.ErrInsufficientTrainingData)
	}
	if opts.Epochs <= 0 || opts.LearningRate <= 0 {
		opts = DefaultFitOptions()
	}

	dim := len(samples[0].X)
	if dim == 0 {
		return nil, fmt.Errorf("filter: zero-width feature vector")
	}
	for i, s := range samples {
		if len(s.X) != dim {
			return nil, fmt.Errorf("filter: sample %d has %d features, want %d", i, len(s.X), dim)
		}
	}

	// 1) стандартизация
	mean := make([]float64, dim)
	std := make([]float64, dim)
	n := float64(len(samples))
	for _, s := range samples {
		for j, v := range s.X {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, s := range samples {
		for j, v := range s.X {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] < 1e-12 {
			std[j] = 1
		}
	}

	xs := make([][]float64, len(samples))
	for i, s := range samples {
		row := make([]float64, dim)
		for j, v := range s.X {
			row[j] = (v - mean[j]) / std[j]
		}
		xs[i] = row
	}

	// 2) спуск
	w := make([]float64, dim)
	b := 0.0
	grad := make([]float64, dim)
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		gb := 0.0
		for i, row := range xs {
			z := b
			for j, v := range row {
				z += w[j] * v
			}
			diff := sigmoid(z) - samples[i].Y
			for j, v := range row {
				grad[j] += diff * v
			}
			gb += diff
		}
		for j := range w {
			w[j] -= opts.LearningRate * (grad[j]/n + opts.L2*w[j])
		}
		b -= opts.LearningRate * gb / n
	}

	return &LogisticModel{
		Mean:    mean,
		Std:     std,
		Weights: w,
		Bias:    b,
		Rows:    len(samples),
	}, nil
}

// Encode: модель в непрозрачный блоб для хранилища.
func Encode(m *LogisticModel) ([]byte, error) {
	return sonic.Marshal(m)
}

func Decode(blob []byte) (*LogisticModel, error) {
	var m LogisticModel
	if err := sonic.Unmarshal(blob, &m); err != nil {
		return nil, fmt.Errorf("filter: decode model: %w", err)
	}
	if len(m.Weights) == 0 || len(m.Mean) != len(m.Weights) || len(m.Std) != len(m.Weights) {
		return nil, fmt.Errorf("filter: decode model: inconsistent dimensions")
	}
	// std=0 даёт Inf/NaN в ProbabilityPositive, и фильтр молча режет всё
	for j, sd := range m.Std {
		if !(sd > 0) || math.IsInf(sd, 0) {
			return nil, fmt.Errorf("filter: decode model: std[%d]=%v must be positive and finite", j, sd)
		}
	}
	return &m, nil
}
