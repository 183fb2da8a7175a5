package scoring

import (
	"fmt"
	"math"

	"record-linkage/internal/linkage/model"
)

// Model is a logistic regression over the feature vector of a pair.
//
// All products feeding a sum are rounded explicitly with float64() so the
// compiler cannot fuse them into FMA instructions; this keeps fitted weights
// and probabilities bit-identical across architectures.
type Model struct {
	Fields  []model.FieldSpec
	Weights []float64
	Bias    float64

	feat *Featurizer
}

// NewModel returns an unfitted model (all weights zero) for fields.
func NewModel(fields []model.FieldSpec) (*Model, error) {
	feat, err := NewFeaturizer(fields)
	if err != nil {
		return nil, err
	}
	return &Model{Fields: fields, Weights: make([]float64, feat.Len()), feat: feat}, nil
}

// Prior is the model used before any label is known: probability rises with
// the mean field similarity and crosses 0.5 at a mean of 0.5. Missing
// indicators carry no weight.
func Prior(fields []model.FieldSpec) (*Model, error) {
	m, err := NewModel(fields)
	if err != nil {
		return nil, err
	}
	w := 6 / float64(len(fields))
	j := 0
	for _, fs := range fields {
		m.Weights[j] = w
		j++
		if fs.HasMissing {
			j++
		}
	}
	m.Bias = -3
	return m, nil
}

// Restore rebuilds a model from persisted parameters.
func Restore(fields []model.FieldSpec, weights []float64, bias float64) (*Model, error) {
	m, err := NewModel(fields)
	if err != nil {
		return nil, err
	}
	if len(weights) != len(m.Weights) {
		return nil, fmt.Errorf("model has %d weights, fields need %d", len(weights), len(m.Weights))
	}
	copy(m.Weights, weights)
	m.Bias = bias
	return m, nil
}

func (m *Model) Featurizer() *Featurizer { return m.feat }

// Predict maps a feature vector to a probability in [0,1].
func (m *Model) Predict(x []float64) float64 {
	return sigmoid(linear(m.Weights, m.Bias, x))
}

// Prob scores the pair (a, b).
func (m *Model) Prob(a, b model.Record) float64 {
	return m.Predict(m.feat.Vector(a, b))
}

func linear(w []float64, bias float64, x []float64) float64 {
	z := bias
	for j := range w {
		z += float64(w[j] * x[j])
	}
	return z
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

type FitOptions struct {
	Iterations   int
	LearningRate float64
	L2           float64
}

func DefaultFitOptions() FitOptions {
	return FitOptions{Iterations: 2000, LearningRate: 1, L2: 0.001}
}

// Fit replaces the weights with ones fitted to the labeled vectors by full
// batch gradient descent. Classes are reweighted to equal total mass, so a
// handful of matches is not drowned by many distinct pairs. Fit fails with
// ErrInsufficientTrainingData unless both classes are present.
func (m *Model) Fit(x [][]float64, match []bool, opt FitOptions) error {
	pos, neg := 0, 0
	for _, y := range match {
		if y {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return model.NewError(model.ErrInsufficientTrainingData, "training", "",
			fmt.Errorf("%d match and %d distinct labels, need at least one of each", pos, neg))
	}

	n := float64(len(x))
	wPos := n / float64(2*pos)
	wNeg := n / float64(2*neg)

	d := len(m.Weights)
	w := make([]float64, d)
	bias := 0.0
	grad := make([]float64, d)
	for it := 0; it < opt.Iterations; it++ {
		for j := range grad {
			grad[j] = 0
		}
		gb := 0.0
		for i, xi := range x {
			p := sigmoid(linear(w, bias, xi))
			var e float64
			if match[i] {
				e = float64(wPos * (p - 1))
			} else {
				e = float64(wNeg * p)
			}
			for j := range grad {
				grad[j] += float64(e * xi[j])
			}
			gb += e
		}
		for j := range w {
			step := float64(opt.LearningRate * (grad[j]/n + float64(opt.L2*w[j])))
			w[j] -= step
		}
		bias -= float64(opt.LearningRate * (gb / n))
	}

	m.Weights = w
	m.Bias = bias
	return nil
}
