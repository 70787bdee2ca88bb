// Package estimator runs inference for the exported win classifiers and
// point-differential regressors. Every estimator is immutable once built
// and safe for concurrent use.
package estimator

import (
	"fmt"
	"math"
)

// Classifier returns the probability mass assigned to a home win.
type Classifier interface {
	PredictProbability(x []float64) (float64, error)
}

// Regressor returns the signed point differential, home minus away.
type Regressor interface {
	Predict(x []float64) (float64, error)
}

// Kind names an estimator family in an artifact document.
type Kind string

// Supported estimator kinds.
const (
	KindLogisticRegression Kind = "logistic_regression"
	KindLinearRegression   Kind = "linear_regression"
	KindGBDTClassifier     Kind = "gbdt_classifier"
	KindGBDTRegressor      Kind = "gbdt_regressor"
	KindForestClassifier   Kind = "forest_classifier"
	KindForestRegressor    Kind = "forest_regressor"
)

// NewClassifier builds a classifier for rows of the given width.
func NewClassifier(spec Spec, width int) (Classifier, error) {
	p, err := newPipeline(spec, width)
	if err != nil {
		return nil, err
	}
	switch spec.Kind {
	case KindLogisticRegression:
		lm, err := newLinear(spec, p)
		if err != nil {
			return nil, err
		}
		return &logistic{linear: lm}, nil
	case KindGBDTClassifier:
		e, err := newEnsemble(spec, p, false)
		if err != nil {
			return nil, err
		}
		return &boostedClassifier{ensemble: e}, nil
	case KindForestClassifier:
		e, err := newEnsemble(spec, p, true)
		if err != nil {
			return nil, err
		}
		return &forestClassifier{ensemble: e}, nil
	}
	return nil, fmt.Errorf("%w: kind %q is not a classifier", ErrInvalidSpec, spec.Kind)
}

// NewRegressor builds a regressor for rows of the given width.
func NewRegressor(spec Spec, width int) (Regressor, error) {
	p, err := newPipeline(spec, width)
	if err != nil {
		return nil, err
	}
	switch spec.Kind {
	case KindLinearRegression:
		return newLinear(spec, p)
	case KindGBDTRegressor:
		return newEnsemble(spec, p, false)
	case KindForestRegressor:
		return newEnsemble(spec, p, true)
	}
	return nil, fmt.Errorf("%w: kind %q is not a regressor", ErrInvalidSpec, spec.Kind)
}

// linear is an affine model over the transformed row.
type linear struct {
	pipeline
	coef      []float64
	intercept float64
}

func newLinear(spec Spec, p pipeline) (*linear, error) {
	if len(spec.Coef) != p.width {
		return nil, fmt.Errorf("%w: %d coefficients for %d features", ErrInvalidSpec, len(spec.Coef), p.width)
	}
	return &linear{pipeline: p, coef: spec.Coef, intercept: spec.Intercept}, nil
}

// Predict implements Regressor.
func (m *linear) Predict(x []float64) (float64, error) {
	z, err := m.transform(x)
	if err != nil {
		return 0, err
	}
	s := m.intercept
	for i, c := range m.coef {
		s += c * z[i]
	}
	return s, nil
}

type logistic struct {
	*linear
}

// PredictProbability implements Classifier.
func (m *logistic) PredictProbability(x []float64) (float64, error) {
	s, err := m.linear.Predict(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(s), nil
}

type boostedClassifier struct {
	*ensemble
}

// PredictProbability implements Classifier.
func (m *boostedClassifier) PredictProbability(x []float64) (float64, error) {
	s, err := m.ensemble.Predict(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(s), nil
}

type forestClassifier struct {
	*ensemble
}

// PredictProbability implements Classifier. Leaf values are class-1 frequencies.
func (m *forestClassifier) PredictProbability(x []float64) (float64, error) {
	p, err := m.ensemble.Predict(x)
	if err != nil {
		return 0, err
	}
	return math.Max(0, math.Min(1, p)), nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
