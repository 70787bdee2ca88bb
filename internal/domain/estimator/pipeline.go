package estimator

import (
	"fmt"
	"math"
)

// pipeline applies the preprocessing steps fitted alongside a model:
// mean imputation for non-finite cells, then optional standard scaling.
type pipeline struct {
	width   int
	impute  []float64
	mean    []float64
	scale   []float64
	scaling bool
}

func newPipeline(spec Spec, width int) (pipeline, error) {
	if width <= 0 {
		return pipeline{}, fmt.Errorf("%w: no features", ErrInvalidSpec)
	}
	p := pipeline{width: width}
	if spec.Imputer != nil {
		if len(spec.Imputer.Means) != width {
			return pipeline{}, fmt.Errorf("%w: imputer has %d means for %d features", ErrInvalidSpec, len(spec.Imputer.Means), width)
		}
		p.impute = spec.Imputer.Means
	}
	if spec.Scaler != nil {
		if len(spec.Scaler.Mean) != width || len(spec.Scaler.Scale) != width {
			return pipeline{}, fmt.Errorf("%w: scaler shape does not match %d features", ErrInvalidSpec, width)
		}
		p.mean = spec.Scaler.Mean
		p.scale = make([]float64, width)
		for i, s := range spec.Scaler.Scale {
			// Constant training columns are stored with scale 0 and left unscaled.
			if s == 0 {
				s = 1
			}
			p.scale[i] = s
		}
		p.scaling = true
	}
	return p, nil
}

// transform returns a new slice; x is never modified.
func (p pipeline) transform(x []float64) ([]float64, error) {
	if len(x) != p.width {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrShapeMismatch, len(x), p.width)
	}
	out := make([]float64, p.width)
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if p.impute == nil {
				return nil, fmt.Errorf("%w: feature %d", ErrNonFinite, i)
			}
			v = p.impute[i]
		}
		if p.scaling {
			v = (v - p.mean[i]) / p.scale[i]
		}
		out[i] = v
	}
	return out, nil
}
