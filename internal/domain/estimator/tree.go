package estimator

import "fmt"

// tree is a binary decision tree stored as a flat node array rooted at 0.
type tree []Node

func newTree(spec TreeSpec, width int) (tree, error) {
	if len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("%w: empty tree", ErrInvalidSpec)
	}
	for i, n := range spec.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= width {
			return nil, fmt.Errorf("%w: node %d splits on feature %d of %d", ErrInvalidSpec, i, n.Feature, width)
		}
		// Children must come after their parent, which rules out cycles.
		if n.Left <= i || n.Left >= len(spec.Nodes) || n.Right <= i || n.Right >= len(spec.Nodes) {
			return nil, fmt.Errorf("%w: node %d has invalid children %d/%d", ErrInvalidSpec, i, n.Left, n.Right)
		}
	}
	return tree(spec.Nodes), nil
}

// leaf walks from the root; values <= threshold go left.
func (t tree) leaf(x []float64) float64 {
	i := 0
	for !t[i].Leaf {
		if x[t[i].Feature] <= t[i].Threshold {
			i = t[i].Left
		} else {
			i = t[i].Right
		}
	}
	return t[i].Value
}

// ensemble sums (boosting) or averages (forest) leaf values.
type ensemble struct {
	pipeline
	trees   []tree
	init    float64
	average bool
}

func newEnsemble(spec Spec, p pipeline, average bool) (*ensemble, error) {
	if len(spec.Trees) == 0 {
		return nil, fmt.Errorf("%w: %s has no trees", ErrInvalidSpec, spec.Kind)
	}
	e := &ensemble{pipeline: p, init: spec.InitScore, average: average}
	for i, ts := range spec.Trees {
		t, err := newTree(ts, p.width)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		e.trees = append(e.trees, t)
	}
	return e, nil
}

// Predict implements Regressor.
func (e *ensemble) Predict(x []float64) (float64, error) {
	z, err := e.transform(x)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, t := range e.trees {
		sum += t.leaf(z)
	}
	if e.average {
		return sum / float64(len(e.trees)), nil
	}
	return e.init + sum, nil
}
