package estimator

// Spec is the exported form of one fitted estimator. The training pipeline
// writes it as JSON or YAML.
type Spec struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// Schema overrides the shared feature schema for this estimator.
	Schema    []string     `json:"schema,omitempty" yaml:"schema,omitempty"`
	Imputer   *ImputerSpec `json:"imputer,omitempty" yaml:"imputer,omitempty"`
	Scaler    *ScalerSpec  `json:"scaler,omitempty" yaml:"scaler,omitempty"`
	Coef      []float64    `json:"coef,omitempty" yaml:"coef,omitempty"`
	Intercept float64      `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	InitScore float64      `json:"init_score,omitempty" yaml:"init_score,omitempty"`
	Trees     []TreeSpec   `json:"trees,omitempty" yaml:"trees,omitempty"`
}

// ImputerSpec holds per-feature training means used in place of NaN.
type ImputerSpec struct {
	Means []float64 `json:"means" yaml:"means"`
}

// ScalerSpec holds per-feature standardization parameters.
type ScalerSpec struct {
	Mean  []float64 `json:"mean" yaml:"mean"`
	Scale []float64 `json:"scale" yaml:"scale"`
}

// TreeSpec is a flat node array rooted at index 0.
type TreeSpec struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// Node is either a split or a leaf.
type Node struct {
	Feature   int     `json:"feature" yaml:"feature"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Left      int     `json:"left" yaml:"left"`
	Right     int     `json:"right" yaml:"right"`
	Leaf      bool    `json:"leaf,omitempty" yaml:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty" yaml:"value,omitempty"`
}
