// Package features builds schema-aligned feature rows for a matchup.
package features

import (
	"slices"

	"github.com/hay5612/scorebot/internal/domain/stats"
)

// Column suffixes applied to home and away metrics.
const (
	HomeSuffix = "_home"
	AwaySuffix = "_away"
)

// DefaultMissingValue fills schema columns the aggregates do not provide.
const DefaultMissingValue = 0.0

// Schema is the ordered list of feature columns a model pair was trained on.
type Schema []string

// Equal reports whether two schemas list the same columns in the same order.
func (s Schema) Equal(other Schema) bool { return slices.Equal(s, other) }

// Index returns the position of each column.
func (s Schema) Index() map[string]int {
	idx := make(map[string]int, len(s))
	for i, c := range s {
		idx[c] = i
	}
	return idx
}

// Row is a single feature vector. Values[i] belongs to Columns[i].
type Row struct {
	Columns Schema
	Values  []float64
	// Filled lists schema columns that received the missing value.
	Filled []string
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithMissingValue sets the value used for schema columns absent from the aggregates.
func WithMissingValue(v float64) Option {
	return func(b *Builder) {
		b.missing = v
	}
}

// Builder turns a pair of aggregates into a Row. It holds no mutable state
// and may be shared by any number of goroutines.
type Builder struct {
	missing float64
}

// NewBuilder creates a Builder with configuration options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{missing: DefaultMissingValue}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MissingValue returns the configured fill value.
func (b *Builder) MissingValue() float64 { return b.missing }

// Build emits <metric>_home and <metric>_away columns and projects them onto
// schema: columns the schema lacks are dropped, schema columns the aggregates
// lack are filled. The output always has len(schema) values in schema order.
func (b *Builder) Build(home, away stats.Aggregate, schema Schema) Row {
	computed := make(map[string]float64, len(home.Values)+len(away.Values))
	for m, v := range home.Values {
		computed[m+HomeSuffix] = v
	}
	for m, v := range away.Values {
		computed[m+AwaySuffix] = v
	}

	row := Row{
		Columns: schema,
		Values:  make([]float64, len(schema)),
	}
	for i, col := range schema {
		v, ok := computed[col]
		if !ok {
			v = b.missing
			row.Filled = append(row.Filled, col)
		}
		row.Values[i] = v
	}
	return row
}
