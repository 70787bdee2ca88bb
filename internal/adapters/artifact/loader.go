// Package artifact reads exported estimator documents and the shared feature
// schema from a model directory and turns them into registry model pairs.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hay5612/scorebot/internal/domain/estimator"
	"github.com/hay5612/scorebot/internal/domain/features"
	"github.com/hay5612/scorebot/internal/domain/registry"
	"github.com/hay5612/scorebot/internal/domain/types"
	"github.com/hay5612/scorebot/pkg/logger"
)

// SchemaBase is the base name of the shared feature schema file.
const SchemaBase = "feature_cols"

// Extensions tried, in order, for every artifact base name.
var extensions = []string{".json", ".yaml", ".yml"} //nolint:gochecknoglobals // fixed lookup order

// prefixes maps model types to the artifact base names the training pipeline writes.
var prefixes = map[types.ModelType]string{ //nolint:gochecknoglobals // fixed naming table
	types.ModelLinear: "linear",
	types.ModelGBoost: "lgbm",
	types.ModelRF:     "rf",
}

// Option applies a configuration option to the FileLoader.
type Option func(*FileLoader)

// WithLogger sets a custom logger for the loader.
func WithLogger(l logger.Logger) Option {
	return func(f *FileLoader) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithClock overrides the time source used for LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(f *FileLoader) {
		if now != nil {
			f.now = now
		}
	}
}

// FileLoader implements registry.Loader over a directory of artifacts.
type FileLoader struct {
	dir    string
	logger logger.Logger
	now    func() time.Time
}

var _ registry.Loader = (*FileLoader)(nil)

// NewFileLoader creates a loader rooted at dir.
func NewFileLoader(dir string, opts ...Option) *FileLoader {
	f := &FileLoader{
		dir:    dir,
		logger: logger.Get().Named("artifact"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Dir returns the model directory.
func (f *FileLoader) Dir() string { return f.dir }

// Load reads the win and diff estimators for mt and checks that they agree
// on the feature schema.
func (f *FileLoader) Load(ctx context.Context, mt types.ModelType) (*registry.ModelPair, error) {
	prefix, ok := prefixes[mt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, mt)
	}

	shared, err := f.readSchema()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var winSpec, diffSpec estimator.Spec
	if err := f.readDocument(ctx, prefix+"_win", &winSpec); err != nil {
		return nil, err
	}
	if err := f.readDocument(ctx, prefix+"_diff", &diffSpec); err != nil {
		return nil, err
	}

	winSchema, err := effectiveSchema(winSpec, shared, prefix+"_win")
	if err != nil {
		return nil, err
	}
	diffSchema, err := effectiveSchema(diffSpec, shared, prefix+"_diff")
	if err != nil {
		return nil, err
	}
	if !winSchema.Equal(diffSchema) {
		return nil, fmt.Errorf("%w: %s_win has %d columns, %s_diff has %d or a different order",
			ErrSchemaMismatch, prefix, len(winSchema), prefix, len(diffSchema))
	}

	win, err := estimator.NewClassifier(winSpec, len(winSchema))
	if err != nil {
		return nil, fmt.Errorf("%s_win: %w", prefix, err)
	}
	diff, err := estimator.NewRegressor(diffSpec, len(diffSchema))
	if err != nil {
		return nil, fmt.Errorf("%s_diff: %w", prefix, err)
	}

	f.logger.Debug(ctx, "artifacts decoded",
		logger.String("model_type", mt.String()),
		logger.String("win_kind", string(winSpec.Kind)),
		logger.String("diff_kind", string(diffSpec.Kind)),
		logger.Int("columns", len(winSchema)))

	return &registry.ModelPair{
		Type:     mt,
		Schema:   winSchema,
		Win:      win,
		Diff:     diff,
		LoadedAt: f.now(),
	}, nil
}

func effectiveSchema(spec estimator.Spec, shared features.Schema, name string) (features.Schema, error) {
	if len(spec.Schema) > 0 {
		return features.Schema(spec.Schema), nil
	}
	if len(shared) == 0 {
		return nil, fmt.Errorf("%w: %s carries no schema and %s is missing", ErrNotFound, name, SchemaBase)
	}
	return shared, nil
}

func (f *FileLoader) readSchema() (features.Schema, error) {
	var cols []string
	if err := f.readDocument(context.Background(), SchemaBase, &cols); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrDecode, SchemaBase)
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: %s repeats column %q", ErrDecode, SchemaBase, c)
		}
		seen[c] = struct{}{}
	}
	return features.Schema(cols), nil
}

// readDocument finds base.{json,yaml,yml} and decodes it into out.
func (f *FileLoader) readDocument(ctx context.Context, base string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, ext := range extensions {
		path := filepath.Join(f.dir, base+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := decode(data, ext, out); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s in %s", ErrNotFound, base, f.dir)
}

func decode(data []byte, ext string, out any) error {
	if ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		return dec.Decode(out)
	}
	return yaml.Unmarshal(data, out)
}
