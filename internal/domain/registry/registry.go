// Package registry resolves model types to lazily loaded, cached model pairs.
package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hay5612/scorebot/internal/domain/estimator"
	"github.com/hay5612/scorebot/internal/domain/features"
	"github.com/hay5612/scorebot/internal/domain/types"
	"github.com/hay5612/scorebot/pkg/logger"
	"github.com/hay5612/scorebot/pkg/metrics"
)

// ModelPair is a win classifier and differential regressor trained together
// against one feature schema. It is shared read-only by every request.
type ModelPair struct {
	Type     types.ModelType
	Schema   features.Schema
	Win      estimator.Classifier
	Diff     estimator.Regressor
	LoadedAt time.Time
}

// Loader reads the persisted artifacts for one model type.
type Loader interface {
	Load(ctx context.Context, mt types.ModelType) (*ModelPair, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, mt types.ModelType) (*ModelPair, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, mt types.ModelType) (*ModelPair, error) {
	return f(ctx, mt)
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithLogger sets a custom logger for the registry.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// Registry caches one ModelPair per model type. A type is loaded on first
// demand; concurrent first resolutions share a single load, and loads of
// different types never wait on each other. Failed loads are not cached.
type Registry struct {
	loader Loader
	loaded sync.Map // types.ModelType -> *ModelPair
	group  singleflight.Group
	loads  atomic.Int64
	logger logger.Logger
}

// New creates a Registry backed by loader.
func New(loader Loader, opts ...Option) *Registry {
	r := &Registry{
		loader: loader,
		logger: logger.Get().Named("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the model pair for a case-insensitive model type name.
// Unknown names fail with a *types.ValidationError and load failures with a
// *types.ModelLoadError. If ctx ends while a load is in flight the caller
// gets the context error; the load itself keeps running for other callers.
func (r *Registry) Resolve(ctx context.Context, modelType string) (*ModelPair, error) {
	mt, err := types.ParseModelType(modelType)
	if err != nil {
		return nil, err
	}
	if pair, ok := r.loaded.Load(mt); ok {
		return pair.(*ModelPair), nil
	}

	ch := r.group.DoChan(string(mt), func() (interface{}, error) {
		// A previous flight may have finished between the fast path and here.
		if pair, ok := r.loaded.Load(mt); ok {
			return pair, nil
		}
		return r.load(context.WithoutCancel(ctx), mt)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ModelPair), nil
	}
}

func (r *Registry) load(ctx context.Context, mt types.ModelType) (*ModelPair, error) {
	start := time.Now()
	r.loads.Add(1)
	r.logger.Info(ctx, "loading model pair", logger.String("model_type", mt.String()))

	pair, err := r.loader.Load(ctx, mt)
	if err == nil && (pair == nil || pair.Win == nil || pair.Diff == nil) {
		err = errors.New("loader returned an incomplete model pair")
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordModelLoad(mt.String(), false, elapsed)
		r.logger.Error(ctx, "model pair load failed",
			logger.String("model_type", mt.String()),
			logger.Error(err),
		)
		var lerr *types.ModelLoadError
		if errors.As(err, &lerr) {
			return nil, err
		}
		return nil, &types.ModelLoadError{ModelType: mt, Err: err}
	}

	pair.Type = mt
	if pair.LoadedAt.IsZero() {
		pair.LoadedAt = time.Now()
	}
	r.loaded.Store(mt, pair)
	metrics.RecordModelLoad(mt.String(), true, elapsed)
	metrics.UpdateModelsLoaded(len(r.Loaded()))
	r.logger.Info(ctx, "model pair loaded",
		logger.String("model_type", mt.String()),
		logger.Int("features", len(pair.Schema)),
		logger.Float64("duration_ms", elapsed),
	)
	return pair, nil
}

// Preload resolves the given model types concurrently and returns the first failure.
func (r *Registry) Preload(ctx context.Context, mts ...types.ModelType) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, mt := range mts {
		g.Go(func() error {
			_, err := r.Resolve(gctx, mt.String())
			return err
		})
	}
	return g.Wait()
}

// Loaded lists the model types currently cached, in canonical order.
func (r *Registry) Loaded() []types.ModelType {
	var out []types.ModelType
	for _, mt := range types.ModelTypes() {
		if _, ok := r.loaded.Load(mt); ok {
			out = append(out, mt)
		}
	}
	return out
}

// Peek returns the cached pair for mt without triggering a load.
func (r *Registry) Peek(mt types.ModelType) (*ModelPair, bool) {
	pair, ok := r.loaded.Load(mt)
	if !ok {
		return nil, false
	}
	return pair.(*ModelPair), true
}

// Loads returns how many artifact loads have been executed.
func (r *Registry) Loads() int64 { return r.loads.Load() }
