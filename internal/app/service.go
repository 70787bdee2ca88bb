// Package service provides the prediction service that orchestrates stats
// lookups, feature building and model inference for the HTTP API and CLI.
package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hay5612/scorebot/internal/adapters/cache"
	"github.com/hay5612/scorebot/internal/domain/features"
	"github.com/hay5612/scorebot/internal/domain/model"
	"github.com/hay5612/scorebot/internal/domain/registry"
	"github.com/hay5612/scorebot/internal/domain/stats"
	"github.com/hay5612/scorebot/internal/domain/types"
	"github.com/hay5612/scorebot/pkg/logger"
	"github.com/hay5612/scorebot/pkg/metrics"
)

// Default service configuration.
const (
	DefaultNeutralSiteFactor = 0.9
	DefaultBatchConcurrency  = 8
)

// Request is a matchup to predict.
type Request = model.Matchup

// BatchItem is the outcome of one request in a batch. Exactly one of Result and Err is set.
type BatchItem struct {
	Result *types.PredictionResult
	Err    error
}

// Service implements the API dependencies for the prediction system.
type Service struct {
	mu sync.RWMutex

	// Core components
	repo     *stats.Repository
	registry *registry.Registry
	builder  *features.Builder
	cache    cache.Cache

	// Configuration
	neutralFactor    float64
	batchConcurrency int
	preload          []types.ModelType

	// State
	started     bool
	predictions atomic.Int64
	failures    atomic.Int64
	cacheHits   atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFeatureBuilder replaces the default feature builder.
func WithFeatureBuilder(b *features.Builder) Option {
	return func(s *Service) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithNeutralSiteFactor sets the multiplier applied to the point
// differential of neutral-site games. The win probability is never adjusted.
func WithNeutralSiteFactor(f float64) Option {
	return func(s *Service) {
		if f > 0 {
			s.neutralFactor = f
		}
	}
}

// WithResultCache memoizes successful predictions.
func WithResultCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithBatchConcurrency bounds the number of batch items predicted at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithPreload lists model types loaded by Start.
func WithPreload(mts ...types.ModelType) Option {
	return func(s *Service) {
		s.preload = mts
	}
}

// New constructs a Service over a stats repository and a model registry.
func New(repo *stats.Repository, reg *registry.Registry, opts ...Option) *Service {
	s := &Service{
		repo:             repo,
		registry:         reg,
		builder:          features.NewBuilder(),
		neutralFactor:    DefaultNeutralSiteFactor,
		batchConcurrency: DefaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	return s
}

// Start preloads the configured model types. No lock is held across the
// preload, so GetStats stays available while artifacts load.
func (s *Service) Start(ctx context.Context) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if started {
		return nil
	}

	s.logger.Info(ctx, "starting prediction service...")

	if len(s.preload) > 0 {
		if err := s.registry.Preload(ctx, s.preload...); err != nil {
			return fmt.Errorf("preload models: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.Int("teams", len(s.repo.Table().Teams())),
		logger.Int("rows", s.repo.Table().Len()),
		logger.Int("preloaded", len(s.preload)),
	)
	return nil
}

// Stop releases the result cache.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping prediction service...")
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing result cache failed", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "prediction service stopped")
}

// Predict runs one matchup through lookup, feature building and inference.
// Failures are *types.ValidationError, *types.NotFoundError,
// *types.ModelLoadError, a context error, or an unexpected inference error.
func (s *Service) Predict(ctx context.Context, req Request) (types.PredictionResult, error) {
	start := time.Now()
	res, err := s.predict(ctx, req)
	s.observe(ctx, req, err, start)
	return res, err
}

func (s *Service) predict(ctx context.Context, req Request) (types.PredictionResult, error) {
	mt, err := types.ParseModelType(req.ModelType)
	if err != nil {
		return types.PredictionResult{}, err
	}
	n := req.Normalized()
	if n.HomeTeam == "" {
		return types.PredictionResult{}, &types.ValidationError{Field: "home_team", Reason: "must not be empty"}
	}
	if n.AwayTeam == "" {
		return types.PredictionResult{}, &types.ValidationError{Field: "away_team", Reason: "must not be empty"}
	}
	r := n.Range()

	key := cache.Key(n.HomeTeam, n.AwayTeam, r, mt, n.NeutralSite)
	if res, ok := s.cached(ctx, key); ok {
		return res, nil
	}

	home, err := s.repo.Lookup(ctx, n.HomeTeam, r.Start, r.End)
	if err != nil {
		return types.PredictionResult{}, err
	}
	away, err := s.repo.Lookup(ctx, n.AwayTeam, r.Start, r.End)
	if err != nil {
		return types.PredictionResult{}, err
	}

	pair, err := s.registry.Resolve(ctx, mt.String())
	if err != nil {
		return types.PredictionResult{}, err
	}

	row := s.builder.Build(home, away, pair.Schema)
	if len(row.Filled) > 0 {
		metrics.RecordDefaultFilled(len(row.Filled))
		s.logger.Debug(ctx, "schema columns filled with default",
			logger.String("model_type", mt.String()),
			logger.Any("columns", row.Filled),
			logger.Float64("value", s.builder.MissingValue()),
		)
	}

	prob, err := pair.Win.PredictProbability(row.Values)
	if err != nil {
		return types.PredictionResult{}, fmt.Errorf("%s win probability: %w", mt, err)
	}
	diff, err := pair.Diff.Predict(row.Values)
	if err != nil {
		return types.PredictionResult{}, fmt.Errorf("%s point differential: %w", mt, err)
	}
	if math.IsNaN(prob) || math.IsInf(prob, 0) || math.IsNaN(diff) || math.IsInf(diff, 0) {
		return types.PredictionResult{}, fmt.Errorf("%s prediction: %w (probability %v, differential %v)", mt, ErrNonFiniteOutput, prob, diff)
	}
	if n.NeutralSite {
		diff *= s.neutralFactor
	}

	winner := n.HomeTeam
	if diff < 0 {
		winner = n.AwayTeam
	}

	res := types.PredictionResult{
		StartSeason:        r.Start,
		EndSeason:          r.End,
		HomeTeam:           n.HomeTeam,
		AwayTeam:           n.AwayTeam,
		ModelType:          mt,
		NeutralSite:        n.NeutralSite,
		HomeWinProbability: prob,
		PredictedPointDiff: diff,
		PredictedWinner:    winner,
	}
	if r.Single() {
		res.Season = r.Start
	}

	s.store(ctx, key, res)
	return res, nil
}

func (s *Service) cached(ctx context.Context, key string) (types.PredictionResult, bool) {
	if s.cache == nil {
		return types.PredictionResult{}, false
	}
	res, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.RecordResultCacheError()
		s.logger.Warn(ctx, "result cache read failed", logger.String("key", key), logger.Error(err))
		return types.PredictionResult{}, false
	}
	metrics.RecordResultCache(ok)
	if ok {
		s.cacheHits.Add(1)
	}
	return res, ok
}

func (s *Service) store(ctx context.Context, key string, res types.PredictionResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, res); err != nil {
		metrics.RecordResultCacheError()
		s.logger.Warn(ctx, "result cache write failed", logger.String("key", key), logger.Error(err))
	}
}

func (s *Service) observe(ctx context.Context, req Request, err error, start time.Time) {
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	kind := types.FailureKind(err)
	label := "invalid"
	if mt, perr := types.ParseModelType(req.ModelType); perr == nil {
		label = mt.String()
	}

	s.predictions.Add(1)
	metrics.RecordPrediction(label, kind)
	metrics.RecordPredictionLatency(label, elapsed)
	if err == nil {
		return
	}

	s.failures.Add(1)
	metrics.RecordErrorByComponent("service", kind)
	metrics.RecordErrorLatency("service", kind, elapsed)
	if kind == types.FailureInternal || kind == types.FailureModelLoad {
		s.logger.Error(ctx, "prediction failed",
			logger.String("kind", kind),
			logger.String("home_team", req.HomeTeam),
			logger.String("away_team", req.AwayTeam),
			logger.String("model_type", label),
			logger.Error(err),
		)
		return
	}
	s.logger.Debug(ctx, "prediction rejected",
		logger.String("kind", kind),
		logger.Error(err),
	)
}

// PredictBatch predicts every request independently. Items keep the order
// of reqs; one failing item never affects another.
func (s *Service) PredictBatch(ctx context.Context, reqs []Request) []BatchItem {
	metrics.RecordBatchSize(len(reqs))
	items := make([]BatchItem, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Predict(gctx, req)
			if err != nil {
				items[i] = BatchItem{Err: err}
				return nil
			}
			items[i] = BatchItem{Result: &res}
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// Teams lists every team with its available seasons.
func (s *Service) Teams() []types.TeamSeasons {
	return s.repo.Table().Teams()
}

// Metrics lists the statistic names available for feature building.
func (s *Service) Metrics() []string {
	return s.repo.Table().Metrics()
}

// ModelInfo describes one supported model type.
type ModelInfo struct {
	Type     types.ModelType `json:"model_type"`
	Loaded   bool            `json:"loaded"`
	Columns  int             `json:"columns,omitempty"`
	LoadedAt *time.Time      `json:"loaded_at,omitempty"`
}

// Models reports each supported model type and whether it is loaded.
func (s *Service) Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(types.ModelTypes()))
	for _, mt := range types.ModelTypes() {
		info := ModelInfo{Type: mt}
		if pair, ok := s.registry.Peek(mt); ok {
			info.Loaded = true
			info.Columns = len(pair.Schema)
			at := pair.LoadedAt
			info.LoadedAt = &at
		}
		out = append(out, info)
	}
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := s.repo.Table()
	loaded := s.registry.Loaded()
	names := make([]string, len(loaded))
	for i, mt := range loaded {
		names[i] = mt.String()
	}

	return map[string]interface{}{
		"started":           s.started,
		"teams":             len(table.Teams()),
		"rows":              table.Len(),
		"metrics":           len(table.Metrics()),
		"modelsLoaded":      names,
		"modelLoads":        s.registry.Loads(),
		"predictions":       s.predictions.Load(),
		"failures":          s.failures.Load(),
		"cacheHits":         s.cacheHits.Load(),
		"resultCache":       s.cache != nil,
		"neutralSiteFactor": s.neutralFactor,
		"batchConcurrency":  s.batchConcurrency,
	}
}
