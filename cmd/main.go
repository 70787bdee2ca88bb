package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hay5612/scorebot/internal/adapters/artifact"
	"github.com/hay5612/scorebot/internal/adapters/cache"
	"github.com/hay5612/scorebot/internal/adapters/http/api"
	"github.com/hay5612/scorebot/internal/adapters/http/site"
	"github.com/hay5612/scorebot/internal/adapters/http/swagger"
	"github.com/hay5612/scorebot/internal/adapters/repository"
	app "github.com/hay5612/scorebot/internal/app"
	"github.com/hay5612/scorebot/internal/config"
	"github.com/hay5612/scorebot/internal/domain/features"
	"github.com/hay5612/scorebot/internal/domain/registry"
	"github.com/hay5612/scorebot/internal/domain/stats"
	"github.com/hay5612/scorebot/internal/domain/types"
	"github.com/hay5612/scorebot/pkg/logger"
	"github.com/hay5612/scorebot/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scorebot",
		Short:         "Matchup win probability and point differential predictions",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newPredictCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func newPredictCmd() *cobra.Command {
	var (
		home, away, model string
		season, endSeason int
		neutral           bool
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict one matchup and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc, err := buildService(ctx, cfg)
			if err != nil {
				return err
			}
			if err := svc.Start(ctx); err != nil {
				return err
			}
			defer svc.Stop()

			if endSeason == 0 {
				endSeason = season
			}
			res, err := svc.Predict(ctx, app.Request{
				HomeTeam:    home,
				AwayTeam:    away,
				StartSeason: season,
				EndSeason:   endSeason,
				ModelType:   model,
				NeutralSite: neutral,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&home, "home", "", "home team code")
	f.StringVar(&away, "away", "", "away team code")
	f.IntVar(&season, "season", 0, "season, or first season of a range")
	f.IntVar(&endSeason, "end-season", 0, "last season of a range (defaults to --season)")
	f.StringVar(&model, "model", types.ModelLinear.String(), "model type: linear, gboost or rf")
	f.BoolVar(&neutral, "neutral", false, "game is played at a neutral site")
	_ = cmd.MarkFlagRequired("home")
	_ = cmd.MarkFlagRequired("away")
	_ = cmd.MarkFlagRequired("season")
	return cmd
}

// setup loads configuration (defaults -> optional file -> env) and
// initializes logging from it.
func setup(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		fmt.Fprintln(os.Stderr, "failed to load config: "+err.Error())
		return nil, err
	}

	opts := []logger.Option{logger.WithFormat(cfg.LogFormat)}
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups))
	}
	if err := logger.Init(opts...); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging: "+err.Error())
		return nil, err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// buildService loads the stats table and wires the prediction service.
func buildService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	log := logger.Get()

	source, err := repository.Open(cfg.StatsSource,
		repository.WithPath(cfg.StatsPath),
		repository.WithDSN(cfg.StatsDSN),
		repository.WithTable(cfg.StatsTable),
		repository.WithLogger(log.Named("repository")),
	)
	if err != nil {
		return nil, fmt.Errorf("open stats source: %w", err)
	}
	table, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats from %s: %w", source.Describe(), err)
	}

	preload := make([]types.ModelType, 0, len(cfg.PreloadModels))
	for _, raw := range cfg.PreloadModels {
		mt, err := types.ParseModelType(raw)
		if err != nil {
			return nil, fmt.Errorf("preload_models: %w", err)
		}
		preload = append(preload, mt)
	}

	loader := artifact.NewFileLoader(cfg.ModelDir, artifact.WithLogger(log.Named("artifact")))
	reg := registry.New(loader, registry.WithLogger(log.Named("registry")))

	results, err := cache.New(ctx, cfg.ResultCache,
		cache.WithSize(cfg.ResultCacheSize),
		cache.WithTTL(time.Duration(cfg.ResultCacheTTLS)*time.Second),
		cache.WithRedisURL(cfg.RedisURL),
	)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithFeatureBuilder(features.NewBuilder(features.WithMissingValue(cfg.MissingFeatureValue))),
		app.WithNeutralSiteFactor(cfg.NeutralSiteFactor),
		app.WithBatchConcurrency(cfg.BatchConcurrency),
		app.WithPreload(preload...),
	}
	if results != nil {
		opts = append(opts, app.WithResultCache(results))
	}
	return app.New(stats.NewRepository(table), reg, opts...), nil
}

// newMux registers the docs, the front page and the API on one mux.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithSeasonBounds(cfg.SeasonMin, cfg.SeasonMax),
		api.WithBatchLimit(cfg.BatchLimit),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithLogger(logger.Get().Named("api")),
	)
	apiServer.Register(ctx, mux)
	return apiServer.Handler(mux)
}

func serve(ctx context.Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to close log file: "+err.Error())
		}
	}()
	loggerInstance := logger.Get()

	svc, err := buildService(ctx, cfg)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return err
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return err
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			return err
		}
	}
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
