package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hay5612/scorebot/internal/smoke"
	"github.com/hay5612/scorebot/pkg/logger"
)

// Default configuration constants.
const (
	defaultRequests    = 200
	defaultBatchSize   = 16
	defaultTimeout     = 10 * time.Second
	defaultTestTimeout = 5 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	config := &smoke.Config{}
	var verbose bool

	cmd := &cobra.Command{
		Use:          "smoke",
		Short:        "Drive a running scorebot service and verify its predictions",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			if verbose {
				_ = logger.SetLevelString("debug")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTestTimeout)
			defer cancel()

			_, err := smoke.Run(ctx, config)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&config.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVar(&config.Requests, "requests", defaultRequests, "number of single predictions to send")
	f.IntVar(&config.BatchSize, "batch", defaultBatchSize, "size of the batch request; 0 skips it")
	f.IntVar(&config.Workers, "workers", runtime.NumCPU(), "number of concurrent workers")
	f.DurationVar(&config.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.StringSliceVar(&config.ModelTypes, "models", []string{"linear", "gboost", "rf"}, "model types to cycle through")
	f.Uint64Var(&config.Seed, "seed", uint64(time.Now().UnixNano()), "seed for matchup selection")
	f.StringVar(&config.OutputFile, "output", "", "write a JSON report to this file")
	f.BoolVar(&verbose, "verbose", false, "enable debug logging")
	return cmd
}
