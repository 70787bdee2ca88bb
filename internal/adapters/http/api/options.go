package api

import "github.com/hay5612/scorebot/pkg/logger"

type options struct {
	seasonMin    int
	seasonMax    int
	batchLimit   int
	maxBodyBytes int64
	corsOrigins  []string
	logger       logger.Logger
}

func defaultOptions() options {
	return options{
		seasonMin:    2000,
		seasonMax:    2100,
		batchLimit:   64,
		maxBodyBytes: 1 << 20,
		corsOrigins:  []string{"*"},
	}
}

// Option applies a configuration option to the Server.
type Option func(*options)

// WithSeasonBounds sets the inclusive range of accepted seasons.
func WithSeasonBounds(minSeason, maxSeason int) Option {
	return func(o *options) {
		if minSeason <= maxSeason {
			o.seasonMin, o.seasonMax = minSeason, maxSeason
		}
	}
}

// WithBatchLimit caps the number of requests in POST /predict/batch.
func WithBatchLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchLimit = n
		}
	}
}

// WithMaxBodyBytes caps request bodies on the prediction endpoints.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// WithCORSOrigins sets the allowed origins; "*" allows any.
func WithCORSOrigins(origins []string) Option {
	return func(o *options) {
		if len(origins) > 0 {
			o.corsOrigins = origins
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
