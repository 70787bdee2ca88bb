// Package cache memoizes prediction results. Predictions are deterministic
// for a normalized request, so a hit is indistinguishable from recomputing.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hay5612/scorebot/internal/domain/types"
)

// ErrUnknownBackend is returned by New for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown result cache backend")

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Cache stores prediction results by request key.
type Cache interface {
	Get(ctx context.Context, key string) (types.PredictionResult, bool, error)
	Set(ctx context.Context, key string, r types.PredictionResult) error
	Close() error
}

// Key renders a normalized request as a cache key.
func Key(home, away string, r types.SeasonRange, mt types.ModelType, neutral bool) string {
	var b strings.Builder
	b.WriteString(home)
	b.WriteByte('|')
	b.WriteString(away)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(r.Start))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(r.End))
	b.WriteByte('|')
	b.WriteString(mt.String())
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(neutral))
	return b.String()
}

// New builds the backend named by kind. BackendNone returns a nil Cache.
func New(ctx context.Context, kind string, opts ...Option) (Cache, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case BackendNone, "":
		return nil, nil //nolint:nilnil // no cache configured
	case BackendMemory:
		return NewMemory(o.size, o.ttl), nil
	case BackendRedis:
		return NewRedis(ctx, o.redisURL, o.ttl)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
}
