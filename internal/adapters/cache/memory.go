package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hay5612/scorebot/internal/domain/types"
)

// Memory is an in-process LRU with optional per-entry expiry.
type Memory struct {
	lru *expirable.LRU[string, types.PredictionResult]
}

var _ Cache = (*Memory)(nil)

// NewMemory creates a cache holding at most size entries.
func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, types.PredictionResult](size, nil, ttl)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) (types.PredictionResult, bool, error) {
	r, ok := m.lru.Get(key)
	return r, ok, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, r types.PredictionResult) error {
	m.lru.Add(key, r)
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int { return m.lru.Len() }

// Close implements Cache.
func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
