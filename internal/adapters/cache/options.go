package cache

import "time"

type options struct {
	size     int
	ttl      time.Duration
	redisURL string
}

func defaultOptions() options {
	return options{size: 4096, ttl: 10 * time.Minute}
}

// Option configures New.
type Option func(*options)

// WithSize bounds the number of entries held by the memory backend.
func WithSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithTTL sets entry lifetime; zero keeps entries until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl >= 0 {
			o.ttl = ttl
		}
	}
}

// WithRedisURL sets the redis:// URL used by the redis backend.
func WithRedisURL(url string) Option {
	return func(o *options) {
		o.redisURL = url
	}
}
