package repository

import "github.com/hay5612/scorebot/pkg/logger"

type settings struct {
	path   string
	dsn    string
	table  string
	logger logger.Logger
}

// Option applies a configuration option to a statistics source.
type Option func(*settings)

// WithPath sets the CSV file read by the csv source.
func WithPath(path string) Option {
	return func(s *settings) {
		s.path = path
	}
}

// WithDSN sets the database DSN used by the sqlite and postgres sources.
func WithDSN(dsn string) Option {
	return func(s *settings) {
		s.dsn = dsn
	}
}

// WithTable sets the table queried by the database sources.
func WithTable(table string) Option {
	return func(s *settings) {
		if table != "" {
			s.table = table
		}
	}
}

// WithLogger sets a custom logger for the source.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
