package store

import (
	"github.com/go-playground/validator/v10"

	"github.com/Alturino/storefront/internal/metrics"
)

type Option func(*Store)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func WithValidator(v *validator.Validate) Option {
	return func(s *Store) {
		s.validate = v
	}
}

// WithLatestReloadWins makes a reload commit only if no other reload or mutation started
// after it. Without it, whichever reload finishes last determines the state.
func WithLatestReloadWins() Option {
	return func(s *Store) {
		s.latestReloadWins = true
	}
}
