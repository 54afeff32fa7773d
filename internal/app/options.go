package service

import (
	"github.com/okian/f1replay/internal/adapters/repository"
	"github.com/okian/f1replay/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects the record store. The service does not close an
// injected store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.ownsStore = false
		}
	}
}

// WithReplaysDir sets the directory Start opens a SQLite store over when no
// store is injected.
func WithReplaysDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.replaysDir = dir
		}
	}
}

// WithReplayExtension sets the replay file suffix.
func WithReplayExtension(ext string) Option {
	return func(s *Service) {
		if ext != "" {
			s.extension = ext
		}
	}
}

// WithAverageSpeed sets the gap calibration in meters per second.
func WithAverageSpeed(mps float64) Option {
	return func(s *Service) {
		if mps > 0 {
			s.averageSpeed = mps
		}
	}
}

// WithMaxClassifiedPosition sets the highest classified position.
func WithMaxClassifiedPosition(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxClassified = n
		}
	}
}

// WithSampleLimits caps the player samples of the replay overview.
func WithSampleLimits(lapSamples, telemetrySamples int) Option {
	return func(s *Service) {
		if lapSamples >= 0 {
			s.lapSampleLimit = lapSamples
		}
		if telemetrySamples >= 0 {
			s.telemetrySampleLimit = telemetrySamples
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPrewarmWorkers loads every replay's session index in the background
// on Start using n workers. Zero disables prewarming.
func WithPrewarmWorkers(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.prewarmWorkers = n
		}
	}
}
