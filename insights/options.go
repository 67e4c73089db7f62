package insights

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/docembed/embedding"
)

// Options controls one extraction run.
type Options struct {
	// SegmentSize is the number of consecutive chunks sent per request. Default: 3
	SegmentSize int `toml:"segment_size"`

	// MinConfidence drops insights scored below it. Default: 0.6
	MinConfidence float64 `toml:"min_confidence"`

	// MaxInsights caps the insights kept per document. Default: 20
	MaxInsights int `toml:"max_insights"`

	// MaxPerSegment is the number of insights the prompt asks for per segment. Default: 5
	MaxPerSegment int `toml:"max_per_segment"`

	// MaxConcurrency bounds in-flight segment requests. Default: 3
	MaxConcurrency int `toml:"max_concurrency"`
}

// DefaultOptions returns the default extraction options.
func DefaultOptions() Options {
	return Options{
		SegmentSize:    3,
		MinConfidence:  0.6,
		MaxInsights:    20,
		MaxPerSegment:  5,
		MaxConcurrency: 3,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	switch {
	case o.SegmentSize <= 0:
		return fmt.Errorf("%w: segment size must be positive", ErrInvalidOptions)
	case o.MinConfidence < 0 || o.MinConfidence > 1:
		return fmt.Errorf("%w: min confidence must be between 0 and 1", ErrInvalidOptions)
	case o.MaxInsights <= 0:
		return fmt.Errorf("%w: max insights must be positive", ErrInvalidOptions)
	case o.MaxPerSegment <= 0:
		return fmt.Errorf("%w: max per segment must be positive", ErrInvalidOptions)
	case o.MaxConcurrency <= 0:
		return fmt.Errorf("%w: max concurrency must be positive", ErrInvalidOptions)
	}
	return nil
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRetryPolicy sets the policy for generation and persistence calls.
func WithRetryPolicy(policy embedding.RetryPolicy) Option {
	return func(s *Service) {
		s.retry = policy
	}
}

// WithMerger replaces the merge step.
func WithMerger(m MergeFunc) Option {
	return func(s *Service) {
		if m != nil {
			s.merge = m
		}
	}
}
