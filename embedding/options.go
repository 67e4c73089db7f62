package embedding

import (
	"errors"
	"log/slog"

	"github.com/poiesic/docembed/cache"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxConcurrency bounds provider batches in flight.
	DefaultMaxConcurrency = 3

	// DefaultMaxInputTokens is the token ceiling of OpenAI embedding models.
	DefaultMaxInputTokens = 8191

	// DefaultModel is reported in results when no model is configured.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimensions is the expected vector size when none is configured.
	DefaultDimensions = 1536
)

type settings struct {
	cache          *cache.EmbeddingCache
	limiter        *rate.Limiter
	retry          RetryPolicy
	model          string
	dimensions     int
	maxConcurrency int
	maxInputTokens int
	logger         *slog.Logger
}

func defaultSettings() *settings {
	return &settings{
		retry:          DefaultRetryPolicy(),
		model:          DefaultModel,
		dimensions:     DefaultDimensions,
		maxConcurrency: DefaultMaxConcurrency,
		maxInputTokens: DefaultMaxInputTokens,
	}
}

// Option configures a Service or BatchProcessor.
type Option func(*settings) error

// WithCache sets the shared embedding cache. Without one nothing is cached.
func WithCache(c *cache.EmbeddingCache) Option {
	return func(s *settings) error {
		s.cache = c
		return nil
	}
}

// WithRetryPolicy sets the retry policy for provider calls.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *settings) error {
		if err := p.Validate(); err != nil {
			return err
		}
		s.retry = p
		return nil
	}
}

// WithModel sets the model name used for pricing and result metadata.
func WithModel(model string) Option {
	return func(s *settings) error {
		if model != "" {
			s.model = model
		}
		return nil
	}
}

// WithDimensions sets the vector size every embedding must have.
func WithDimensions(dims int) Option {
	return func(s *settings) error {
		if dims <= 0 {
			return errors.New("dimensions must be greater than 0")
		}
		s.dimensions = dims
		return nil
	}
}

// WithMaxConcurrency bounds the provider batches in flight.
// Default is 3.
func WithMaxConcurrency(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			n = 1
		}
		s.maxConcurrency = n
		return nil
	}
}

// WithMaxInputTokens sets the per-text token ceiling enforced by ValidateInput.
func WithMaxInputTokens(n int) Option {
	return func(s *settings) error {
		if n > 0 {
			s.maxInputTokens = n
		}
		return nil
	}
}

// WithRateLimit throttles provider calls to rps requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *settings) error {
		if rps <= 0 {
			s.limiter = nil
			return nil
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}
