// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/docembed/chunking"
	"github.com/poiesic/docembed/embedding"
	"github.com/poiesic/docembed/insights"
	"github.com/poiesic/docembed/progress"
	"github.com/poiesic/docembed/storage"
	"github.com/poiesic/docembed/validation"
)

const (
	// DefaultCheckpointInterval is the number of chunks embedded between checkpoints.
	DefaultCheckpointInterval = 50

	// DefaultHealthThreshold is the embed latency above which the pipeline
	// reports itself degraded.
	DefaultHealthThreshold = 5 * time.Second
)

// ProcessOptions controls how a single document is processed.
type ProcessOptions struct {
	// GenerateEmbeddings embeds chunks after chunking. Default: true
	GenerateEmbeddings bool `toml:"generate_embeddings"`

	// ValidateInput runs the document validator first. Default: true
	ValidateInput bool `toml:"validate_input"`

	// BatchSize is the number of chunks per provider call. Zero adapts to
	// chunk length.
	BatchSize int `toml:"batch_size"`

	// Retries is the maximum number of attempts per provider call. Default: 3
	Retries int `toml:"retries"`

	// RetryDelay is the initial backoff between attempts. Default: 1s
	RetryDelay time.Duration `toml:"retry_delay"`

	// CacheEmbeddings reads and writes the embedding cache. Default: true
	CacheEmbeddings bool `toml:"cache_embeddings"`

	// TrackCosts fills ProcessingStats.Costs. Default: true
	TrackCosts bool `toml:"track_costs"`

	Chunking chunking.Options `toml:"chunking"`

	// SessionID names the progress session. A random ID is used when empty.
	SessionID string `toml:"-"`

	// ExtractInsights queues the finished document for insight extraction
	// when the pipeline has an extractor.
	ExtractInsights bool `toml:"extract_insights"`

	// UserID owns extracted insights.
	UserID string `toml:"-"`
}

// DefaultProcessOptions returns the default processing options.
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		GenerateEmbeddings: true,
		ValidateInput:      true,
		Retries:            3,
		RetryDelay:         time.Second,
		CacheEmbeddings:    true,
		TrackCosts:         true,
		Chunking:           chunking.DefaultOptions(),
	}
}

// Validate checks the options.
func (o ProcessOptions) Validate() error {
	if o.Retries <= 0 {
		return fmt.Errorf("%w: retries must be positive", ErrInvalidOptions)
	}
	if o.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidOptions)
	}
	if o.BatchSize < 0 {
		return fmt.Errorf("%w: batch size must not be negative", ErrInvalidOptions)
	}
	return nil
}

// retryPolicy derives the batch retry policy from base.
func (o ProcessOptions) retryPolicy(base embedding.RetryPolicy) embedding.RetryPolicy {
	policy := base
	policy.MaxAttempts = o.Retries
	policy.InitialDelay = o.RetryDelay
	return policy
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithValidator replaces the default document validator.
func WithValidator(v *validation.Validator) Option {
	return func(p *Pipeline) error {
		if v != nil {
			p.validator = v
		}
		return nil
	}
}

// WithTracker sets the progress tracker. Default is a private tracker.
func WithTracker(t *progress.Tracker) Option {
	return func(p *Pipeline) error {
		if t != nil {
			p.tracker = t
		}
		return nil
	}
}

// WithCheckpoints persists progress to repo after every interval embedded
// chunks. A non-positive interval uses DefaultCheckpointInterval.
func WithCheckpoints(repo storage.CheckpointRepository, interval int) Option {
	return func(p *Pipeline) error {
		if interval <= 0 {
			interval = DefaultCheckpointInterval
		}
		p.checkpoints = repo
		p.checkpointInterval = interval
		return nil
	}
}

// WithInsightExtractor enables asynchronous insight extraction for documents
// processed with ProcessOptions.ExtractInsights.
func WithInsightExtractor(extractor InsightExtractor, opts insights.Options) Option {
	return func(p *Pipeline) error {
		if extractor == nil {
			return nil
		}
		if err := opts.Validate(); err != nil {
			return err
		}
		p.extractor = extractor
		p.insightOpts = opts
		return nil
	}
}

// WithPoolSize sets the number of documents extracted concurrently.
// Default is 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithHealthThreshold sets the latency above which Health reports degraded.
func WithHealthThreshold(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d > 0 {
			p.healthThreshold = d
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default() tagged with the pipeline component.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}
