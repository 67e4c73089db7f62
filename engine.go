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

package docembed

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/gemini"
	"github.com/poiesic/docembed/ai/openai"
	"github.com/poiesic/docembed/cache"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/embedding"
	"github.com/poiesic/docembed/ingestion"
	"github.com/poiesic/docembed/insights"
	"github.com/poiesic/docembed/progress"
	"github.com/poiesic/docembed/search"
	"github.com/poiesic/docembed/storage"
	"github.com/poiesic/docembed/storage/badger"
	"github.com/poiesic/docembed/storage/postgres"
	"github.com/poiesic/docembed/validation"
)

// Engine owns the long-lived components of a docembed deployment.
type Engine struct {
	config      *Config
	backend     *badger.Backend
	insightRepo storage.InsightRepository
	checkpoints storage.CheckpointRepository
	provider    ai.AIProvider
	cache       *cache.EmbeddingCache
	tracker     *progress.Tracker
	embeddings  *embedding.Service
	extractor   *insights.Service
	pipeline    *ingestion.Pipeline
	searcher    *search.Searcher
	stopSweeper context.CancelFunc
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	provider  ai.AIProvider
	observers []progress.Observer
	logger    *slog.Logger
}

// WithProvider supplies an AI provider instead of building one from Config.AI.
// The engine takes ownership and closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithObserver registers a progress observer on the engine's tracker.
func WithObserver(observer progress.Observer) Option {
	return func(o *engineOptions) {
		if observer != nil {
			o.observers = append(o.observers, observer)
		}
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// Open builds an Engine from cfg. The caller must Close it.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	e := &Engine{config: cfg, logger: logger.With("component", "engine")}
	if err := e.open(ctx, options); err != nil {
		if cerr := e.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}
	return e, nil
}

func (e *Engine) open(ctx context.Context, options *engineOptions) error {
	cfg := e.config
	logger := options.logger

	// Storage
	var err error
	e.backend, err = badger.OpenBackend(cfg.DataDir, cfg.DataDir == "")
	if err != nil {
		return fmt.Errorf("opening badger: %w", err)
	}
	e.checkpoints = badger.NewCheckpointRepository(e.backend)
	if cfg.PostgresDSN != "" {
		repo, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("opening postgres insight store: %w", err)
		}
		e.insightRepo = repo
	} else {
		repo, err := badger.NewInsightRepository(e.backend)
		if err != nil {
			return fmt.Errorf("opening insight store: %w", err)
		}
		e.insightRepo = repo
	}

	// AI provider
	e.provider = options.provider
	if e.provider == nil {
		if e.provider, err = newProvider(ctx, &cfg.AI); err != nil {
			return fmt.Errorf("creating AI provider: %w", err)
		}
	}

	// Embedding
	embeddingOpts := []embedding.Option{
		embedding.WithModel(cfg.AI.EmbeddingModel),
		embedding.WithDimensions(cfg.AI.Dimensions),
		embedding.WithRetryPolicy(cfg.retryPolicy()),
		embedding.WithMaxConcurrency(cfg.Embedding.MaxConcurrency),
		embedding.WithRateLimit(cfg.Embedding.RequestsPerSecond, cfg.Embedding.Burst),
		embedding.WithLogger(logger.With("component", "embedding")),
	}
	if !cfg.Cache.Disabled {
		e.cache = cache.New(cfg.cacheConfig(), cache.WithLogger(logger.With("component", "cache")))
		embeddingOpts = append(embeddingOpts, embedding.WithCache(e.cache))
	}
	if e.embeddings, err = embedding.NewService(e.provider.Embedder(), embeddingOpts...); err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}

	// Progress
	trackerOpts := []progress.Option{progress.WithLogger(logger.With("component", "progress"))}
	for _, o := range options.observers {
		trackerOpts = append(trackerOpts, progress.WithObserver(o))
	}
	e.tracker = progress.NewTracker(trackerOpts...)
	if interval := cfg.Pipeline.SweepInterval.Duration; interval > 0 {
		sweepCtx, cancel := context.WithCancel(context.Background())
		e.stopSweeper = cancel
		e.tracker.StartSweeper(sweepCtx, interval, cfg.Pipeline.SessionMaxAge.Duration)
	}

	// Insights
	e.extractor, err = insights.NewService(e.provider.Generator(), e.embeddings, e.insightRepo,
		insights.WithRetryPolicy(cfg.retryPolicy()),
		insights.WithLogger(logger.With("component", "insights")))
	if err != nil {
		return fmt.Errorf("creating insight service: %w", err)
	}

	// Pipeline
	e.pipeline, err = ingestion.NewPipeline(e.embeddings,
		ingestion.WithValidator(validation.New(validation.WithLogger(logger.With("component", "validation")))),
		ingestion.WithTracker(e.tracker),
		ingestion.WithCheckpoints(e.checkpoints, cfg.Pipeline.CheckpointInterval),
		ingestion.WithInsightExtractor(e.extractor, cfg.Insights),
		ingestion.WithPoolSize(cfg.Pipeline.InsightWorkers),
		ingestion.WithHealthThreshold(cfg.Pipeline.HealthThreshold.Duration),
		ingestion.WithLogger(logger.With("component", "pipeline")),
	)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	// Search
	e.searcher, err = search.NewSearcher(e.insightRepo, e.embeddings,
		search.WithMinSimilarity(cfg.Search.MinSimilarity),
		search.WithLogger(logger.With("component", "search")))
	if err != nil {
		return fmt.Errorf("creating searcher: %w", err)
	}
	return nil
}

func newProvider(ctx context.Context, cfg *ai.Config) (ai.AIProvider, error) {
	switch cfg.Provider {
	case ai.ProviderGemini:
		return gemini.NewProvider(ctx, cfg)
	case ai.ProviderOpenAI, "":
		return openai.NewProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, cfg.Provider)
	}
}

// Close waits for queued insight extraction and releases every component.
// It is safe to call on a partially opened engine.
func (e *Engine) Close() error {
	var errs []error

	if e.pipeline != nil {
		e.pipeline.Release()
	}
	if e.stopSweeper != nil {
		e.stopSweeper()
	}
	if e.embeddings != nil {
		e.embeddings.Close()
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.insightRepo != nil {
		if err := e.insightRepo.Close(); err != nil {
			e.logger.Error("error closing insight repository", "err", err)
			errs = append(errs, err)
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Pipeline returns the document processing pipeline.
func (e *Engine) Pipeline() *ingestion.Pipeline {
	return e.pipeline
}

// Embeddings returns the embedding service.
func (e *Engine) Embeddings() *embedding.Service {
	return e.embeddings
}

// Insights returns the insight extraction service.
func (e *Engine) Insights() *insights.Service {
	return e.extractor
}

// Searcher returns the insight searcher.
func (e *Engine) Searcher() *search.Searcher {
	return e.searcher
}

// Tracker returns the progress tracker.
func (e *Engine) Tracker() *progress.Tracker {
	return e.tracker
}

func (e *Engine) InsightRepository() storage.InsightRepository {
	return e.insightRepo
}

func (e *Engine) CheckpointRepository() storage.CheckpointRepository {
	return e.checkpoints
}

// ProcessDocument runs doc through the pipeline with options derived from the configuration.
// Queued insight extraction finishes before Close returns.
func (e *Engine) ProcessDocument(ctx context.Context, doc *core.DocumentInput) (*core.ProcessedDocument, error) {
	return e.pipeline.ResumeFromCheckpoint(ctx, doc, e.config.ProcessOptions())
}

// ProcessDocuments processes docs in order with options derived from the
// configuration, resuming each from its checkpoint. Documents that fail are
// logged and left out of the sequence.
func (e *Engine) ProcessDocuments(ctx context.Context, docs []*core.DocumentInput) iter.Seq[*core.ProcessedDocument] {
	return e.pipeline.ProcessDocuments(ctx, docs, e.config.ProcessOptions())
}
