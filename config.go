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
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/cache"
	"github.com/poiesic/docembed/chunking"
	"github.com/poiesic/docembed/embedding"
	"github.com/poiesic/docembed/ingestion"
	"github.com/poiesic/docembed/insights"
	"github.com/poiesic/docembed/search"
)

// Duration is a time.Duration written as a string ("30s", "24h") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the application configuration.
type Config struct {
	// DataDir holds the badger database. Empty runs in memory.
	DataDir string `toml:"data_dir"`

	// PostgresDSN moves the insight store to Postgres when set.
	// Checkpoints stay in badger.
	PostgresDSN string `toml:"postgres_dsn"`

	// UserID owns extracted insights and scopes searches.
	UserID string `toml:"user_id"`

	AI        ai.Config        `toml:"ai"`
	Embedding EmbeddingConfig  `toml:"embedding"`
	Cache     CacheConfig      `toml:"cache"`
	Chunking  chunking.Options `toml:"chunking"`
	Pipeline  PipelineConfig   `toml:"pipeline"`
	Insights  insights.Options `toml:"insights"`
	Search    SearchConfig     `toml:"search"`
}

// EmbeddingConfig tunes provider calls.
type EmbeddingConfig struct {
	// BatchSize is the number of texts per provider call. Zero adapts to text length.
	BatchSize         int      `toml:"batch_size"`
	MaxConcurrency    int      `toml:"max_concurrency"`
	RequestsPerSecond float64  `toml:"requests_per_second"` // Zero disables throttling
	Burst             int      `toml:"burst"`
	MaxAttempts       int      `toml:"max_attempts"`
	RetryDelay        Duration `toml:"retry_delay"`
	MaxRetryDelay     Duration `toml:"max_retry_delay"`
	Timeout           Duration `toml:"timeout"`
}

// CacheConfig sizes the embedding cache.
type CacheConfig struct {
	Disabled   bool     `toml:"disabled"`
	MaxEntries int      `toml:"max_entries"`
	TTL        Duration `toml:"ttl"`
}

// PipelineConfig tunes document processing.
type PipelineConfig struct {
	CheckpointInterval int      `toml:"checkpoint_interval"`
	InsightWorkers     int      `toml:"insight_workers"`
	ExtractInsights    bool     `toml:"extract_insights"`
	TrackCosts         bool     `toml:"track_costs"`
	HealthThreshold    Duration `toml:"health_threshold"`

	// SweepInterval and SessionMaxAge drive the progress session sweeper.
	SweepInterval Duration `toml:"sweep_interval"`
	SessionMaxAge Duration `toml:"session_max_age"`
}

// SearchConfig tunes insight search.
type SearchConfig struct {
	MinSimilarity float32 `toml:"min_similarity"`
	MaxHits       int     `toml:"max_hits"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	retry := embedding.DefaultRetryPolicy()
	cacheDefaults := cache.DefaultConfig()
	return &Config{
		AI: *ai.DefaultConfig(),
		Embedding: EmbeddingConfig{
			MaxConcurrency: 4,
			MaxAttempts:    retry.MaxAttempts,
			RetryDelay:     Duration{retry.InitialDelay},
			MaxRetryDelay:  Duration{retry.MaxDelay},
			Timeout:        Duration{retry.Timeout},
		},
		Cache: CacheConfig{
			MaxEntries: cacheDefaults.MaxEntries,
			TTL:        Duration{cacheDefaults.TTL},
		},
		Chunking: chunking.DefaultOptions(),
		Pipeline: PipelineConfig{
			CheckpointInterval: ingestion.DefaultCheckpointInterval,
			InsightWorkers:     1,
			ExtractInsights:    true,
			TrackCosts:         true,
			HealthThreshold:    Duration{ingestion.DefaultHealthThreshold},
			SweepInterval:      Duration{10 * time.Minute},
			SessionMaxAge:      Duration{time.Hour},
		},
		Insights: insights.DefaultOptions(),
		Search: SearchConfig{
			MinSimilarity: search.DefaultMinSimilarity,
			MaxHits:       10,
		},
	}
}

// ParseConfig decodes TOML over the defaults. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%w: line %d column %d: %w", ErrInvalidConfig, row, col, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// LoadConfig reads path (skipped when empty), loads a .env file from the
// working directory when one exists, overlays DOCEMBED_* environment
// variables and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if cfg, err = ParseConfig(data); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables read through lookup.
//
// Recognized variables:
//   - DOCEMBED_DATA_DIR, DOCEMBED_DATABASE_URL, DOCEMBED_USER_ID
//   - DOCEMBED_PROVIDER, DOCEMBED_API_KEY, DOCEMBED_HOST
//   - DOCEMBED_EMBEDDING_MODEL, DOCEMBED_GENERATOR_MODEL, DOCEMBED_DIMENSIONS
//
// OPENAI_API_KEY or GEMINI_API_KEY fill in a missing API key for their provider.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set("DOCEMBED_DATA_DIR", &c.DataDir)
	set("DOCEMBED_DATABASE_URL", &c.PostgresDSN)
	set("DOCEMBED_USER_ID", &c.UserID)

	var provider string
	set("DOCEMBED_PROVIDER", &provider)
	if provider != "" {
		c.AI.Provider = ai.ProviderName(provider)
	}

	var host string
	set("DOCEMBED_HOST", &host)
	if host != "" {
		c.AI.EmbeddingHost = host
		c.AI.GeneratorHost = host
	}
	set("DOCEMBED_EMBEDDING_MODEL", &c.AI.EmbeddingModel)
	set("DOCEMBED_GENERATOR_MODEL", &c.AI.GeneratorModel)

	var dims string
	set("DOCEMBED_DIMENSIONS", &dims)
	if dims != "" {
		n, err := strconv.Atoi(dims)
		if err != nil {
			return fmt.Errorf("%w: DOCEMBED_DIMENSIONS=%q is not an integer", ErrInvalidConfig, dims)
		}
		c.AI.Dimensions = n
	}

	set("DOCEMBED_API_KEY", &c.AI.APIKey)
	if c.AI.APIKey == "" {
		switch c.AI.Provider {
		case ai.ProviderGemini:
			set("GEMINI_API_KEY", &c.AI.APIKey)
		default:
			set("OPENAI_API_KEY", &c.AI.APIKey)
		}
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Insights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !c.Cache.Disabled {
		if err := c.cacheConfig().Validate(); err != nil {
			return fmt.Errorf("%w: cache: %w", ErrInvalidConfig, err)
		}
	}
	if err := c.retryPolicy().Validate(); err != nil {
		return fmt.Errorf("%w: embedding: %w", ErrInvalidConfig, err)
	}

	switch {
	case c.Embedding.BatchSize < 0:
		return fmt.Errorf("%w: embedding batch size must not be negative", ErrInvalidConfig)
	case c.Pipeline.CheckpointInterval <= 0:
		return fmt.Errorf("%w: checkpoint interval must be positive", ErrInvalidConfig)
	case c.Pipeline.InsightWorkers <= 0:
		return fmt.Errorf("%w: insight workers must be positive", ErrInvalidConfig)
	case c.Search.MinSimilarity < -1 || c.Search.MinSimilarity > 1:
		return fmt.Errorf("%w: search min similarity must be between -1 and 1", ErrInvalidConfig)
	case c.Search.MaxHits <= 0:
		return fmt.Errorf("%w: search max hits must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) cacheConfig() cache.Config {
	return cache.Config{MaxEntries: c.Cache.MaxEntries, TTL: c.Cache.TTL.Duration}
}

func (c *Config) retryPolicy() embedding.RetryPolicy {
	policy := embedding.DefaultRetryPolicy()
	policy.MaxAttempts = c.Embedding.MaxAttempts
	policy.InitialDelay = c.Embedding.RetryDelay.Duration
	policy.MaxDelay = c.Embedding.MaxRetryDelay.Duration
	policy.Timeout = c.Embedding.Timeout.Duration
	return policy
}

// ProcessOptions returns pipeline options derived from the configuration.
func (c *Config) ProcessOptions() ingestion.ProcessOptions {
	opts := ingestion.DefaultProcessOptions()
	opts.BatchSize = c.Embedding.BatchSize
	opts.Retries = c.Embedding.MaxAttempts
	opts.RetryDelay = c.Embedding.RetryDelay.Duration
	opts.CacheEmbeddings = !c.Cache.Disabled
	opts.TrackCosts = c.Pipeline.TrackCosts
	opts.Chunking = c.Chunking
	opts.ExtractInsights = c.Pipeline.ExtractInsights
	opts.UserID = c.UserID
	return opts
}
