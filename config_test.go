package docembed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docembed/ai"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ai.ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.Duration)
	assert.Equal(t, 50, cfg.Pipeline.CheckpointInterval)
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
data_dir = "/var/lib/docembed"
user_id = "alice"

[ai]
provider = "gemini"
api_key = "secret"
embedding_model = "text-embedding-004"
generator_model = "gemini-1.5-flash"
dimensions = 768

[cache]
max_entries = 500
ttl = "90m"

[chunking]
max_tokens = 400
overlap_tokens = 40
min_tokens = 20

[embedding]
retry_delay = "250ms"
requests_per_second = 5.0
burst = 2

[insights]
min_confidence = 0.75

[search]
max_hits = 3
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/var/lib/docembed", cfg.DataDir)
	assert.Equal(t, "alice", cfg.UserID)
	assert.Equal(t, ai.ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, 768, cfg.AI.Dimensions)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, 90*time.Minute, cfg.Cache.TTL.Duration)
	assert.Equal(t, 400, cfg.Chunking.MaxTokens)
	assert.Equal(t, 250*time.Millisecond, cfg.Embedding.RetryDelay.Duration)
	assert.InDelta(t, 5.0, cfg.Embedding.RequestsPerSecond, 1e-9)
	assert.InDelta(t, 0.75, cfg.Insights.MinConfidence, 1e-9)
	assert.Equal(t, 3, cfg.Search.MaxHits)

	// Untouched sections keep their defaults
	assert.Equal(t, 3, cfg.Insights.SegmentSize)
	assert.Equal(t, 3, cfg.Embedding.MaxAttempts)
}

func TestParseConfig_Errors(t *testing.T) {
	_, err := ParseConfig([]byte(`unknown_key = 1`))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseConfig([]byte("[cache]\nttl = \"soon\""))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseConfig([]byte(`data_dir = `))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_ApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"DOCEMBED_DATA_DIR":        "/data",
		"DOCEMBED_DATABASE_URL":    "postgres://localhost/docembed",
		"DOCEMBED_HOST":            "http://localhost:11434",
		"DOCEMBED_EMBEDDING_MODEL": "nomic-embed-text",
		"DOCEMBED_DIMENSIONS":      "768",
		"OPENAI_API_KEY":           "sk-test",
		"GEMINI_API_KEY":           "ignored",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, "postgres://localhost/docembed", cfg.PostgresDSN)
	assert.Equal(t, "http://localhost:11434", cfg.AI.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434", cfg.AI.GeneratorHost)
	assert.Equal(t, "nomic-embed-text", cfg.AI.EmbeddingModel)
	assert.Equal(t, 768, cfg.AI.Dimensions)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:11434/v1", cfg.AI.EmbeddingHost)
}

func TestConfig_ApplyEnv_ProviderKeys(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
		"DOCEMBED_PROVIDER": "gemini",
		"OPENAI_API_KEY":    "ignored",
		"GEMINI_API_KEY":    "g-key",
	})))
	assert.Equal(t, ai.ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "g-key", cfg.AI.APIKey)

	cfg = DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
		"DOCEMBED_API_KEY": "explicit",
		"OPENAI_API_KEY":   "fallback",
	})))
	assert.Equal(t, "explicit", cfg.AI.APIKey)

	cfg = DefaultConfig()
	err := cfg.ApplyEnv(envMap(map[string]string{"DOCEMBED_DIMENSIONS": "many"}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad provider", func(c *Config) { c.AI.Provider = "acme" }},
		{"bad chunking", func(c *Config) { c.Chunking.OverlapTokens = c.Chunking.MaxTokens }},
		{"bad insights", func(c *Config) { c.Insights.SegmentSize = 0 }},
		{"bad cache", func(c *Config) { c.Cache.MaxEntries = 0 }},
		{"bad retries", func(c *Config) { c.Embedding.MaxAttempts = 0 }},
		{"negative batch", func(c *Config) { c.Embedding.BatchSize = -1 }},
		{"bad checkpoint interval", func(c *Config) { c.Pipeline.CheckpointInterval = 0 }},
		{"bad workers", func(c *Config) { c.Pipeline.InsightWorkers = 0 }},
		{"bad similarity", func(c *Config) { c.Search.MinSimilarity = 2 }},
		{"bad max hits", func(c *Config) { c.Search.MaxHits = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("disabled cache skips cache checks", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Cache.Disabled = true
		cfg.Cache.MaxEntries = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docembed.toml")
	require.NoError(t, os.WriteFile(path, []byte("user_id = \"file-user\"\n[search]\nmax_hits = 7\n"), 0o600))
	t.Setenv("DOCEMBED_USER_ID", "env-user")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-user", cfg.UserID)
	assert.Equal(t, 7, cfg.Search.MaxHits)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_ProcessOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UserID = "u1"
	cfg.Cache.Disabled = true
	cfg.Embedding.BatchSize = 16

	opts := cfg.ProcessOptions()
	assert.Equal(t, "u1", opts.UserID)
	assert.False(t, opts.CacheEmbeddings)
	assert.Equal(t, 16, opts.BatchSize)
	assert.True(t, opts.ExtractInsights)
	assert.Equal(t, cfg.Chunking, opts.Chunking)
	require.NoError(t, opts.Validate())
}
