package search

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
)

const (
	// DefaultMinSimilarity is the vector search cut-off.
	DefaultMinSimilarity = 0.60

	verbatimBoost    = 0.3
	confidenceWeight = 0.1

	// candidateFactor over-fetches so re-ranking can promote verbatim hits.
	candidateFactor = 2
)

// QueryEmbedder embeds search queries. *embedding.Service satisfies it.
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) (*core.EmbeddingResult, error)
}

// Searcher provides semantic search over stored insights.
type Searcher struct {
	insights      storage.InsightRepository
	embedder      QueryEmbedder
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the vector search cut-off. Default is 0.60.
func WithMinSimilarity(threshold float32) Option {
	return func(s *Searcher) error {
		s.minSimilarity = threshold
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(insights storage.InsightRepository, embedder QueryEmbedder, opts ...Option) (*Searcher, error) {
	if insights == nil {
		return nil, ErrInsightRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		insights:      insights,
		embedder:      embedder,
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default().With("component", "search"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindSimilar searches userID's insights for ones similar to query.
// An empty userID searches all insights.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilar(ctx context.Context, userID, query string, maxHits int) ([]*core.InsightMatch, error) {
	return s.FindSimilarWithMonitor(ctx, userID, query, maxHits, nil)
}

// FindSimilarWithMonitor is FindSimilar with a monitor that receives
// callbacks at each stage of the search.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, userID, query string, maxHits int, monitor SearchMonitor) ([]*core.InsightMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		return nil, ErrInvalidMaxHits
	}
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(userID, query)

	// 1. Embed the query
	embedded, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(embedded.Metadata.Source)

	// 2. Vector search, over-fetching for re-ranking
	matches, err := s.insights.FindSimilar(ctx, userID, embedded.Embedding, s.minSimilarity, maxHits*candidateFactor)
	if err != nil {
		s.logger.Error("error querying for similar insights", "err", err)
		return nil, err
	}

	ids := make([]core.ID, len(matches))
	for i, match := range matches {
		ids[i] = match.Record.Id
	}
	monitor.AfterSemanticSearch(ids)

	if len(matches) == 0 {
		monitor.Finish(nil)
		return []*core.InsightMatch{}, nil
	}

	// 3. Re-rank
	results := make([]*core.InsightMatch, 0, len(matches))
	for _, match := range matches {
		score := match.Score + confidenceWeight*float32(match.Record.ConfidenceScore)
		ranked := &core.InsightMatch{Record: match.Record, Score: score}
		if containsAllQueryWords(match.Record.Content, query) {
			ranked.Score += verbatimBoost
			monitor.VerbatimHit(ranked)
		} else {
			monitor.SemanticHit(ranked)
		}
		results = append(results, ranked)
	}

	// Sort by score descending
	slices.SortStableFunc(results, func(a, b *core.InsightMatch) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	s.logger.Debug("search complete", "userID", userID, "candidates", len(matches), "results", len(results))
	return results, nil
}
