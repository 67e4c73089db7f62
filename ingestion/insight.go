package ingestion

import (
	"context"
	"log/slog"

	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/insights"
)

// InsightExtractor extracts and stores insights for a document's chunks.
// *insights.Service satisfies it.
type InsightExtractor interface {
	ExtractInsights(ctx context.Context, documentID, userID string, chunks []core.TextChunk, opts insights.Options) (*insights.Result, error)
}

// insightProcessor runs insight extraction for finished documents.
type insightProcessor struct {
	extractor InsightExtractor
	opts      insights.Options
	logger    *slog.Logger
}

var _ processor = (*insightProcessor)(nil)

func newInsightProcessor(extractor InsightExtractor, opts insights.Options, logger *slog.Logger) *insightProcessor {
	return &insightProcessor{
		extractor: extractor,
		opts:      opts,
		logger:    logger,
	}
}

// process extracts insights from the document's chunks.
func (ip *insightProcessor) process(ctx context.Context, doc *core.ProcessedDocument, userID string) error {
	ip.logger.Info("extracting insights", "documentID", doc.DocumentID, "chunks", len(doc.Chunks))

	result, err := ip.extractor.ExtractInsights(ctx, doc.DocumentID, userID, doc.Chunks, ip.opts)
	if err != nil {
		ip.logger.Error("error extracting insights", "documentID", doc.DocumentID, "err", err)
		return err
	}

	ip.logger.Debug("stored insights",
		"documentID", doc.DocumentID,
		"insights", len(result.Insights),
		"chunksProcessed", result.ChunksProcessed)
	return nil
}
