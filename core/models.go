package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as 16 hex digits.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// DocumentInput is a raw document submitted for processing.
// It is owned by the caller and never retained after processing returns.
type DocumentInput struct {
	Content  string
	Filename string   // Optional
	Metadata Metadata // Optional, bounded by MaxMetadataBytes and MaxMetadataKeys
}

// DocumentID derives a stable identifier for a document from its filename and content.
// Used to key checkpoints so an interrupted run can be found again.
func (d *DocumentInput) DocumentID() ID {
	return IDFromContent(d.Filename + "\x00" + d.Content)
}

// TextChunk is a token-bounded slice of a document.
// StartIndex and EndIndex are character (rune) offsets into the source content.
type TextChunk struct {
	ID         string
	Index      int
	Content    string
	TokenCount int
	StartIndex int
	EndIndex   int
	Metadata   Metadata
}

// EmbeddingInput is a single text submitted for embedding.
type EmbeddingInput struct {
	ID       string
	Text     string
	Metadata Metadata
}

// ResultSource records where an embedding came from.
type ResultSource string

const (
	// SourceCache marks an embedding served from the embedding cache.
	SourceCache ResultSource = "cache"
	// SourceProvider marks an embedding freshly computed by the provider.
	SourceProvider ResultSource = "provider"
)

// ResultMetadata describes how an EmbeddingResult was produced.
type ResultMetadata struct {
	Source     ResultSource
	Model      string
	Dimensions int
	Extra      Metadata // Copied from the originating EmbeddingInput
}

// EmbeddingResult is an embedding vector paired with its source text.
type EmbeddingResult struct {
	ID         string
	Embedding  []float32
	TokenCount int
	Text       string
	Metadata   ResultMetadata
}

// ExtractedInsight is a confidence-scored claim extracted from source chunks.
type ExtractedInsight struct {
	Content         string
	ConfidenceScore float64 // In [0, 1]
	SourceChunkIDs  []string
}

// InsightRecord is the row persisted for an accepted insight.
type InsightRecord struct {
	Id              ID
	DocumentID      string
	UserID          string
	Content         string
	Embedding       []float32
	SourceChunkIDs  []string
	ConfidenceScore float64
	InsertedAt      time.Time
}

// InsightMatch is an insight returned from vector similarity search.
type InsightMatch struct {
	Record *InsightRecord
	Score  float32
}

// CostBreakdown is the estimated provider spend for a processed document.
type CostBreakdown struct {
	EmbeddingTokens int
	EmbeddingCost   float64 // USD, estimated
	Model           string
}

// ProcessingStats summarizes a document's trip through the pipeline.
type ProcessingStats struct {
	TotalTokens    int
	ChunkCount     int
	EmbeddingCount int
	ProcessingTime time.Duration
	Costs          *CostBreakdown // nil when cost tracking is disabled
}

// ProcessedDocument is the result of running a document through the pipeline.
// Embeddings[i] corresponds to Chunks[i].
type ProcessedDocument struct {
	DocumentID string
	Filename   string
	Chunks     []TextChunk
	Embeddings []EmbeddingResult
	Processing ProcessingStats
}

// Checkpoint captures a partially processed document so embedding can resume
// where it stopped.
type Checkpoint struct {
	DocumentID string
	Filename   string
	Chunks     []TextChunk
	Embeddings []EmbeddingResult
	UpdatedAt  time.Time
}

// Partial converts a checkpoint back into the partial result shape the pipeline resumes from.
func (c *Checkpoint) Partial() *ProcessedDocument {
	return &ProcessedDocument{
		DocumentID: c.DocumentID,
		Filename:   c.Filename,
		Chunks:     c.Chunks,
		Embeddings: c.Embeddings,
	}
}
