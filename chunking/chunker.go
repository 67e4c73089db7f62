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

package chunking

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/poiesic/docembed/core"
)

// Metadata keys set on every chunk produced by ChunkDocument.
const (
	MetaDocumentID = "document_id"
	MetaFilename   = "filename"
)

// Result is the output of ChunkText.
type Result struct {
	Chunks      []core.TextChunk
	TotalTokens int
	ChunkCount  int
	Metadata    ResultMetadata
}

// ResultMetadata describes how a document was split.
type ResultMetadata struct {
	SentenceSplits int
	HardSplits     int
	AverageTokens  int
	Options        Options
}

// ChunkText splits content into chunks according to opts.
func ChunkText(content string, opts Options) (*Result, error) {
	return chunk(content, opts, nil, "")
}

// ChunkDocument splits a document's content and stamps each chunk with the
// document's metadata plus its document ID and filename.
func ChunkDocument(doc *core.DocumentInput, opts Options) (*Result, error) {
	if doc == nil {
		return nil, &core.ChunkingError{Err: core.ErrNilDocument}
	}
	base := doc.Metadata.With(MetaDocumentID, doc.DocumentID().String())
	if doc.Filename != "" {
		base[MetaFilename] = doc.Filename
	}
	return chunk(doc.Content, opts, base, doc.Filename)
}

func chunk(content string, opts Options, base core.Metadata, filename string) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, &core.ChunkingError{Filename: filename, ContentLength: len(content), Err: err}
	}
	if strings.TrimSpace(content) == "" {
		return nil, &core.ChunkingError{Filename: filename, ContentLength: len(content), Err: core.ErrEmptyContent}
	}

	runes := []rune(content)
	n := len(runes)
	maxChars := opts.maxChars()
	overlap := opts.overlapChars()

	result := &Result{
		TotalTokens: core.TokensForChars(n),
		Metadata:    ResultMetadata{Options: opts},
	}

	start, prevEnd := 0, 0
	for start < n {
		end := start + maxChars
		// A boundary must advance past the previous chunk's end.
		lo := max(start+opts.minChars(), prevEnd+1, 1)
		if end >= n {
			end = n
		} else if b := findBoundary(runes, lo, end, opts); b > 0 {
			end = b
			result.Metadata.SentenceSplits++
		} else {
			result.Metadata.HardSplits++
		}

		text := string(runes[start:end])
		result.Chunks = append(result.Chunks, core.TextChunk{
			ID:         uuid.NewString(),
			Index:      len(result.Chunks),
			Content:    text,
			TokenCount: core.TokensForChars(end - start),
			StartIndex: start,
			EndIndex:   end,
			Metadata:   base.Clone(),
		})

		if end == n {
			break
		}
		prevEnd = end
		start = end - min(overlap, end-start-1)
	}

	result.ChunkCount = len(result.Chunks)
	var sum int
	for _, c := range result.Chunks {
		sum += c.TokenCount
	}
	result.Metadata.AverageTokens = sum / result.ChunkCount
	return result, nil
}

// findBoundary returns the largest position p in [lo, hi] that ends a
// sentence, or -1. A sentence ends after '.', '!' or '?' followed by
// whitespace, or after a newline.
func findBoundary(runes []rune, lo, hi int, opts Options) int {
	if opts.DisableSentenceSplits {
		return -1
	}
	for p := hi; p >= lo; p-- {
		prev := runes[p-1]
		if prev == '\n' {
			return p
		}
		if (prev == '.' || prev == '!' || prev == '?') && p < len(runes) && unicode.IsSpace(runes[p]) {
			return p
		}
	}
	return -1
}

// Preview is a cheap estimate of how a document will be chunked.
type Preview struct {
	EstimatedChunks int
	EstimatedTokens int
}

// PreviewChunking estimates the chunk and token counts for content without
// building chunks. Sentence splits can only shorten chunks, so the estimate
// is a lower bound when sentence splitting is enabled.
func PreviewChunking(content string, opts Options) Preview {
	tokens := core.EstimateTokens(content)
	if tokens == 0 {
		return Preview{}
	}
	if opts.Validate() != nil {
		opts = DefaultOptions()
	}
	if tokens <= opts.MaxTokens {
		return Preview{EstimatedChunks: 1, EstimatedTokens: tokens}
	}
	step := opts.MaxTokens - opts.OverlapTokens
	chunks := 1 + (tokens-opts.MaxTokens+step-1)/step
	return Preview{
		EstimatedChunks: chunks,
		EstimatedTokens: tokens,
	}
}
