// Package chunking splits document text into token-bounded, overlapping chunks.
//
// Token counts are estimated at four characters per token (see
// core.EstimateTokens). The chunker prefers to end a chunk at a sentence
// boundary between the minimum and maximum size and falls back to a hard cut
// at the maximum when the window holds no boundary. Each chunk after the
// first starts OverlapTokens before the previous chunk ended, so adjacent
// chunks share context.
//
// Chunk content is taken verbatim from the source; StartIndex and EndIndex are
// rune offsets, so the source can be rebuilt by concatenating chunks and
// dropping each chunk's overlapping prefix.
package chunking
