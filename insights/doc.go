// Package insights extracts confidence-scored claims from document chunks.
//
// Consecutive chunks are grouped into segments and each segment is sent to
// a generative model that answers with a JSON array of
// {"insight", "confidence"} objects. Completions that are not valid JSON fall
// back to bullet and numbered-line extraction. Accepted insights are
// embedded and written to a storage.InsightRepository.
package insights
