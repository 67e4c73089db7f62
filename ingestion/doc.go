// Package ingestion provides pipeline orchestration for processing documents.
//
// The Pipeline type manages the document workflow:
//   - Validating input documents
//   - Splitting content into overlapping, token-bounded chunks
//   - Embedding chunks in checkpointed groups through the batch processor
//   - Estimating provider cost
//   - Optionally extracting insights asynchronously once a document is done
//
// Progress for every document is reported to a progress.Tracker. Errors
// during async insight extraction are logged but do not fail processing.
package ingestion
