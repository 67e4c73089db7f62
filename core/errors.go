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

package core

import (
	"errors"
	"fmt"
)

// Error categories. Every typed error in this package unwraps to one of these.
var (
	// ErrValidation marks document validation failures. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrChunking marks chunking failures. Always a caller-input problem.
	ErrChunking = errors.New("chunking failed")

	// ErrStorage marks persistence failures. Retryable.
	ErrStorage = errors.New("storage failed")
)

// Document validation errors
var (
	// ErrNilDocument indicates no document was supplied.
	ErrNilDocument = errors.New("document is nil")

	// ErrEmptyContent indicates the content is empty or whitespace only.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrTooFewWords indicates the content is below the minimum word count.
	ErrTooFewWords = errors.New("content has too few words")

	// ErrDocumentTooLarge indicates the content exceeds the byte ceiling.
	ErrDocumentTooLarge = errors.New("document too large")

	// ErrTooManyTokens indicates the content exceeds the estimated token ceiling.
	ErrTooManyTokens = errors.New("document has too many tokens")

	// ErrInvalidFilename indicates the filename contains disallowed characters.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrFilenameTooLong indicates the filename exceeds the length limit.
	ErrFilenameTooLong = errors.New("filename too long")

	// ErrUnsupportedExtension indicates the filename extension is not allowed.
	ErrUnsupportedExtension = errors.New("unsupported file extension")

	// ErrMetadataNotSerializable indicates metadata cannot be encoded as JSON.
	ErrMetadataNotSerializable = errors.New("metadata is not serializable")

	// ErrMetadataTooLarge indicates serialized metadata exceeds MaxMetadataBytes.
	ErrMetadataTooLarge = errors.New("metadata too large")

	// ErrTooManyMetadataKeys indicates metadata exceeds MaxMetadataKeys.
	ErrTooManyMetadataKeys = errors.New("too many metadata keys")

	// ErrInvalidMetadataKey indicates a metadata key is empty, too long or malformed.
	ErrInvalidMetadataKey = errors.New("invalid metadata key")
)

// Chunking errors
var (
	// ErrInvalidChunkOptions indicates chunk size, overlap or minimum are inconsistent.
	ErrInvalidChunkOptions = errors.New("invalid chunk options")
)

// Insight errors
var (
	// ErrInvalidInsight indicates an insight failed validation.
	ErrInvalidInsight = errors.New("invalid insight")

	// ErrConfidenceOutOfRange indicates a confidence score outside [0, 1].
	ErrConfidenceOutOfRange = errors.New("confidence must be between 0 and 1")
)

// ValidationKind names the validation stage that rejected a document.
type ValidationKind string

const (
	ValidationStructure ValidationKind = "structure"
	ValidationContent   ValidationKind = "content"
	ValidationSize      ValidationKind = "size"
	ValidationFilename  ValidationKind = "filename"
	ValidationMetadata  ValidationKind = "metadata"
)

// ValidationError reports why a document was rejected.
type ValidationError struct {
	Kind     ValidationKind
	Filename string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("%s validation failed for %q: %v", e.Kind, e.Filename, e.Err)
	}
	return fmt.Sprintf("%s validation failed: %v", e.Kind, e.Err)
}

// Unwrap exposes both ErrValidation and the specific cause to errors.Is.
func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// NewValidationError wraps err as a ValidationError of the given kind.
func NewValidationError(kind ValidationKind, filename string, err error) *ValidationError {
	return &ValidationError{Kind: kind, Filename: filename, Err: err}
}

// ChunkingError reports a chunking failure along with the document it concerned.
type ChunkingError struct {
	Filename      string
	ContentLength int
	Err           error
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunking %q (%d chars) failed: %v", e.Filename, e.ContentLength, e.Err)
}

func (e *ChunkingError) Unwrap() []error {
	return []error{ErrChunking, e.Err}
}

// StorageError reports a persistence failure with enough context to diagnose it.
type StorageError struct {
	Op         string
	DocumentID string
	Rows       int
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s for document %q (%d rows) failed: %v", e.Op, e.DocumentID, e.Rows, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// Retryable reports whether the failed operation may be attempted again.
// Storage failures are treated as transient.
func (e *StorageError) Retryable() bool {
	return true
}
