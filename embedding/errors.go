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

package embedding

import (
	"errors"
	"fmt"

	"github.com/poiesic/docembed/ai"
)

var (
	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmptyInput is returned for empty or whitespace-only text.
	ErrEmptyInput = errors.New("input text cannot be empty")

	// ErrInputTooLong is returned when text exceeds the model's token ceiling.
	ErrInputTooLong = errors.New("input text exceeds model token limit")

	// ErrDimensionMismatch is returned when a vector has the wrong size.
	ErrDimensionMismatch = errors.New("embedding has unexpected dimensions")

	// ErrResultNotFound means batch bookkeeping lost track of an input.
	// It indicates a bug, not a transient fault.
	ErrResultNotFound = errors.New("embedding result not found")

	// ErrInvalidRetryPolicy is returned when MaxAttempts is not positive.
	ErrInvalidRetryPolicy = errors.New("retry policy requires at least one attempt")
)

// Op names the operation an EmbeddingError came from.
type Op string

const (
	OpGenerate       Op = "generate"
	OpBatch          Op = "batch"
	OpSingleBatch    Op = "single-batch"
	OpResultNotFound Op = "result-not-found"
)

// EmbeddingError reports a failed embedding operation.
type EmbeddingError struct {
	Op         Op
	BatchIndex int // -1 unless Op is OpSingleBatch
	Inputs     int
	Err        error
}

func (e *EmbeddingError) Error() string {
	if e.Op == OpSingleBatch {
		return fmt.Sprintf("embedding %s %d (%d inputs) failed: %v", e.Op, e.BatchIndex, e.Inputs, e.Err)
	}
	return fmt.Sprintf("embedding %s (%d inputs) failed: %v", e.Op, e.Inputs, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failed operation may be attempted again.
// Input, dimension and bookkeeping failures never are; provider failures
// follow their ai.ErrorKind.
func (e *EmbeddingError) Retryable() bool {
	switch {
	case errors.Is(e.Err, ErrEmptyInput),
		errors.Is(e.Err, ErrInputTooLong),
		errors.Is(e.Err, ErrDimensionMismatch),
		errors.Is(e.Err, ErrResultNotFound):
		return false
	}
	return ai.IsRetryable(e.Err)
}

// Kind returns the provider error kind underlying e.
func (e *EmbeddingError) Kind() ai.ErrorKind {
	return ai.KindOf(e.Err)
}

func newError(op Op, inputs int, err error) *EmbeddingError {
	return &EmbeddingError{Op: op, BatchIndex: -1, Inputs: inputs, Err: err}
}
