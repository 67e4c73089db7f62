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

package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse is returned when a provider answers without any content.
	ErrEmptyResponse = errors.New("provider returned an empty response")

	// ErrCountMismatch is returned when a provider returns a different number of
	// embeddings than texts submitted.
	ErrCountMismatch = errors.New("provider returned wrong number of embeddings")

	// ErrUnknownProvider is returned when the configured provider name is not recognized.
	ErrUnknownProvider = errors.New("unknown AI provider")
)

// ErrorKind classifies a provider failure. Adapters assign the kind at the
// boundary so callers never need to inspect error text.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTimeout
	KindNetwork
	KindRateLimited
	KindUnavailable
	KindInvalidInput
	KindUnauthorized
	KindForbidden
	KindQuotaExceeded
	KindCanceled
)

var kindNames = map[ErrorKind]string{
	KindUnknown:       "unknown",
	KindTimeout:       "timeout",
	KindNetwork:       "network",
	KindRateLimited:   "rate_limited",
	KindUnavailable:   "unavailable",
	KindInvalidInput:  "invalid_input",
	KindUnauthorized:  "unauthorized",
	KindForbidden:     "forbidden",
	KindQuotaExceeded: "quota_exceeded",
	KindCanceled:      "canceled",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Retryable reports whether a failure of this kind is transient.
// Unknown failures are retried; they are most often transient server faults.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTimeout, KindNetwork, KindRateLimited, KindUnavailable, KindUnknown:
		return true
	default:
		return false
	}
}

// ProviderError is a classified failure from an embedding or generative provider.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Status   int // HTTP status when known, otherwise 0
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s provider error (%s, status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s provider error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the operation that produced e may be attempted again.
func (e *ProviderError) Retryable() bool {
	return e.Kind.Retryable()
}

// NewProviderError builds a ProviderError.
func NewProviderError(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Err: err}
}

// KindOf extracts the ErrorKind of err. Context cancellation and deadline errors
// are recognized even when no adapter classified them.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	return KindUnknown
}

// IsRetryable reports whether err represents a transient provider failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return KindOf(err).Retryable()
}
