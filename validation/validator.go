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

package validation

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/poiesic/docembed/core"
)

var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9 _.()\-]+$`)

// Limits bounds what a document may contain.
type Limits struct {
	MinWords          int
	MaxBytes          int
	MaxTokens         int
	MaxFilenameLength int
	// AllowedExtensions are lowercase and include the leading dot.
	AllowedExtensions []string
}

// DefaultLimits returns the default document limits.
func DefaultLimits() Limits {
	return Limits{
		MinWords:          3,
		MaxBytes:          10 * 1024 * 1024,
		MaxTokens:         1_000_000,
		MaxFilenameLength: 255,
		AllowedExtensions: []string{
			".txt", ".md", ".markdown", ".csv", ".json", ".html", ".htm",
			".xml", ".rtf", ".log", ".yaml", ".yml",
		},
	}
}

// Validator checks documents against a set of limits.
type Validator struct {
	limits     Limits
	extensions map[string]bool
	logger     *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLimits replaces the default limits.
func WithLimits(limits Limits) Option {
	return func(v *Validator) {
		v.limits = limits
	}
}

// WithLogger sets the logger used for quality warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		limits: DefaultLimits(),
		logger: slog.Default().With("component", "document-validator"),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.extensions = make(map[string]bool, len(v.limits.AllowedExtensions))
	for _, ext := range v.limits.AllowedExtensions {
		v.extensions[strings.ToLower(ext)] = true
	}
	return v
}

// Validate returns nil if doc may be processed, otherwise the first
// *core.ValidationError found. Quality warnings are logged.
func (v *Validator) Validate(doc *core.DocumentInput) error {
	if err := v.validate(doc); err != nil {
		return err
	}
	for _, w := range CheckQuality(doc.Content) {
		v.logger.Warn("document quality warning", "filename", doc.Filename, "warning", w)
	}
	return nil
}

func (v *Validator) validate(doc *core.DocumentInput) error {
	if doc == nil {
		return core.NewValidationError(core.ValidationStructure, "", core.ErrNilDocument)
	}
	name := doc.Filename

	if strings.TrimSpace(doc.Content) == "" {
		return core.NewValidationError(core.ValidationContent, name, core.ErrEmptyContent)
	}
	if words := len(strings.Fields(doc.Content)); words < v.limits.MinWords {
		return core.NewValidationError(core.ValidationContent, name,
			fmt.Errorf("%w: %d words, need at least %d", core.ErrTooFewWords, words, v.limits.MinWords))
	}

	if size := len(doc.Content); size > v.limits.MaxBytes {
		return core.NewValidationError(core.ValidationSize, name,
			fmt.Errorf("%w: %d bytes exceeds limit of %d", core.ErrDocumentTooLarge, size, v.limits.MaxBytes))
	}
	if tokens := core.EstimateTokens(doc.Content); tokens > v.limits.MaxTokens {
		return core.NewValidationError(core.ValidationSize, name,
			fmt.Errorf("%w: ~%d tokens exceeds limit of %d", core.ErrTooManyTokens, tokens, v.limits.MaxTokens))
	}

	if name != "" {
		if err := v.validateFilename(name); err != nil {
			return core.NewValidationError(core.ValidationFilename, name, err)
		}
	}

	if err := core.ValidateMetadata(doc.Metadata); err != nil {
		return core.NewValidationError(core.ValidationMetadata, name, err)
	}
	return nil
}

func (v *Validator) validateFilename(name string) error {
	if len(name) > v.limits.MaxFilenameLength {
		return fmt.Errorf("%w: %d characters exceeds limit of %d", core.ErrFilenameTooLong, len(name), v.limits.MaxFilenameLength)
	}
	if !filenamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", core.ErrInvalidFilename, name)
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" && !v.extensions[ext] {
		return fmt.Errorf("%w: %q", core.ErrUnsupportedExtension, ext)
	}
	return nil
}

// IsValid reports whether doc passes validation. Nothing is logged.
func (v *Validator) IsValid(doc *core.DocumentInput) bool {
	return v.validate(doc) == nil
}

// ValidationErrors returns the validation failures for doc, or nil.
func (v *Validator) ValidationErrors(doc *core.DocumentInput) []error {
	if err := v.validate(doc); err != nil {
		return []error{err}
	}
	return nil
}

// Rejected is a document that failed batch validation.
type Rejected struct {
	Index    int
	Document *core.DocumentInput
	Err      error
}

// BatchResult partitions a batch into valid and invalid documents.
type BatchResult struct {
	Valid   []*core.DocumentInput
	Invalid []Rejected
}

// ValidateBatch validates each document independently. A failing document
// never stops the rest of the batch.
func (v *Validator) ValidateBatch(docs []*core.DocumentInput) BatchResult {
	var result BatchResult
	for i, doc := range docs {
		if err := v.Validate(doc); err != nil {
			result.Invalid = append(result.Invalid, Rejected{Index: i, Document: doc, Err: err})
			continue
		}
		result.Valid = append(result.Valid, doc)
	}
	if len(result.Invalid) > 0 {
		v.logger.Info("batch validation rejected documents",
			"total", len(docs), "invalid", len(result.Invalid))
	}
	return result
}
