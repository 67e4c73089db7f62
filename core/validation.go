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
	"fmt"
	"strings"
)

// ValidateMetadata checks a metadata map against the package bounds.
//
// Validation rules:
//   - At most MaxMetadataKeys entries
//   - Keys are 1..MaxMetadataKeyLength characters of [A-Za-z0-9_.-]
//   - The JSON encoding is at most MaxMetadataBytes
func ValidateMetadata(m Metadata) error {
	if len(m) == 0 {
		return nil
	}

	if len(m) > MaxMetadataKeys {
		return fmt.Errorf("%w: %d keys exceeds limit of %d", ErrTooManyMetadataKeys, len(m), MaxMetadataKeys)
	}

	for key := range m {
		if err := ValidateMetadataKey(key); err != nil {
			return err
		}
	}

	size, err := m.SerializedSize()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMetadataNotSerializable, err)
	}
	if size > MaxMetadataBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrMetadataTooLarge, size, MaxMetadataBytes)
	}

	return nil
}

// ValidateMetadataKey checks a single metadata key.
func ValidateMetadataKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidMetadataKey)
	}
	if len(key) > MaxMetadataKeyLength {
		return fmt.Errorf("%w: key %.20q... exceeds %d characters", ErrInvalidMetadataKey, key, MaxMetadataKeyLength)
	}
	if strings.IndexFunc(key, func(r rune) bool { return !isKeyRune(r) }) >= 0 {
		return fmt.Errorf("%w: key %q contains disallowed characters", ErrInvalidMetadataKey, key)
	}
	return nil
}

func isKeyRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '_' || r == '-' || r == '.'
}

// ValidateInsight validates an extracted insight.
//
// Validation rules:
//   - Content must not be empty
//   - ConfidenceScore must be within [0, 1]
func ValidateInsight(insight *ExtractedInsight) error {
	if insight == nil {
		return fmt.Errorf("%w: insight is nil", ErrInvalidInsight)
	}

	if strings.TrimSpace(insight.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInsight, ErrEmptyContent)
	}

	if insight.ConfidenceScore < 0 || insight.ConfidenceScore > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidInsight, ErrConfidenceOutOfRange)
	}

	return nil
}
