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
	"encoding/json"
	"maps"
)

const (
	// MaxMetadataBytes is the ceiling on a metadata map's serialized JSON size.
	MaxMetadataBytes = 10 * 1024

	// MaxMetadataKeys is the maximum number of entries in a metadata map.
	MaxMetadataKeys = 50

	// MaxMetadataKeyLength is the maximum length of a single metadata key.
	MaxMetadataKeyLength = 100
)

// Metadata is a flat, bounded key-value map attached to documents, chunks and inputs.
// Nested values are not supported.
type Metadata map[string]string

// Clone returns a copy of m. A nil map clones to nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// With returns a copy of m with key set to value.
func (m Metadata) With(key, value string) Metadata {
	out := make(Metadata, len(m)+1)
	maps.Copy(out, m)
	out[key] = value
	return out
}

// SerializedSize returns the size in bytes of m encoded as JSON.
func (m Metadata) SerializedSize() (int, error) {
	if len(m) == 0 {
		return 0, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
