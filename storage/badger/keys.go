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

package badger

import (
	"encoding/binary"

	"github.com/poiesic/docembed/core"
)

const (
	insightRecordPrefix = "insrec:"
	insightDocPrefix    = "insdoc:"
	insightIDSeq        = "insrecseq"
	checkpointPrefix    = "chkpt:"
)

// makeInsightKey generates a key for an insight record by ID.
// Format: prefix + 8-byte big-endian ID
func makeInsightKey(id core.ID) []byte {
	buf := make([]byte, len(insightRecordPrefix)+8)
	offset := copy(buf, insightRecordPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeInsightDocKey generates a composite key for the document index.
// Format: prefix:documentID:0x00 + 8-byte big-endian ID
func makeInsightDocKey(documentID string, id core.ID) []byte {
	prefix := makePartialInsightDocKey(documentID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialInsightDocKey generates the prefix for all of a document's
// index entries. The NUL separator keeps one document ID from prefixing
// another.
func makePartialInsightDocKey(documentID string) []byte {
	buf := make([]byte, 0, len(insightDocPrefix)+len(documentID)+1)
	buf = append(buf, insightDocPrefix...)
	buf = append(buf, documentID...)
	return append(buf, 0)
}

// makeCheckpointKey generates a key for a document's checkpoint.
func makeCheckpointKey(documentID string) []byte {
	return []byte(checkpointPrefix + documentID)
}
