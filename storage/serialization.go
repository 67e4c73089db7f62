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

package storage

import (
	"fmt"

	"github.com/poiesic/docembed/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, n, err := core.IDMUS.Unmarshal(data)
	if err := checkDecoded(n, len(data), err); err != nil {
		return 0, err
	}
	return id, nil
}

// MarshalInsightRecord serializes an InsightRecord to bytes.
func MarshalInsightRecord(record *core.InsightRecord) []byte {
	buf := make([]byte, core.InsightRecordMUS.Size(*record))
	core.InsightRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalInsightRecord deserializes an InsightRecord from bytes.
func UnmarshalInsightRecord(data []byte) (*core.InsightRecord, error) {
	record, n, err := core.InsightRecordMUS.Unmarshal(data)
	if err := checkDecoded(n, len(data), err); err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, core.CheckpointMUS.Size(*checkpoint))
	core.CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, n, err := core.CheckpointMUS.Unmarshal(data)
	if err := checkDecoded(n, len(data), err); err != nil {
		return nil, err
	}
	return &checkpoint, nil
}

// checkDecoded rejects decode errors and values that leave trailing bytes.
func checkDecoded(n, total int, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != total {
		return fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, total-n)
	}
	return nil
}
