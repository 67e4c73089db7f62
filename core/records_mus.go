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
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the records persisted by the storage layer.
var (
	IDMUS            = idMUS{}
	InsightRecordMUS = insightRecordMUS{}
	CheckpointMUS    = checkpointMUS{}
	TextChunkMUS     = textChunkMUS{}
	EmbeddingMUS     = embeddingResultMUS{}
)

var (
	metadataMUS   = newMetadataMUS()
	float32sMUS   = newNilableSliceMUS[float32](raw.Float32)
	stringsMUS    = newNilableSliceMUS[string](ord.String)
	chunksMUS     = newNilableSliceMUS[TextChunk](TextChunkMUS)
	embeddingsMUS = newNilableSliceMUS[EmbeddingResult](EmbeddingMUS)
	timeMUS       = timeNanoMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

// timeNanoMUS encodes a time as a presence flag followed by Unix nanoseconds.
// Decoded times are in UTC; the zero time round-trips as zero.
type timeNanoMUS struct{}

func (timeNanoMUS) Marshal(v time.Time, bs []byte) (n int) {
	if v.IsZero() {
		return ord.Bool.Marshal(false, bs)
	}
	n = ord.Bool.Marshal(true, bs)
	return n + varint.Int64.Marshal(v.UnixNano(), bs[n:])
}

func (timeNanoMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	set, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !set {
		return
	}
	nanos, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	return time.Unix(0, nanos).UTC(), n, nil
}

func (timeNanoMUS) Size(v time.Time) (size int) {
	size = ord.Bool.Size(!v.IsZero())
	if v.IsZero() {
		return
	}
	return size + varint.Int64.Size(v.UnixNano())
}

func (s timeNanoMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// nilableMUS prefixes a value with a presence flag so nil slices and maps
// decode as nil rather than empty.
type nilableMUS[T any] struct {
	ser   mus.Serializer[T]
	isNil func(T) bool
}

func newNilableSliceMUS[E any](elem mus.Serializer[E]) nilableMUS[[]E] {
	return nilableMUS[[]E]{
		ser:   ord.NewSliceSer[E](elem),
		isNil: func(v []E) bool { return v == nil },
	}
}

func (s nilableMUS[T]) Marshal(v T, bs []byte) (n int) {
	if s.isNil(v) {
		return ord.Bool.Marshal(false, bs)
	}
	n = ord.Bool.Marshal(true, bs)
	return n + s.ser.Marshal(v, bs[n:])
}

func (s nilableMUS[T]) Unmarshal(bs []byte) (v T, n int, err error) {
	set, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !set {
		return
	}
	v, n1, err := s.ser.Unmarshal(bs[n:])
	return v, n + n1, err
}

func (s nilableMUS[T]) Size(v T) (size int) {
	size = ord.Bool.Size(!s.isNil(v))
	if s.isNil(v) {
		return
	}
	return size + s.ser.Size(v)
}

func (s nilableMUS[T]) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

func newMetadataMUS() nilableMUS[Metadata] {
	return nilableMUS[Metadata]{
		ser:   metadataMapMUS{ord.NewMapSer[string, string](ord.String, ord.String)},
		isNil: func(m Metadata) bool { return m == nil },
	}
}

// metadataMapMUS adapts a map[string]string serializer to Metadata.
type metadataMapMUS struct {
	ser mus.Serializer[map[string]string]
}

func (s metadataMapMUS) Marshal(v Metadata, bs []byte) (n int) {
	return s.ser.Marshal(v, bs)
}

func (s metadataMapMUS) Unmarshal(bs []byte) (v Metadata, n int, err error) {
	m, n, err := s.ser.Unmarshal(bs)
	return Metadata(m), n, err
}

func (s metadataMapMUS) Size(v Metadata) (size int) {
	return s.ser.Size(v)
}

func (s metadataMapMUS) Skip(bs []byte) (n int, err error) {
	return s.ser.Skip(bs)
}

type insightRecordMUS struct{}

func (insightRecordMUS) Marshal(v InsightRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.DocumentID, bs[n:])
	n += ord.String.Marshal(v.UserID, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += float32sMUS.Marshal(v.Embedding, bs[n:])
	n += stringsMUS.Marshal(v.SourceChunkIDs, bs[n:])
	n += raw.Float64.Marshal(v.ConfidenceScore, bs[n:])
	return n + timeMUS.Marshal(v.InsertedAt, bs[n:])
}

func (insightRecordMUS) Unmarshal(bs []byte) (v InsightRecord, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.DocumentID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UserID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Embedding, n1, err = float32sMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceChunkIDs, n1, err = stringsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ConfidenceScore, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (insightRecordMUS) Size(v InsightRecord) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.DocumentID)
	size += ord.String.Size(v.UserID)
	size += ord.String.Size(v.Content)
	size += float32sMUS.Size(v.Embedding)
	size += stringsMUS.Size(v.SourceChunkIDs)
	size += raw.Float64.Size(v.ConfidenceScore)
	return size + timeMUS.Size(v.InsertedAt)
}

func (s insightRecordMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type textChunkMUS struct{}

func (textChunkMUS) Marshal(v TextChunk, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += varint.Int.Marshal(v.Index, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += varint.Int.Marshal(v.TokenCount, bs[n:])
	n += varint.Int.Marshal(v.StartIndex, bs[n:])
	n += varint.Int.Marshal(v.EndIndex, bs[n:])
	return n + metadataMUS.Marshal(v.Metadata, bs[n:])
}

func (textChunkMUS) Unmarshal(bs []byte) (v TextChunk, n int, err error) {
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Index, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.TokenCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.StartIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EndIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, n1, err = metadataMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (textChunkMUS) Size(v TextChunk) (size int) {
	size = ord.String.Size(v.ID)
	size += varint.Int.Size(v.Index)
	size += ord.String.Size(v.Content)
	size += varint.Int.Size(v.TokenCount)
	size += varint.Int.Size(v.StartIndex)
	size += varint.Int.Size(v.EndIndex)
	return size + metadataMUS.Size(v.Metadata)
}

func (s textChunkMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type embeddingResultMUS struct{}

func (embeddingResultMUS) Marshal(v EmbeddingResult, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += float32sMUS.Marshal(v.Embedding, bs[n:])
	n += varint.Int.Marshal(v.TokenCount, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.String.Marshal(string(v.Metadata.Source), bs[n:])
	n += ord.String.Marshal(v.Metadata.Model, bs[n:])
	n += varint.Int.Marshal(v.Metadata.Dimensions, bs[n:])
	return n + metadataMUS.Marshal(v.Metadata.Extra, bs[n:])
}

func (embeddingResultMUS) Unmarshal(bs []byte) (v EmbeddingResult, n int, err error) {
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1     int
		source string
	)
	v.Embedding, n1, err = float32sMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.TokenCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata.Source = ResultSource(source)
	v.Metadata.Model, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata.Dimensions, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata.Extra, n1, err = metadataMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (embeddingResultMUS) Size(v EmbeddingResult) (size int) {
	size = ord.String.Size(v.ID)
	size += float32sMUS.Size(v.Embedding)
	size += varint.Int.Size(v.TokenCount)
	size += ord.String.Size(v.Text)
	size += ord.String.Size(string(v.Metadata.Source))
	size += ord.String.Size(v.Metadata.Model)
	size += varint.Int.Size(v.Metadata.Dimensions)
	return size + metadataMUS.Size(v.Metadata.Extra)
}

func (s embeddingResultMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type checkpointMUS struct{}

func (checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.DocumentID, bs)
	n += ord.String.Marshal(v.Filename, bs[n:])
	n += chunksMUS.Marshal(v.Chunks, bs[n:])
	n += embeddingsMUS.Marshal(v.Embeddings, bs[n:])
	return n + timeMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	v.DocumentID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Filename, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Chunks, n1, err = chunksMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Embeddings, n1, err = embeddingsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (checkpointMUS) Size(v Checkpoint) (size int) {
	size = ord.String.Size(v.DocumentID)
	size += ord.String.Size(v.Filename)
	size += chunksMUS.Size(v.Chunks)
	size += embeddingsMUS.Size(v.Embeddings)
	return size + timeMUS.Size(v.UpdatedAt)
}

func (s checkpointMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
