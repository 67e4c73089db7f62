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
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
)

// InsightRepository implements storage.InsightRepository for BadgerDB.
type InsightRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.InsightRepository = (*InsightRepository)(nil)

// NewInsightRepository creates a new InsightRepository.
func NewInsightRepository(backend *Backend) (*InsightRepository, error) {
	idSeq, err := backend.GetSequence(insightIDSeq)
	if err != nil {
		return nil, err
	}

	return &InsightRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *InsightRepository) Close() error {
	return r.idSeq.Release()
}

// InsertInsights stores records with IDs from the sequence.
func (r *InsightRepository) InsertInsights(ctx context.Context, records ...*core.InsightRecord) ([]*core.InsightRecord, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			record.Id = core.ID(nextID)
			if record.InsertedAt.IsZero() {
				record.InsertedAt = time.Now().UTC()
			}

			if err := tx.Set(makeInsightKey(record.Id), storage.MarshalInsightRecord(record)); err != nil {
				return err
			}
			if err := tx.Set(makeInsightDocKey(record.DocumentID, record.Id), storage.MarshalID(record.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetInsightsByDocument returns a document's insights, highest confidence first.
func (r *InsightRepository) GetInsightsByDocument(ctx context.Context, documentID string) ([]*core.InsightRecord, error) {
	var records []*core.InsightRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := r.documentIDs(tx, documentID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			record, err := readInsight(tx, id)
			if err != nil {
				return err
			}
			if record != nil {
				records = append(records, record)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(records, func(a, b *core.InsightRecord) int {
		return cmp.Compare(b.ConfidenceScore, a.ConfidenceScore)
	})
	return records, nil
}

// DeleteInsightsByDocument removes a document's insights and index entries.
func (r *InsightRepository) DeleteInsightsByDocument(ctx context.Context, documentID string) (int, error) {
	var removed int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := r.documentIDs(tx, documentID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.Delete(makeInsightKey(id)); err != nil {
				return err
			}
			if err := tx.Delete(makeInsightDocKey(documentID, id)); err != nil {
				return err
			}
		}
		removed = len(ids)
		return tx.Commit()
	}, true)
	return removed, err
}

func (r *InsightRepository) documentIDs(tx *badger.Txn, documentID string) ([]core.ID, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = makePartialInsightDocKey(documentID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var id core.ID
		err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func readInsight(tx *badger.Txn, id core.ID) (*core.InsightRecord, error) {
	item, err := tx.Get(makeInsightKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record *core.InsightRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalInsightRecord(val)
		return err
	})
	return record, err
}

// FindSimilar scans every insight and returns those at or above
// minSimilarity, highest first.
func (r *InsightRepository) FindSimilar(ctx context.Context, userID string, vector []float32, minSimilarity float32, limit int) ([]*core.InsightMatch, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.InsightMatch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(insightRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.InsightRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalInsightRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip other users' insights and records without embeddings
			if userID != "" && record.UserID != userID {
				continue
			}
			if len(record.Embedding) == 0 {
				continue
			}

			similarity := core.CosineSimilarity(vector, record.Embedding)
			if similarity >= minSimilarity {
				results = append(results, &core.InsightMatch{
					Record: record,
					Score:  similarity,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *core.InsightMatch) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
