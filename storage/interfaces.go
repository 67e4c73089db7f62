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
	"context"

	"github.com/poiesic/docembed/core"
)

// InsightRepository stores extracted insights and searches them by vector.
// Implementations must be safe for concurrent use.
type InsightRepository interface {
	// InsertInsights stores records, assigning IDs and InsertedAt.
	// Returns the records with generated fields populated.
	InsertInsights(ctx context.Context, records ...*core.InsightRecord) ([]*core.InsightRecord, error)

	// GetInsightsByDocument returns a document's insights ordered by
	// confidence, highest first.
	GetInsightsByDocument(ctx context.Context, documentID string) ([]*core.InsightRecord, error)

	// DeleteInsightsByDocument removes a document's insights and returns how
	// many were removed.
	DeleteInsightsByDocument(ctx context.Context, documentID string) (int, error)

	// FindSimilar returns a user's insights whose cosine similarity to vector
	// is at least minSimilarity, highest first, at most limit.
	// An empty userID searches every user's insights.
	FindSimilar(ctx context.Context, userID string, vector []float32, minSimilarity float32, limit int) ([]*core.InsightMatch, error)

	// Close releases the repository's resources.
	Close() error
}

// CheckpointRepository persists partially processed documents so embedding
// can resume after an interruption.
type CheckpointRepository interface {
	// SaveCheckpoint stores cp under its DocumentID, replacing any previous one.
	SaveCheckpoint(ctx context.Context, cp *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint for documentID.
	// Returns nil, nil if none exists.
	LoadCheckpoint(ctx context.Context, documentID string) (*core.Checkpoint, error)

	// DeleteCheckpoint removes the checkpoint for documentID, if any.
	DeleteCheckpoint(ctx context.Context, documentID string) error
}
