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

// Package storage defines the persistence contracts for docembed.
//
// Two repositories cover everything the pipeline writes:
//
//   - InsightRepository: extracted insights with their embeddings, read back
//     by document or by vector similarity
//   - CheckpointRepository: partially embedded documents, keyed by document ID
//
// Implementations live in subpackages: badger (embedded, local) and postgres
// (pgvector). Constructors return the interfaces:
//
//	insights, checkpoints, backend, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	defer insights.Close()
//
// # Thread Safety
//
// All repository implementations must be safe for concurrent use.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
