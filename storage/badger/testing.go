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

import "github.com/poiesic/docembed/storage"

// NewMemoryRepositories creates in-memory insight and checkpoint repositories
// for testing. Caller must close the insight repository and the backend.
func NewMemoryRepositories() (storage.InsightRepository, storage.CheckpointRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}
	insights, checkpoints, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}
	return insights, checkpoints, backend, nil
}

// NewRepositories creates the insight and checkpoint repositories on backend.
func NewRepositories(backend *Backend) (storage.InsightRepository, storage.CheckpointRepository, error) {
	insights, err := NewInsightRepository(backend)
	if err != nil {
		return nil, nil, err
	}
	return insights, NewCheckpointRepository(backend), nil
}
