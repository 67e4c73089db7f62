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

// Package search finds stored insights relevant to a free-text query.
//
// The Searcher embeds the query (cache-first through the embedding
// service), runs a vector similarity search in the insight store and then
// re-ranks the candidates:
//   - Semantic similarity from the vector search
//   - Verbatim keyword matching with stop-word filtering
//   - A small weight for the insight's extraction confidence
//
// A SearchMonitor can observe each stage.
package search
