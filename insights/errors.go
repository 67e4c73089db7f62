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

package insights

import "errors"

var (
	// ErrGeneratorRequired is returned when no text generator is supplied.
	ErrGeneratorRequired = errors.New("text generator is required")

	// ErrEmbeddingsRequired is returned when no embedding service is supplied.
	ErrEmbeddingsRequired = errors.New("embedding service is required")

	// ErrRepositoryRequired is returned when no insight repository is supplied.
	ErrRepositoryRequired = errors.New("insight repository is required")

	// ErrInvalidOptions is returned when extraction options are inconsistent.
	ErrInvalidOptions = errors.New("invalid extraction options")

	// ErrUnparseable is returned when neither parser stage recovers insights.
	ErrUnparseable = errors.New("completion could not be parsed")

	// ErrSchemaViolation is returned when JSON parses but does not match the
	// expected insight shape.
	ErrSchemaViolation = errors.New("completion does not match insight schema")

	// ErrNoListLines is returned by the fallback stage when no bullet or
	// numbered line is found.
	ErrNoListLines = errors.New("no list lines found")
)
