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


package search

import "errors"

var (
	// ErrSnapshotRequired is returned when no index snapshot is provided.
	ErrSnapshotRequired = errors.New("index snapshot required")

	// ErrEmbedderRequired is returned when no query embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmbeddingFailed wraps failures of the query embedding collaborator.
	// The caller may retry the query.
	ErrEmbeddingFailed = errors.New("query embedding failed")
)
