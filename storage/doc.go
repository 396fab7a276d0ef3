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


// Package storage provides the storage abstraction layer for policyrag.
//
// An index store holds everything a build produces and a server reads:
//
//   - ChunkRepository: the chunk-metadata table and the chunk id <-> external key mapping
//   - VectorRepository: normalized vectors, one space per embedding variant plus triples
//   - TripleRepository: extracted (subject, predicate, object) triples
//   - ManifestRepository: the description of the last completed build
//
// The store is written once by the offline builder and opened read-only for
// serving. Consistency between the pieces is checked by the index package
// when a snapshot is loaded.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/var/lib/policyrag", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	repos, err := badger.NewRepositories(backend)
//
// Use in tests with in-memory storage:
//
//	repos, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
