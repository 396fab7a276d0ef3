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


// Package search answers queries over a loaded index.
//
// The Retriever is the immutable retrieval context shared by all queries.
// For each query it embeds the question once, then runs two paths concurrently:
//   - dense search over one embedding variant, re-scored by the isolated reranker
//   - graph beam search over relation triples seeded by the same query vector
//
// The two ranked lists are merged with Reciprocal Rank Fusion and returned
// as results carrying their source provenance. Without graph search the
// dense path's order is returned as is.
package search
