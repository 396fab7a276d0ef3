// Package indexing builds the read-only retrieval index offline.
//
// A Builder takes parsed documents through these stages:
//   - chunking every block with the structural chunker
//   - one-line summaries and relation triples from the LLM collaborators
//   - keyword augmentation from corpus TF-IDF
//   - embedding every selected variant, plus the triples, with retry
//   - persisting chunks, key mapping, vectors and triples, and the manifest last
//
// Extraction failures degrade to "no summary" and "no triples". Embedding
// failures abort the build, since the index must cover every chunk.
package indexing
