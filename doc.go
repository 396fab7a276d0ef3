// Package policyrag retrieves grounded passages from policy documents.
//
// A Store holds one index build: chunk metadata with provenance, one
// normalized vector collection per embedding variant, and the relation
// triples extracted from the chunks. Build it once with Store.Build, then
// open a search.Retriever over it to answer queries. Dense retrieval is
// re-scored by a cross-encoder running in a separate worker process, and
// graph beam search over the triples can be fused into the ranking.
package policyrag
