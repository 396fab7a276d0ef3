// Package rerank re-scores dense candidates with a cross-encoder running in
// a separate, short-lived worker process.
//
// The Reranker writes one JSON Request to the worker's stdin and reads one
// JSON Response from its stdout. Serve is the worker side of that exchange.
// Any worker failure (non-zero exit, malformed reply, timeout) makes Rerank
// keep the dense order with a uniform placeholder score.
package rerank
