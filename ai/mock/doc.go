// Package mock provides test double implementations of AI service interfaces.
//
// The mocks let pipeline and retrieval tests run without external services
// and with deterministic behavior. Each mock accepts an optional XxxFunc field
// to override its default and counts its calls.
//
// # Default Behavior
//
//   - MockEmbedder: deterministic vectors derived from a hash of the text
//   - MockTripleExtractor: one triple per "subject | predicate | object" line
//   - MockSummarizer: the first sentence of the text
//   - MockCrossEncoder: one logit per text, the number of query words it contains
//   - MockProvider: aggregates the build-time mocks
package mock
