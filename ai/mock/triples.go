package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/policyrag/ai"
)

// MockTripleExtractor is a test double for ai.TripleExtractor.
type MockTripleExtractor struct {
	// ExtractTriplesFunc is called by ExtractTriples if set.
	// If nil, each line of the form "subject | predicate | object" becomes a triple.
	ExtractTriplesFunc func(ctx context.Context, text string) ([]ai.ExtractedTriple, error)

	mu        sync.Mutex
	callCount int
}

// NewMockTripleExtractor creates a mock triple extractor with default behavior.
func NewMockTripleExtractor() *MockTripleExtractor {
	return &MockTripleExtractor{}
}

// ExtractTriples returns the pipe-delimited facts found in text.
func (m *MockTripleExtractor) ExtractTriples(ctx context.Context, text string) ([]ai.ExtractedTriple, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ExtractTriplesFunc != nil {
		return m.ExtractTriplesFunc(ctx, text)
	}

	triples := []ai.ExtractedTriple{}
	for _, line := range strings.Split(text, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			continue
		}
		t := ai.ExtractedTriple{
			Subject:   strings.TrimSpace(parts[0]),
			Predicate: strings.TrimSpace(parts[1]),
			Object:    strings.TrimSpace(parts[2]),
		}
		if t.Complete() {
			triples = append(triples, t)
		}
	}
	return triples, nil
}

// CallCount returns the number of times ExtractTriples was called.
func (m *MockTripleExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockTripleExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractTriplesFunc = nil
}
