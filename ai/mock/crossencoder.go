package mock

import (
	"context"
	"strings"
	"sync"
)

// MockCrossEncoder is a test double for ai.CrossEncoder.
type MockCrossEncoder struct {
	// LogitsFunc is called by Logits if set.
	// If nil, each text scores the number of query words it contains.
	LogitsFunc func(ctx context.Context, query string, texts []string) ([][]float32, error)

	mu      sync.Mutex
	batches [][]string
}

// NewMockCrossEncoder creates a mock cross-encoder with default behavior.
func NewMockCrossEncoder() *MockCrossEncoder {
	return &MockCrossEncoder{}
}

// Logits records the batch and scores it.
func (m *MockCrossEncoder) Logits(ctx context.Context, query string, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	m.mu.Unlock()

	if m.LogitsFunc != nil {
		return m.LogitsFunc(ctx, query, texts)
	}

	words := strings.Fields(strings.ToLower(query))
	rows := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		var hits float32
		for _, w := range words {
			if strings.Contains(lower, w) {
				hits++
			}
		}
		rows[i] = []float32{hits}
	}
	return rows, nil
}

// Batches returns the texts of every call, in call order.
func (m *MockCrossEncoder) Batches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.batches...)
}

// CallCount returns the number of times Logits was called.
func (m *MockCrossEncoder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// Reset clears recorded batches and custom functions.
func (m *MockCrossEncoder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = nil
	m.LogitsFunc = nil
}
