package mock

import (
	"context"
	"strings"
	"sync"
)

// MockSummarizer is a test double for ai.Summarizer.
type MockSummarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, the first sentence of the text is returned.
	SummarizeFunc func(ctx context.Context, text string) (string, error)

	mu        sync.Mutex
	callCount int
}

// NewMockSummarizer creates a mock summarizer with default behavior.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize returns the first sentence of text.
func (m *MockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text)
	}

	line := strings.Join(strings.Fields(text), " ")
	if i := strings.Index(line, ". "); i >= 0 {
		line = line[:i+1]
	}
	return line, nil
}

// CallCount returns the number of times Summarize was called.
func (m *MockSummarizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockSummarizer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.SummarizeFunc = nil
}
