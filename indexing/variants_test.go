package indexing

import (
	"testing"

	"github.com/poiesic/policyrag/core"
	"github.com/stretchr/testify/assert"
)

func TestAugmentKeywords(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		want     string
	}{
		{"none", nil, "body"},
		{"one", []string{"leave"}, "body\nKEYWORDS: leave leave leave"},
		{"two", []string{"leave", "annual"}, "body\nKEYWORDS: leave leave leave annual annual"},
		{"five", []string{"a1", "b2", "c3", "d4", "e5"}, "body\nKEYWORDS: a1 a1 a1 b2 b2 c3 d4 e5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AugmentKeywords("body", tt.keywords))
		})
	}
}

func TestPrefixSummary(t *testing.T) {
	summary := "Covers annual leave."
	blank := "  "

	assert.Equal(t, "SUMMARY: Covers annual leave.\nbody", PrefixSummary("body", &summary))
	assert.Equal(t, "body", PrefixSummary("body", nil))
	assert.Equal(t, "body", PrefixSummary("body", &blank))
}

func TestVariantText(t *testing.T) {
	summary := "Short."
	chunk := &core.Chunk{Text: "body", Summary: &summary}

	assert.Equal(t, "body", VariantText(core.VariantContent, chunk, []string{"x"}))
	assert.Equal(t, "body\nKEYWORDS: x x x", VariantText(core.VariantKeyword, chunk, []string{"x"}))
	assert.Equal(t, "SUMMARY: Short.\nbody", VariantText(core.VariantPrefix, chunk, nil))
}
