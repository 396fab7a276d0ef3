package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		expected []float32
	}{
		{"unit vector remains unchanged", []float32{1, 0, 0}, []float32{1, 0, 0}},
		{"scale non-unit vector", []float32{3, 4}, []float32{0.6, 0.8}},
		{"negative values", []float32{-1, 1}, []float32{-1 / float32(math.Sqrt2), 1 / float32(math.Sqrt2)}},
		{"zero vector", []float32{0, 0}, []float32{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVector(tt.input)
			require.Len(t, result, len(tt.expected))
			for i := range result {
				assert.InDelta(t, tt.expected[i], result[i], 1e-6, "element %d", i)
			}
		})
	}

	t.Run("input is not modified", func(t *testing.T) {
		in := []float32{3, 4}
		NormalizeVector(in)
		assert.Equal(t, []float32{3, 4}, in)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, NormalizeVector(nil))
	})
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 11, Dot([]float32{1, 2}, []float32{3, 4}), 1e-6)
	assert.InDelta(t, 3, Dot([]float32{1, 2, 9}, []float32{3}), 1e-6)
}
