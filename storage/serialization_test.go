package storage

import (
	"testing"
	"time"

	"github.com/poiesic/policyrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalID(MarshalID(tt.id))
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}

	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	page := 7
	summary := "Leave accrual for full-time staff."

	tests := []struct {
		name  string
		chunk *core.Chunk
	}{
		{
			name: "optional fields absent",
			chunk: &core.Chunk{
				ID: 3, DocumentID: "hr.pdf", BlockIndex: 2,
				Start: 0, End: 11, Text: "Leave rules", TokenCount: 2,
			},
		},
		{
			name: "all fields",
			chunk: &core.Chunk{
				ID: 12, DocumentID: "hr.pdf", BlockIndex: 4, Heading: "Leave",
				Page: &page, ParagraphIndices: []int{0, 1}, Start: 180, End: 1180,
				Text: "Employees accrue – per month – 1.5 days.", Summary: &summary, TokenCount: 14,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.chunk.Key = tt.chunk.ExternalKey()

			decoded, err := UnmarshalChunk(MarshalChunk(tt.chunk))
			require.NoError(t, err)
			if tt.chunk.ParagraphIndices == nil {
				assert.Empty(t, decoded.ParagraphIndices)
				decoded.ParagraphIndices = nil
			}
			assert.Equal(t, tt.chunk, decoded)
		})
	}
}

func TestUnmarshalChunk_Truncated(t *testing.T) {
	data := MarshalChunk(&core.Chunk{ID: 1, DocumentID: "d", Text: "text", End: 4, TokenCount: 1})

	_, err := UnmarshalChunk(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalChunk(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalIndexEntry(t *testing.T) {
	entry := core.IndexEntry{ChunkID: 9, Vector: []float32{0.6, -0.8, 0}}

	decoded, err := UnmarshalIndexEntry(MarshalIndexEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestMarshalUnmarshalTriple(t *testing.T) {
	triple := core.Triple{Subject: "employees", Predicate: "accrue", Object: "annual leave", ChunkID: 4}

	decoded, err := UnmarshalTriple(MarshalTriple(triple))
	require.NoError(t, err)
	assert.Equal(t, triple, decoded)
}

func TestMarshalUnmarshalManifest(t *testing.T) {
	manifest := &core.Manifest{
		BuildID:        "b-1",
		EmbeddingModel: "embeddinggemma",
		Dimension:      768,
		ChunkCount:     120,
		Variants:       []core.Variant{core.VariantContent, core.VariantPrefix},
		TripleCount:    45,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
		Fingerprint:    core.IDFromContent("keys"),
	}

	decoded, err := UnmarshalManifest(MarshalManifest(manifest))
	require.NoError(t, err)
	assert.Equal(t, manifest, decoded)
}
