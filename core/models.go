package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier used as a chunk's external key.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Variant names one of the text transformations a chunk goes through before embedding.
type Variant int

const (
	// VariantContent embeds the chunk text as-is.
	VariantContent Variant = iota + 1
	// VariantKeyword appends weighted corpus-distinctive keywords to the chunk text.
	VariantKeyword
	// VariantPrefix prepends the chunk's one-line summary when one exists.
	VariantPrefix
)

// DefaultVariant is the variant queried when the caller does not choose one.
const DefaultVariant = VariantPrefix

// AllVariants lists every variant in build order.
var AllVariants = []Variant{VariantContent, VariantKeyword, VariantPrefix}

func (v Variant) String() string {
	switch v {
	case VariantContent:
		return "content"
	case VariantKeyword:
		return "keyword"
	case VariantPrefix:
		return "prefix"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant maps a variant name to its Variant value.
// "tfidf" is accepted as an alias for "keyword".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "content":
		return VariantContent, nil
	case "keyword", "tfidf":
		return VariantKeyword, nil
	case "prefix", "":
		return VariantPrefix, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidVariant, s)
	}
}

// Paragraph is a non-empty text span within a Block.
// Start and End are rune offsets into the block's composed text and are
// filled in by the chunker; parsers only supply Text.
type Paragraph struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Block is one structural unit of a parsed document.
type Block struct {
	DocumentID string      `json:"document_id"`
	Heading    string      `json:"heading,omitempty"`
	Page       *int        `json:"page,omitempty"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Document groups the blocks a parser produced for one source file.
type Document struct {
	ID     string  `json:"document_id"`
	Blocks []Block `json:"blocks"`
}

// Chunk is a bounded slice of a block's composed text.
type Chunk struct {
	// ID is the chunk's position in the index. It is assigned at build time.
	ID               int
	Key              ID
	DocumentID       string
	BlockIndex       int
	// Heading is the block heading with surrounding whitespace trimmed, the form
	// composed into the block text. Block.Heading keeps the raw value.
	Heading          string
	Page             *int
	ParagraphIndices []int
	Start            int
	End              int
	Text             string
	Summary          *string
	TokenCount       int
}

// PrimaryParagraph returns the first paragraph the chunk overlaps.
func (c *Chunk) PrimaryParagraph() (int, bool) {
	if len(c.ParagraphIndices) == 0 {
		return 0, false
	}
	return c.ParagraphIndices[0], true
}

// ExternalKey derives the chunk's stable key from its provenance and text.
func (c *Chunk) ExternalKey() ID {
	return IDFromContent(fmt.Sprintf("%s\x00%d\x00%d\x00%d\x00%s", c.DocumentID, c.BlockIndex, c.Start, c.End, c.Text))
}

// Citation renders a human-readable source reference for the chunk.
func (c *Chunk) Citation() string {
	if c.Page == nil {
		return fmt.Sprintf("%s – block %d", c.DocumentID, c.BlockIndex)
	}
	return fmt.Sprintf("%s – page %d, block %d", c.DocumentID, *c.Page, c.BlockIndex)
}

// IndexEntry pairs a chunk id with its normalized embedding for one variant.
type IndexEntry struct {
	ChunkID int
	Vector  []float32
}

// Triple is a subject-predicate-object fact extracted from a chunk.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
	ChunkID   int
}

// Text flattens the triple into the string that gets embedded and scored.
func (t Triple) Text() string {
	return t.Subject + " " + t.Predicate + " " + t.Object
}

// Signal identifies which stage produced a candidate's score.
type Signal int

const (
	SignalDense Signal = iota + 1
	SignalRerank
	SignalDenseFallback
	SignalGraph
	SignalFused
)

func (s Signal) String() string {
	switch s {
	case SignalDense:
		return "dense"
	case SignalRerank:
		return "rerank"
	case SignalDenseFallback:
		return "dense-fallback"
	case SignalGraph:
		return "graph"
	case SignalFused:
		return "fused"
	default:
		return "unknown"
	}
}

// RankedCandidate is the unit that flows through retrieval, reranking and fusion.
type RankedCandidate struct {
	ChunkID int
	Score   float32
	Signal  Signal
}

// Provenance locates a result in its source document.
type Provenance struct {
	DocumentID       string `json:"document_id"`
	BlockIndex       int    `json:"block"`
	Page             *int   `json:"page,omitempty"`
	ParagraphIndices []int  `json:"paragraph_indices"`
	Start            int    `json:"start"`
	End              int    `json:"end"`
	Citation         string `json:"citation"`
}

// Result is one ranked passage returned to answer generation.
type Result struct {
	ChunkID    int        `json:"chunk_id"`
	Text       string     `json:"text"`
	Score      float32    `json:"score"`
	Signal     string     `json:"signal"`
	Provenance Provenance `json:"provenance"`
}

// NewResult builds a Result from a chunk and its ranking.
func NewResult(chunk *Chunk, cand RankedCandidate) Result {
	return Result{
		ChunkID: chunk.ID,
		Text:    chunk.Text,
		Score:   cand.Score,
		Signal:  cand.Signal.String(),
		Provenance: Provenance{
			DocumentID:       chunk.DocumentID,
			BlockIndex:       chunk.BlockIndex,
			Page:             chunk.Page,
			ParagraphIndices: chunk.ParagraphIndices,
			Start:            chunk.Start,
			End:              chunk.End,
			Citation:         chunk.Citation(),
		},
	}
}

// Manifest describes one built index.
type Manifest struct {
	BuildID        string
	EmbeddingModel string
	Dimension      int
	ChunkCount     int
	Variants       []Variant
	TripleCount    int
	CreatedAt      time.Time
	// Fingerprint hashes the ordered chunk keys and ties the key mapping to the chunk table.
	Fingerprint ID
}

// HasVariant reports whether the manifest lists v as built.
func (m *Manifest) HasVariant(v Variant) bool {
	for _, mv := range m.Variants {
		if mv == v {
			return true
		}
	}
	return false
}

// KeyFingerprint hashes an ordered sequence of chunk keys.
func KeyFingerprint(keys []ID) ID {
	buf := make([]byte, 8*len(keys))
	for i, k := range keys {
		binary.BigEndian.PutUint64(buf[i*8:], uint64(k))
	}
	return IDFromContent(string(buf))
}
