package chunking

import (
	"slices"
	"strings"

	"github.com/poiesic/policyrag/core"
)

const (
	// DefaultMaxSize is the default upper bound on a chunk's length in characters.
	DefaultMaxSize = 1000
	// DefaultOverlap is the default number of characters shared by consecutive chunks.
	DefaultOverlap = 200

	// ParagraphSeparator joins the heading and paragraphs of a block.
	ParagraphSeparator = "\n\n"
)

// separators are tried in priority order when looking for a natural break.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune(" "),
}

// Span is a [Start,End) range of code points within a composed block text.
type Span struct {
	Start int
	End   int
}

// Composition is a block's heading and paragraphs joined into one text,
// with the exact location of every piece.
type Composition struct {
	Text       []rune
	Heading    *Span
	Paragraphs []core.Paragraph
}

// Compose joins a block's trimmed heading and non-empty paragraphs with
// ParagraphSeparator. Paragraph indices follow the block's paragraph order,
// including the positions of skipped empty paragraphs.
func Compose(block *core.Block) Composition {
	var comp Composition
	sep := []rune(ParagraphSeparator)

	appendPiece := func(text string) Span {
		if len(comp.Text) > 0 {
			comp.Text = append(comp.Text, sep...)
		}
		start := len(comp.Text)
		comp.Text = append(comp.Text, []rune(text)...)
		return Span{Start: start, End: len(comp.Text)}
	}

	if heading := strings.TrimSpace(block.Heading); heading != "" {
		span := appendPiece(heading)
		comp.Heading = &span
	}

	for i, p := range block.Paragraphs {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		span := appendPiece(text)
		comp.Paragraphs = append(comp.Paragraphs, core.Paragraph{
			Index: i,
			Text:  text,
			Start: span.Start,
			End:   span.End,
		})
	}
	return comp
}

// Chunker splits blocks into chunks of bounded size.
type Chunker struct {
	maxSize int
	overlap int
}

// New creates a Chunker. maxSize must be positive and overlap must not be negative.
// An overlap at or above maxSize is accepted; the cursor still always advances.
func New(maxSize, overlap int) (*Chunker, error) {
	if err := core.ValidateChunkSize(maxSize, overlap); err != nil {
		return nil, err
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}, nil
}

// Default returns a Chunker with DefaultMaxSize and DefaultOverlap.
func Default() *Chunker {
	return &Chunker{maxSize: DefaultMaxSize, overlap: DefaultOverlap}
}

// Chunk splits every block of a document, in order.
// Chunk IDs are left at zero; the index builder assigns them.
func (c *Chunker) Chunk(documentID string, blocks []core.Block) []core.Chunk {
	var chunks []core.Chunk
	for i := range blocks {
		chunks = append(chunks, c.chunkBlock(documentID, i, &blocks[i])...)
	}
	return chunks
}

// Chunk splits blocks with the given size parameters.
// Invalid parameters are a caller error and yield no chunks.
func Chunk(documentID string, blocks []core.Block, maxSize, overlap int) []core.Chunk {
	c, err := New(maxSize, overlap)
	if err != nil {
		return nil
	}
	return c.Chunk(documentID, blocks)
}

func (c *Chunker) chunkBlock(documentID string, blockIndex int, block *core.Block) []core.Chunk {
	comp := Compose(block)
	text := comp.Text
	n := len(text)
	if n == 0 {
		return nil
	}

	var chunks []core.Chunk
	pos := 0
	for pos < n {
		hardEnd := min(n, pos+c.maxSize)

		// The remainder fits: take it whole.
		splitAt := hardEnd
		if hardEnd < n {
			splitAt = naturalSplit(text, pos, hardEnd)
		}

		if body := strings.TrimSpace(string(text[pos:splitAt])); body != "" {
			chunks = append(chunks, core.Chunk{
				DocumentID:       documentID,
				BlockIndex:       blockIndex,
				Heading:          strings.TrimSpace(block.Heading),
				Page:             block.Page,
				ParagraphIndices: overlapping(comp.Paragraphs, pos, splitAt),
				Start:            pos,
				End:              splitAt,
				Text:             body,
			})
		}

		if splitAt >= n {
			break
		}
		next := splitAt - c.overlap
		if next <= pos {
			next = splitAt
		}
		pos = next
	}
	return chunks
}

// naturalSplit returns the end of the last highest-priority separator lying
// entirely inside text[start:hardEnd], or hardEnd when there is none.
func naturalSplit(text []rune, start, hardEnd int) int {
	window := text[start:hardEnd]
	for _, sep := range separators {
		if idx := lastIndex(window, sep); idx >= 0 {
			return start + idx + len(sep)
		}
	}
	return hardEnd
}

func lastIndex(s, sep []rune) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		if slices.Equal(s[i:i+len(sep)], sep) {
			return i
		}
	}
	return -1
}

// overlapping lists the indices of paragraphs intersecting [start,end).
func overlapping(paragraphs []core.Paragraph, start, end int) []int {
	var indices []int
	for _, p := range paragraphs {
		if p.Start < end && p.End > start {
			indices = append(indices, p.Index)
		}
	}
	return indices
}
