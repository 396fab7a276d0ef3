package indexing

import (
	"strings"

	"github.com/poiesic/policyrag/core"
)

const (
	keywordsMarker = "\nKEYWORDS: "
	summaryMarker  = "SUMMARY: "
)

// keywordRepeats weights keywords by rank: the first three times, the second twice, the rest once.
var keywordRepeats = []int{3, 2}

// AugmentKeywords appends the ranked keywords to text, repeated by rank.
// Text is returned unchanged when there are no keywords.
func AugmentKeywords(text string, keywords []string) string {
	if len(keywords) == 0 {
		return text
	}
	var terms []string
	for i, kw := range keywords {
		repeat := 1
		if i < len(keywordRepeats) {
			repeat = keywordRepeats[i]
		}
		for range repeat {
			terms = append(terms, kw)
		}
	}
	return text + keywordsMarker + strings.Join(terms, " ")
}

// PrefixSummary prepends a chunk summary to text when one is present.
func PrefixSummary(text string, summary *string) string {
	if summary == nil || strings.TrimSpace(*summary) == "" {
		return text
	}
	return summaryMarker + *summary + "\n" + text
}

// VariantText renders the text embedded for chunk under variant.
func VariantText(variant core.Variant, chunk *core.Chunk, keywords []string) string {
	switch variant {
	case core.VariantKeyword:
		return AugmentKeywords(chunk.Text, keywords)
	case core.VariantPrefix:
		return PrefixSummary(chunk.Text, chunk.Summary)
	default:
		return chunk.Text
	}
}
