package ai

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used when counting tokens for chunk metadata.
const DefaultEncoding = "cl100k_base"

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named BPE encoding.
// Loading may fetch the encoding file on first use.
func NewTiktokenCounter(encoding string) (TokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &tiktokenCounter{enc: enc}, nil
}

func (t *tiktokenCounter) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// WordCounter approximates token counts by whitespace-separated words.
// It is the fallback when no BPE encoding can be loaded.
type WordCounter struct{}

func (WordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}
