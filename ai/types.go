package ai

import "strings"

// ExtractedTriple is a fact returned by a TripleExtractor, before it is tied to a chunk.
type ExtractedTriple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// Complete reports whether all three parts are non-blank.
func (t ExtractedTriple) Complete() bool {
	return strings.TrimSpace(t.Subject) != "" &&
		strings.TrimSpace(t.Predicate) != "" &&
		strings.TrimSpace(t.Object) != ""
}
