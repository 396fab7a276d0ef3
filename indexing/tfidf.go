package indexing

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strings"
)

const (
	// DefaultVocabularySize caps the TF-IDF vocabulary to the most frequent terms of the corpus.
	DefaultVocabularySize = 50
	// DefaultKeywordCount is the number of keywords appended to each chunk.
	DefaultKeywordCount = 5
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// tokenize lowercases text and returns its word tokens minus stop words.
func tokenize(text string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := matches[:0]
	for _, m := range matches {
		if _, stop := stopWords[m]; !stop {
			tokens = append(tokens, m)
		}
	}
	return tokens
}

type weightedTerm struct {
	term   string
	weight float64
}

// Keywords returns, for each text, up to perText corpus-distinctive terms by
// descending TF-IDF weight. The vocabulary is the vocabSize most frequent
// terms across texts. Weights use raw term frequency, smooth idf and
// L2-normalized rows. Equal weights are ordered alphabetically.
func Keywords(texts []string, vocabSize, perText int) [][]string {
	result := make([][]string, len(texts))
	if len(texts) == 0 || vocabSize <= 0 || perText <= 0 {
		return result
	}

	docs := make([]map[string]int, len(texts))
	totals := make(map[string]int)
	df := make(map[string]int)
	for i, text := range texts {
		tf := make(map[string]int)
		for _, tok := range tokenize(text) {
			tf[tok]++
			totals[tok]++
		}
		for term := range tf {
			df[term]++
		}
		docs[i] = tf
	}

	terms := make([]string, 0, len(totals))
	for term := range totals {
		terms = append(terms, term)
	}
	slices.SortFunc(terms, func(a, b string) int {
		if c := cmp.Compare(totals[b], totals[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	if len(terms) > vocabSize {
		terms = terms[:vocabSize]
	}

	n := float64(len(texts))
	idf := make(map[string]float64, len(terms))
	for _, term := range terms {
		idf[term] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	for i, tf := range docs {
		var row []weightedTerm
		var norm float64
		for _, term := range terms {
			count := tf[term]
			if count == 0 {
				continue
			}
			w := float64(count) * idf[term]
			row = append(row, weightedTerm{term: term, weight: w})
			norm += w * w
		}
		if len(row) == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for j := range row {
			row[j].weight /= norm
		}
		slices.SortFunc(row, func(a, b weightedTerm) int {
			if c := cmp.Compare(b.weight, a.weight); c != 0 {
				return c
			}
			return strings.Compare(a.term, b.term)
		})
		if len(row) > perText {
			row = row[:perText]
		}
		keywords := make([]string, len(row))
		for j, wt := range row {
			keywords[j] = wt.term
		}
		result[i] = keywords
	}
	return result
}

// English stop words dropped before counting.
var stopWords = func() map[string]struct{} {
	words := strings.Fields(`
		a about above across after afterwards again against all almost alone along already also
		although always am among amongst an and another any anyhow anyone anything anyway anywhere
		are around as at be became because become becomes becoming been before beforehand behind
		being below beside besides between beyond both but by can cannot could did do does doing
		done down due during each either else elsewhere enough etc even ever every everyone
		everything everywhere except few for former formerly from further had has have having he
		hence her here hereafter hereby herein hers herself him himself his how however i ie if in
		indeed into is it its itself just last latter least less made many may me meanwhile might
		mine more moreover most mostly much must my myself namely neither never nevertheless next
		no nobody none noone nor not nothing now nowhere of off often on once one only onto or
		other others otherwise our ours ourselves out over own per perhaps please rather re same
		see seem seemed seeming seems several she should since so some somehow someone something
		sometime sometimes somewhere still such than that the their theirs them themselves then
		thence there thereafter thereby therefore therein thereupon these they this those though
		through throughout thru thus to together too toward towards under until up upon us very
		via was we well were what whatever when whence whenever where whereafter whereas whereby
		wherein whereupon wherever whether which while whither who whoever whole whom whose why
		will with within without would yet you your yours yourself yourselves`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()
