package ngram

import (
	"regexp"
	"strings"
)

var (
	// Runs of terminal punctuation delimit sentences.
	sentenceDelim = regexp.MustCompile(`[.!?]+`)
	// Word tokens are maximal runs of letters, digits and underscores.
	// \p classes instead of \w: corpus text is UTF-8 and accented words
	// must stay whole.
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// Sentences lowercases raw text, splits it into sentences on runs of
// terminal punctuation and tokenizes each sentence into word tokens.
// Punctuation, whitespace and standalone symbols are dropped; segments that
// tokenize to nothing are discarded, so the result may be empty.
func Sentences(text string) [][]string {
	lowered := strings.ToLower(text)
	var sentences [][]string
	for _, segment := range sentenceDelim.Split(lowered, -1) {
		tokens := wordPattern.FindAllString(segment, -1)
		if len(tokens) > 0 {
			sentences = append(sentences, tokens)
		}
	}
	return sentences
}
