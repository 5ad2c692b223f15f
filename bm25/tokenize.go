// Package bm25 maintains the case-scoped inverted index and computes
// classical BM25 scores over it. It is the "always on" algorithmic
// lexical capability: unlike the embedding package's model-backed
// ports, there is nothing here to configure or swap.
package bm25

import (
	"strings"
	"unicode"
)

// stopWords mirrors the retrieval package's own list: common function
// words contribute no discriminating power to lexical ranking and bloat
// the posting lists if left in.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "must": true,
	"shall": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "what": true, "which": true, "who": true, "whom": true,
	"where": true, "when": true, "how": true, "why": true, "not": true,
	"no": true, "nor": true, "if": true, "then": true, "than": true,
	"so": true, "as": true, "about": true, "into": true, "between": true,
}

// Tokenize lowercases the input and splits on non-alphanumeric runes,
// except it keeps apostrophes inside a word ("don't" stays one token)
// and recognizes the two legal-citation markers "§" and "v." as their
// own standalone tokens instead of being split away as punctuation.
// Stopwords and single-character tokens are filtered.
func Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		tok := current.String()
		current.Reset()
		if len([]rune(tok)) <= 1 {
			return
		}
		if stopWords[tok] {
			return
		}
		tokens = append(tokens, tok)
	}

	runes := []rune(strings.ToLower(text))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		case r == '\'' && current.Len() > 0 && i+1 < len(runes) && (unicode.IsLetter(runes[i+1]) || unicode.IsDigit(runes[i+1])):
			current.WriteRune(r)
		case r == '§':
			flush()
			tokens = append(tokens, "§")
		case r == '.' && current.String() == "v":
			current.WriteRune(r)
			flush()
		default:
			flush()
		}
	}
	flush()

	return tokens
}
