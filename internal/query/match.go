package query

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTokenLen drops short tokens ("is", "a", possessive "s") from overlap matching.
const minTokenLen = 3

// stopWords never count toward token overlap. "user" is here because nearly
// every stored fact mentions the user.
var stopWords = map[string]bool{
	"about": true, "and": true, "are": true, "can": true, "did": true,
	"does": true, "for": true, "from": true, "has": true, "have": true,
	"how": true, "know": true, "like": true, "likes": true, "tell": true,
	"that": true, "the": true, "their": true, "them": true, "they": true,
	"this": true, "user": true, "users": true, "was": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "why": true,
	"with": true, "you": true, "your": true,
}

// Matcher decides whether content is relevant to a free-text query.
//
// A record matches when the query's words appear contiguously among the
// content's words (case-insensitive), or when any query token of at least
// three runes that is not a stop word equals a word of the content. Partial
// words never match. An empty query matches everything.
type Matcher struct {
	empty  bool
	phrase []string
	tokens []string
}

// NewMatcher prepares q for repeated matching.
func NewMatcher(q string) Matcher {
	lower := strings.ToLower(strings.TrimSpace(q))
	phrase := tokenize(lower)
	var tokens []string
	seen := map[string]bool{}
	for _, t := range phrase {
		if utf8.RuneCountInString(t) < minTokenLen || stopWords[t] || seen[t] {
			continue
		}
		seen[t] = true
		tokens = append(tokens, t)
	}
	return Matcher{empty: lower == "", phrase: phrase, tokens: tokens}
}

// Match reports whether content satisfies the query.
func (m Matcher) Match(content string) bool {
	if m.empty {
		return true
	}
	if len(m.phrase) == 0 {
		return false
	}
	words := tokenize(strings.ToLower(content))
	if containsRun(words, m.phrase) {
		return true
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	for _, t := range m.tokens {
		if set[t] {
			return true
		}
	}
	return false
}

// containsRun reports whether run occurs as a contiguous subsequence of words.
func containsRun(words, run []string) bool {
	for i := 0; i+len(run) <= len(words); i++ {
		if slices.Equal(words[i:i+len(run)], run) {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
