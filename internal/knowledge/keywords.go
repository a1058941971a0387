package knowledge

import (
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "him": {}, "his": {},
	"how": {}, "its": {}, "may": {}, "who": {}, "did": {}, "does": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "with": {},
	"would": {}, "could": {}, "should": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "from": {}, "have": {}, "been": {},
	"were": {}, "they": {}, "their": {}, "there": {}, "about": {},
	"into": {}, "than": {}, "then": {}, "them": {}, "will": {},
}

// ExtractKeywords lowercases the query, strips punctuation, drops
// stop words and tokens of two characters or fewer, and returns the
// remaining tokens deduplicated in first-appearance order.
func ExtractKeywords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		keywords = append(keywords, f)
	}
	return keywords
}
