package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// stopWords are ignored when checking for verbatim matches.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an and are as at be but by do for from
		has have in is it its not of on or that the this to was were will with you`) {
		stopWords[w] = struct{}{}
	}
}

// keywords folds text to lower case, splits it on anything that is not a
// letter, digit or apostrophe and drops stop words.
func keywords(text string) []string {
	folded := cases.Fold().String(text)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w == "" {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// containsAllQueryWords reports whether every keyword of query occurs in
// content. A query made only of stop words never matches.
func containsAllQueryWords(content, query string) bool {
	want := keywords(query)
	if len(want) == 0 {
		return false
	}

	have := make(map[string]struct{})
	for _, w := range keywords(content) {
		have[w] = struct{}{}
	}
	for _, w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}
