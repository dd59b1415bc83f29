// Package fallback proposes short continuations from lexical rules when the
// upstream model is unavailable. Generate never fails and never does I/O.
package fallback

import (
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultSuggestion is returned for empty or very short input.
const DefaultSuggestion = "The"

var sentenceStarters = []string{"The", "This", "However,", "In addition,", "It", "We"}

var connectives = []string{"and", "which", "because", "while", "so that"}

// continuations maps trailing phrases (single function words included) to a
// suggested next word. Longer phrases win over their own suffixes.
var continuations = map[string]string{
	"the":          "best",
	"a":            "few",
	"an":           "example",
	"to":           "the",
	"of":           "the",
	"in":           "the",
	"on":           "the",
	"at":           "the",
	"for":          "example",
	"with":         "the",
	"from":         "the",
	"by":           "the",
	"and":          "then",
	"or":           "even",
	"but":          "also",
	"is":           "a",
	"are":          "the",
	"was":          "a",
	"were":         "not",
	"i":            "think",
	"we":           "can",
	"you":          "can",
	"they":         "are",
	"it":           "is",
	"this":         "is",
	"that":         "is",
	"there":        "is",
	"will":         "be",
	"can":          "be",
	"should":       "be",
	"would":        "be",
	"could":        "be",
	"have":         "been",
	"has":          "been",
	"in order":     "to",
	"as well":      "as",
	"as a":         "result",
	"on the other": "hand",
	"at the same":  "time",
	"in addition":  "to",
	"due":          "to",
	"due to the":   "fact",
	"for the":      "first time",
	"as soon":      "as",
	"according":    "to",
}

var phraseTrie = buildTrie()

func buildTrie() *patricia.Trie {
	t := patricia.NewTrie()
	for phrase, next := range continuations {
		t.Insert(patricia.Prefix(reverse(" "+phrase)), next)
	}
	return t
}

// Generate returns a 1-3 word continuation for text with no surrounding
// whitespace.
func Generate(text string) string {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < 3 {
		return DefaultSuggestion
	}
	core := strings.TrimRightFunc(trimmed, isClosingQuote)
	if core == "" {
		return DefaultSuggestion
	}
	last := []rune(core)[len([]rune(core))-1]
	switch last {
	case '.', '!', '?':
		return pick(sentenceStarters, trimmed)
	case ',':
		return "and"
	case ':':
		return "the following"
	case ';':
		return "however,"
	}
	if next, ok := lookupPhrase(core); ok {
		return next
	}
	return pick(connectives, trimmed)
}

// lookupPhrase finds the longest known phrase that ends core on a word
// boundary. The trie is keyed by reversed text, so a suffix of core is a
// prefix of its reversal.
func lookupPhrase(core string) (string, bool) {
	words := strings.Fields(strings.ToLower(core))
	if len(words) == 0 {
		return "", false
	}
	// phrases are at most a few words long
	if len(words) > 4 {
		words = words[len(words)-4:]
	}
	key := reverse(" " + strings.Join(words, " "))
	var best string
	bestLen := 0
	_ = phraseTrie.VisitPrefixes(patricia.Prefix(key), func(p patricia.Prefix, item patricia.Item) error {
		if len(p) > bestLen {
			best, bestLen = item.(string), len(p)
		}
		return nil
	})
	return best, bestLen > 0
}

func pick(options []string, seed string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return options[h.Sum32()%uint32(len(options))]
}

func isClosingQuote(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '»':
		return true
	}
	return unicode.IsSpace(r)
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
