package provider

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxWords caps the length of a cleaned suggestion.
const MaxWords = 10

var (
	fenceRE = regexp.MustCompile("(?s)^```[A-Za-z0-9_+-]*[ \t]*\n?(.*?)\n?```$")
	// Known element names with name=value attributes only, so prose such as
	// "<y and z>" or "a<b and c>d" survives.
	tagRE   = regexp.MustCompile(`(?i)</?(?:` + htmlTags + `)(?:\s+[a-z-]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'<>]+))*\s*/?>`)
)

const htmlTags = "a|abbr|b|blockquote|br|cite|code|del|div|em|font|h[1-6]|hr|i|img|ins|kbd|li|mark|ol|p|pre|q|s|small|span|strong|sub|sup|table|td|th|tr|u|ul"

var quotePairs = map[rune]rune{'"': '"', '\'': '\'', '`': '`', '“': '”', '‘': '’', '«': '»'}

// closingPunct never takes a space before it.
const closingPunct = ".,;:!?)]}%…'\"”’"

// openingPunct never takes a space after it.
const openingPunct = "([{/-“‘"

// Clean normalizes raw model output into a suggestion that can be spliced
// after context.
func Clean(raw, context string, isMarkdown bool) string {
	s := strings.TrimSpace(raw)
	if m := fenceRE.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.ReplaceAll(s, "```", "")
	s = tagRE.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	s = stripWrappingQuotes(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "...")
	s = strings.TrimPrefix(s, "…")
	if !isMarkdown {
		s = strings.NewReplacer("**", "", "__", "").Replace(s)
	}
	s = truncateWords(s, MaxWords)
	return JoinSpacing(context, s)
}

func stripWrappingQuotes(s string) string {
	for i := 0; i < 2; i++ {
		open, size := utf8.DecodeRuneInString(s)
		end, _ := utf8.DecodeLastRuneInString(s)
		want, ok := quotePairs[open]
		if !ok || end != want || utf8.RuneCountInString(s) < 2 {
			return s
		}
		s = strings.TrimSpace(s[size : len(s)-utf8.RuneLen(end)])
	}
	return s
}

func truncateWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:n], " ")
}

// JoinSpacing fixes the seam between context and suggestion: never a double
// space, and exactly one space at a word boundary unless the suggestion
// opens with closing punctuation.
func JoinSpacing(context, s string) string {
	core := strings.TrimSpace(s)
	if core == "" {
		return ""
	}
	if context == "" {
		return core
	}
	last, _ := utf8.DecodeLastRuneInString(context)
	if unicode.IsSpace(last) || strings.ContainsRune(openingPunct, last) {
		return core
	}
	first, _ := utf8.DecodeRuneInString(core)
	if strings.ContainsRune(closingPunct, first) {
		return core
	}
	return " " + core
}
