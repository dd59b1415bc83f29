package provider

import (
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// StructureKind describes where in the document the cursor sits.
type StructureKind string

const (
	MidSentence    StructureKind = "mid_sentence"
	EndOfSentence  StructureKind = "end_of_sentence"
	EndOfParagraph StructureKind = "end_of_paragraph"
	ListItem       StructureKind = "list_item"
	Heading        StructureKind = "heading"
)

// Structure is the result of Analyze.
type Structure struct {
	Kind StructureKind
	// Marker is the list or heading marker of the last line, if any.
	Marker string
}

var (
	trailingBlankLineRE = regexp.MustCompile(`\n[ \t]*\n[ \t]*$`)
	listMarkerRE        = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+`)
	headingMarkerRE     = regexp.MustCompile(`^\s{0,3}(#{1,6})\s+`)
	sentenceEndRE       = regexp.MustCompile(`[.!?]["'”’)\]]*\s*$`)
)

var (
	markdownParser     goldmark.Markdown
	markdownParserOnce sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

// Analyze classifies the tail of text. It is deterministic and cheap: a few
// regex checks on the last line, plus a markdown parse of the last block
// when isMarkdown is set.
func Analyze(s string, isMarkdown bool) Structure {
	if strings.TrimSpace(s) == "" {
		return Structure{Kind: EndOfParagraph}
	}
	if trailingBlankLineRE.MatchString(s) {
		return Structure{Kind: EndOfParagraph}
	}
	line := lastLine(s)
	if m := listMarkerRE.FindStringSubmatch(line); m != nil {
		return Structure{Kind: ListItem, Marker: m[1]}
	}
	if m := headingMarkerRE.FindStringSubmatch(line); m != nil {
		return Structure{Kind: Heading, Marker: m[1]}
	}
	if isMarkdown {
		if k, ok := lastBlockKind(s); ok {
			return Structure{Kind: k}
		}
	}
	if sentenceEndRE.MatchString(s) {
		return Structure{Kind: EndOfSentence}
	}
	return Structure{Kind: MidSentence}
}

// lastBlockKind parses s as markdown and inspects the final top-level block.
// It catches shapes the line regexes miss, like setext headings and
// continuation lines of list items.
func lastBlockKind(s string) (StructureKind, bool) {
	src := []byte(s)
	doc := getMarkdownParser().Parser().Parse(text.NewReader(src))
	last := doc.LastChild()
	if last == nil {
		return "", false
	}
	switch last.Kind() {
	case ast.KindHeading:
		return Heading, true
	case ast.KindList:
		return ListItem, true
	}
	return "", false
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
