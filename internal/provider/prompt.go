package provider

import "strings"

// Message is one chat turn sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const baseInstruction = "You are an inline autocomplete engine inside a writing editor. " +
	"Continue the user's text with between 1 and 10 words. " +
	"Reply with the continuation only: no quotes, no explanations, no repetition of the given text."

var structureInstructions = map[StructureKind]string{
	MidSentence:    "The text stops in the middle of a sentence. Continue that sentence naturally.",
	EndOfSentence:  "The text stops at the end of a sentence. Begin the next sentence.",
	EndOfParagraph: "The text stops after a paragraph break. Begin a new paragraph that follows from it.",
	ListItem:       "The text stops inside a list item. Continue the item; do not start a new item or add a list marker.",
	Heading:        "The text stops inside a heading. Complete the heading briefly.",
}

// BuildMessages assembles the system instruction for the detected structure
// and the user turn carrying the trailing context.
func BuildMessages(req Request, st Structure) []Message {
	var sys strings.Builder
	sys.WriteString(baseInstruction)
	sys.WriteString(" ")
	sys.WriteString(structureInstructions[st.Kind])
	if req.IsMarkdown {
		sys.WriteString(" The document is Markdown. Inline Markdown is allowed; never emit code fences or HTML.")
	} else {
		sys.WriteString(" The document is plain text. Do not use Markdown or HTML.")
	}
	return []Message{
		{Role: "system", Content: sys.String()},
		{Role: "user", Content: req.Text},
	}
}
