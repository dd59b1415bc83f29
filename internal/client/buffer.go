package client

import "sync"

// Document is the editor surface the controller reads from and splices into.
// Positions are rune offsets.
type Document interface {
	Text() string
	Cursor() int
	Insert(at int, s string)
}

// Buffer is an in-memory Document. It is safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	text   []rune
	cursor int
}

// NewBuffer returns a buffer holding text with the cursor at its end.
func NewBuffer(text string) *Buffer {
	r := []rune(text)
	return &Buffer{text: r, cursor: len(r)}
}

func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.text)
}

func (b *Buffer) Cursor() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// Insert places s at rune offset at and moves the cursor past it when the
// cursor sat at or after the insertion point.
func (b *Buffer) Insert(at int, s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	at = clampPos(at, len(b.text))
	ins := []rune(s)
	out := make([]rune, 0, len(b.text)+len(ins))
	out = append(out, b.text[:at]...)
	out = append(out, ins...)
	out = append(out, b.text[at:]...)
	b.text = out
	if b.cursor >= at {
		b.cursor += len(ins)
	}
}

// Type appends s at the cursor, as a keystroke would.
func (b *Buffer) Type(s string) {
	b.Insert(b.Cursor(), s)
}

// Backspace removes n runes before the cursor.
func (b *Buffer) Backspace(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.cursor {
		n = b.cursor
	}
	b.text = append(b.text[:b.cursor-n], b.text[b.cursor:]...)
	b.cursor -= n
}

// SetCursor moves the cursor, clamped to the text.
func (b *Buffer) SetCursor(pos int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = clampPos(pos, len(b.text))
}

func clampPos(pos, n int) int {
	if pos < 0 {
		return 0
	}
	if pos > n {
		return n
	}
	return pos
}

// textBeforeCursor is the context sent with a suggestion request.
func textBeforeCursor(d Document) string {
	r := []rune(d.Text())
	return string(r[:clampPos(d.Cursor(), len(r))])
}
