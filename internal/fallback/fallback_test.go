package fallback

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestGenerateRules(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", DefaultSuggestion},
		{"  ", DefaultSuggestion},
		{"hi", DefaultSuggestion},
		{"We bought apples,", "and"},
		{"The list includes:", "the following"},
		{"I went to the", "best"},
		{"She said that it", "is"},
		{"We did it in order", "to"},
		{"He can sing as well", "as"},
		{"On one hand this, on the other", "hand"},
		{"It happened due to the", "fact"},
		{"Everything is fine;", "however,"},
	}
	for _, tc := range cases {
		if got := Generate(tc.in); got != tc.want {
			t.Fatalf("Generate(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestGenerateSentenceEndIsCapitalized(t *testing.T) {
	for _, in := range []string{"It was late.", "Really?", "Stop!", `He said "go."`} {
		got := Generate(in)
		r, _ := utf8.DecodeRuneInString(got)
		if !strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZ", r) {
			t.Fatalf("Generate(%q)=%q should start a sentence", in, got)
		}
	}
}

func TestGenerateWordBoundary(t *testing.T) {
	// "theme" ends in "the" letters but is not the word "the"
	if got := Generate("a lovely theme"); got == continuations["the"] {
		t.Fatalf("matched inside a word: %q", got)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	in := "The quick brown fox jumps over the lazy dog"
	first := Generate(in)
	for i := 0; i < 10; i++ {
		if got := Generate(in); got != first {
			t.Fatalf("non-deterministic: %q vs %q", got, first)
		}
	}
}

func TestGenerateAlwaysTerminatesWithShortOutput(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdefghijklmnopqrstuvwxyz ABCXYZ.,!?;:'\"()\n\t日本語ñé🙂")
	inputs := []string{"", strings.Repeat("lorem ipsum ", 5000), "🙂🙂🙂", "\xff\xfe\xfd"}
	for len(inputs) < 1000 {
		n := rng.Intn(200)
		b := make([]rune, n)
		for i := range b {
			b[i] = alphabet[rng.Intn(len(alphabet))]
		}
		inputs = append(inputs, string(b))
	}
	for _, in := range inputs {
		got := Generate(in)
		if got == "" {
			t.Fatalf("empty suggestion for %q", in)
		}
		if w := len(strings.Fields(got)); w < 1 || w > 3 {
			t.Fatalf("Generate(%q)=%q has %d words", in, got, w)
		}
		if strings.TrimSpace(got) != got {
			t.Fatalf("suggestion %q has surrounding whitespace", got)
		}
	}
}
