package postprocessors

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

func windows(t *testing.T, config ChunkConfig, text string) []driven.Chunk {
	t.Helper()
	c, err := NewChunker(config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c.Process([]driven.Chunk{{Content: text}})
}

func TestChunkConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ChunkConfig
		wantErr bool
	}{
		{"defaults", DefaultChunkConfig(), false},
		{"zero size", ChunkConfig{ChunkSize: 0, Overlap: 0}, true},
		{"zero overlap", ChunkConfig{ChunkSize: 100, Overlap: 0}, true},
		{"negative overlap", ChunkConfig{ChunkSize: 100, Overlap: -1}, true},
		{"overlap equals size", ChunkConfig{ChunkSize: 100, Overlap: 100}, true},
		{"overlap above size", ChunkConfig{ChunkSize: 100, Overlap: 150}, true},
		{"negative minimum", ChunkConfig{ChunkSize: 100, Overlap: 10, MinChunkChars: -1}, true},
		{"minimal valid", ChunkConfig{ChunkSize: 2, Overlap: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultChunkConfig(t *testing.T) {
	c := DefaultChunkConfig()
	if c.ChunkSize != 400 || c.Overlap != 50 {
		t.Errorf("unexpected window defaults %+v", c)
	}
	if c.MinChunkChars != 100 || c.MinChunkWords != 10 {
		t.Errorf("unexpected quality defaults %+v", c)
	}
}

func TestChunker_NameOrder(t *testing.T) {
	c, _ := NewChunker(DefaultChunkConfig())
	if c.Name() != "chunker" {
		t.Errorf("unexpected name %s", c.Name())
	}
	if c.Order() != 0 {
		t.Errorf("expected order 0, got %d", c.Order())
	}
}

// A 700 rune text with a single space at 280 and no terminators: the first
// window snaps back to the space and the second starts overlap runes earlier.
func TestChunker_SnapsToSpaceWithoutTerminators(t *testing.T) {
	text := []rune(strings.Repeat("x", 700))
	text[280] = ' '

	got := windows(t, ChunkConfig{ChunkSize: 300, Overlap: 50}, string(text))

	expected := [][2]int{{0, 280}, {230, 530}, {480, 700}}
	if len(got) != len(expected) {
		t.Fatalf("expected %d windows, got %d: %+v", len(expected), len(got), got)
	}
	for i, w := range expected {
		if got[i].StartOffset != w[0] || got[i].EndOffset != w[1] {
			t.Errorf("window %d: expected [%d,%d), got [%d,%d)", i, w[0], w[1], got[i].StartOffset, got[i].EndOffset)
		}
	}
}

func TestChunker_PrefersTerminator(t *testing.T) {
	// terminator at 200 is past a third of the window, space at 250 past half
	text := []rune(strings.Repeat("y", 700))
	text[200] = '.'
	text[250] = ' '

	got := windows(t, ChunkConfig{ChunkSize: 300, Overlap: 50}, string(text))
	if got[0].EndOffset != 201 {
		t.Errorf("expected cut just after terminator at 201, got %d", got[0].EndOffset)
	}
	if got[1].StartOffset != 151 {
		t.Errorf("expected second window at 151, got %d", got[1].StartOffset)
	}
}

func TestChunker_TerminatorTooEarlyFallsBackToSpace(t *testing.T) {
	text := []rune(strings.Repeat("z", 700))
	text[50] = '!'
	text[200] = ' '

	got := windows(t, ChunkConfig{ChunkSize: 300, Overlap: 50}, string(text))
	if got[0].EndOffset != 200 {
		t.Errorf("expected cut at the space, got %d", got[0].EndOffset)
	}
}

func TestChunker_HardCut(t *testing.T) {
	text := strings.Repeat("a", 650)

	got := windows(t, ChunkConfig{ChunkSize: 300, Overlap: 50}, text)
	if got[0].EndOffset != 300 {
		t.Errorf("expected hard cut at 300, got %d", got[0].EndOffset)
	}
}

func TestChunker_NoSnapWhenBoundaryIsWhitespace(t *testing.T) {
	text := []rune(strings.Repeat("b", 700))
	text[150] = '.'
	text[300] = ' '

	got := windows(t, ChunkConfig{ChunkSize: 300, Overlap: 50}, string(text))
	if got[0].EndOffset != 300 {
		t.Errorf("expected window kept at 300 when next rune is a space, got %d", got[0].EndOffset)
	}
}

func TestChunker_ShortTextSingleWindow(t *testing.T) {
	got := windows(t, ChunkConfig{ChunkSize: 300, Overlap: 50}, "  a short document  ")
	if len(got) != 1 {
		t.Fatalf("expected 1 window, got %d", len(got))
	}
	if got[0].Content != "a short document" {
		t.Errorf("expected trimmed content, got %q", got[0].Content)
	}
}

func TestChunker_BelowMinimumYieldsNothing(t *testing.T) {
	got := windows(t, ChunkConfig{ChunkSize: 300, Overlap: 50, MinChunkChars: 40}, "   brief   ")
	if len(got) != 0 {
		t.Errorf("expected no windows, got %d", len(got))
	}
}

func TestChunker_RuneIndexed(t *testing.T) {
	text := strings.Repeat("ü", 25)
	got := windows(t, ChunkConfig{ChunkSize: 10, Overlap: 2}, text)

	for _, c := range got {
		if n := len([]rune(c.Content)); n > 10 {
			t.Errorf("window holds %d runes, want at most 10", n)
		}
	}
	if last := got[len(got)-1]; last.EndOffset != 25 {
		t.Errorf("expected last window to end at 25, got %d", last.EndOffset)
	}
}

// Termination and coverage over adversarial inputs: strings with no spaces,
// only terminators, dense spaces and mixed punctuation.
func TestChunker_TerminationAndCoverage(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabets := []string{"a", "a ", ".", "..!? ", "ab. cd! ef? ", " ", "—ü ", "a\n\tb"}

	for iter := 0; iter < 500; iter++ {
		size := 2 + rng.Intn(60)
		overlap := 1 + rng.Intn(size-1)
		alphabet := []rune(alphabets[rng.Intn(len(alphabets))])

		length := rng.Intn(400)
		text := make([]rune, length)
		for i := range text {
			text[i] = alphabet[rng.Intn(len(alphabet))]
		}

		got := windows(t, ChunkConfig{ChunkSize: size, Overlap: overlap}, string(text))
		if length == 0 || strings.TrimSpace(string(text)) == "" {
			continue
		}

		if len(got) > length+1 {
			t.Fatalf("size=%d overlap=%d: %d windows for %d runes", size, overlap, len(got), length)
		}

		covered := 0
		prevStart := -1
		for i, w := range got {
			if w.StartOffset <= prevStart {
				t.Fatalf("size=%d overlap=%d: cursor did not advance at window %d", size, overlap, i)
			}
			if w.StartOffset > covered {
				t.Fatalf("size=%d overlap=%d: gap [%d,%d)", size, overlap, covered, w.StartOffset)
			}
			if w.EndOffset <= w.StartOffset || w.EndOffset-w.StartOffset > size {
				t.Fatalf("size=%d overlap=%d: bad window [%d,%d)", size, overlap, w.StartOffset, w.EndOffset)
			}
			if w.EndOffset > covered {
				covered = w.EndOffset
			}
			prevStart = w.StartOffset
		}
		if covered != length {
			t.Fatalf("size=%d overlap=%d: covered %d of %d runes", size, overlap, covered, length)
		}
	}
}
