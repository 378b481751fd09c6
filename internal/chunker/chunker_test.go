package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := New()
		if c.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, c.ChunkSize())
		}
		if c.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, c.Overlap())
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		c := New(WithChunkSize(100), WithOverlap(150))
		if c.Overlap() != 25 {
			t.Errorf("expected overlap reduced to 25, got %d", c.Overlap())
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		c := New(WithChunkSize(0), WithOverlap(-1))
		if c.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", c.ChunkSize())
		}
		if c.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", c.Overlap())
		}
	})
}

// TestSplit_Empty verifies blank input produces no chunks.
func TestSplit_Empty(t *testing.T) {
	c := New()
	for _, input := range []string{"", "   ", "\n\n\n", "\t \n"} {
		if chunks := c.Split(input); len(chunks) != 0 {
			t.Errorf("Split(%q): expected 0 chunks, got %d", input, len(chunks))
		}
	}
	if chunks := c.SplitPages(nil); len(chunks) != 0 {
		t.Errorf("SplitPages(nil): expected 0 chunks, got %d", len(chunks))
	}
}

// TestSplit_ShortText keeps text under the limit in one chunk.
func TestSplit_ShortText(t *testing.T) {
	c := New(WithChunkSize(200), WithOverlap(20))
	chunks := c.Split("First paragraph.\n\nSecond paragraph.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("unexpected chunk %q", chunks[0])
	}
}

// TestSplit_PrefersParagraphs splits at paragraph breaks before anything else.
func TestSplit_PrefersParagraphs(t *testing.T) {
	para1 := strings.Repeat("alpha ", 8) + "end."
	para2 := strings.Repeat("beta ", 8) + "end."
	para3 := strings.Repeat("gamma ", 8) + "end."
	input := para1 + "\n\n" + para2 + "\n\n" + para3

	c := New(WithChunkSize(60), WithOverlap(0))
	chunks := c.Split(input)

	expected := []string{para1, para2, para3}
	if len(chunks) != len(expected) {
		t.Fatalf("expected %d chunks, got %d: %q", len(expected), len(chunks), chunks)
	}
	for i := range expected {
		if chunks[i] != expected[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, expected[i], chunks[i])
		}
	}
}

// TestSplit_FallsBackToLines uses line breaks when a paragraph is too long.
func TestSplit_FallsBackToLines(t *testing.T) {
	lines := []string{
		"line one has some words",
		"line two has some words",
		"line three has words",
	}
	input := strings.Join(lines, "\n")

	c := New(WithChunkSize(30), WithOverlap(0))
	chunks := c.Split(input)

	if len(chunks) != len(lines) {
		t.Fatalf("expected %d chunks, got %d: %q", len(lines), len(chunks), chunks)
	}
	for i := range lines {
		if chunks[i] != lines[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, lines[i], chunks[i])
		}
	}
}

// TestSplit_NeverSplitsWordsWhenSpacesFit keeps whole words when a space boundary is available.
func TestSplit_NeverSplitsWordsWhenSpacesFit(t *testing.T) {
	input := strings.Repeat("word ", 100)

	c := New(WithChunkSize(50), WithOverlap(10))
	for _, chunk := range c.Split(input) {
		for _, w := range strings.Fields(chunk) {
			if w != "word" {
				t.Fatalf("chunk %q contains a split word %q", chunk, w)
			}
		}
	}
}

// TestSplit_MaxLength checks the size bound for mixed input, counting runes.
func TestSplit_MaxLength(t *testing.T) {
	input := strings.Repeat("Ünïcödé text with spaces. ", 40) + "\n\n" +
		strings.Repeat("x", 333) + "\n" +
		strings.Repeat("short line\n", 30)

	for _, size := range []int{10, 37, 100, 250} {
		c := New(WithChunkSize(size), WithOverlap(size/5))
		chunks := c.Split(input)
		if len(chunks) == 0 {
			t.Fatalf("size %d: expected chunks", size)
		}
		for i, chunk := range chunks {
			if n := utf8.RuneCountInString(chunk); n > size {
				t.Errorf("size %d: chunk %d has %d runes", size, i, n)
			}
			if strings.TrimSpace(chunk) == "" {
				t.Errorf("size %d: chunk %d is empty", size, i)
			}
		}
	}
}

// TestSplit_ExactOverlapOnCharacterCut verifies consecutive chunks share exactly the overlap.
func TestSplit_ExactOverlapOnCharacterCut(t *testing.T) {
	input := strings.Repeat("abcdefghij", 50) // 500 characters, no separators

	c := New(WithChunkSize(100), WithOverlap(20))
	chunks := c.Split(input)

	if len(chunks) != 6 {
		t.Fatalf("expected 6 chunks, got %d", len(chunks))
	}
	for i := 0; i+1 < len(chunks); i++ {
		if len(chunks[i]) != 100 {
			t.Errorf("chunk %d: expected 100 chars, got %d", i, len(chunks[i]))
		}
		tail := chunks[i][len(chunks[i])-20:]
		if !strings.HasPrefix(chunks[i+1], tail) {
			t.Errorf("chunk %d does not start with the last 20 chars of chunk %d", i+1, i)
		}
	}
}

// TestSplit_OverlapAtWordBoundaries carries trailing words into the next chunk.
func TestSplit_OverlapAtWordBoundaries(t *testing.T) {
	words := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		words = append(words, "w"+strings.Repeat(string(rune('a'+i%26)), 3))
	}
	input := strings.Join(words, " ")

	c := New(WithChunkSize(40), WithOverlap(10))
	chunks := c.Split(input)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	for i := 0; i+1 < len(chunks); i++ {
		prev := strings.Fields(chunks[i])
		next := strings.Fields(chunks[i+1])
		if prev[len(prev)-1] != next[0] && prev[len(prev)-1] != next[1] {
			t.Errorf("chunk %d does not carry the tail of chunk %d: %q / %q", i+1, i, chunks[i], chunks[i+1])
		}
	}
}

// TestSplitPages keeps page numbers and assigns document-wide indexes.
func TestSplitPages(t *testing.T) {
	pages := []Page{
		{Number: PageNumber(0), Text: "Page one text."},
		{Number: PageNumber(1), Text: "   "},
		{Number: PageNumber(2), Text: "Page three text."},
		{Number: nil, Text: "Unpaginated text."},
	}

	chunks := New().SplitPages(pages)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantPages := []string{"1", "3", "unknown"}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, chunk.Index)
		}
		if got := PageLabel(chunk.Page); got != wantPages[i] {
			t.Errorf("chunk %d: expected page label %q, got %q", i, wantPages[i], got)
		}
		if chunk.DocID != "" || chunk.SourceFile != "" {
			t.Errorf("chunk %d: document metadata should be attached by the caller", i)
		}
	}

	// Page numbers are copied, not shared with the input
	*pages[0].Number = 99
	if *chunks[0].Page != 0 {
		t.Errorf("chunk page number aliases the input page")
	}
}

func TestPageLabel(t *testing.T) {
	if got := PageLabel(nil); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
	if got := PageLabel(PageNumber(1)); got != "2" {
		t.Errorf("expected 2, got %q", got)
	}
}
