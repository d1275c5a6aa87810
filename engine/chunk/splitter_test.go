package chunk

import (
	"strings"
	"testing"

	"github.com/PitchlineAI/pitchline-mvp/engine/domain"
)

// wordCount stands in for the token counter: deterministic, monotonic, and
// cheap enough to exercise the splitter without the BPE registry.
func wordCount(s string) int { return len(strings.Fields(s)) }

func TestSplit_Empty(t *testing.T) {
	s := NewSplitter(wordCount)
	if got := s.Split(""); got != nil {
		t.Fatalf("expected no chunks, got %v", got)
	}
	if got := s.Split("   \n\t "); got != nil {
		t.Fatalf("expected no chunks for whitespace, got %v", got)
	}
}

func TestSplit_ShortDocumentSingleChunk(t *testing.T) {
	s := NewSplitter(wordCount)
	chunks := s.Split("a short document well under the budget")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "a short document well under the budget" {
		t.Fatalf("chunk altered: %q", chunks[0])
	}
}

func TestSplit_BoundAndOverlap(t *testing.T) {
	s := &Splitter{ChunkSize: 4, ChunkOverlap: 2, LenFunc: wordCount}
	chunks := s.Split("a b c d e f g h i j")

	want := []string{"a b c d ", "c d e f ", "e f g h ", "g h i j"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
	for i, c := range chunks {
		if n := wordCount(c); n > 4 {
			t.Errorf("chunk %d has %d tokens, budget 4", i, n)
		}
		if i > 0 {
			// Trailing context of the previous chunk opens the next one.
			if !strings.HasSuffix(chunks[i-1], chunks[i][:4]) {
				t.Errorf("chunks %d and %d share no overlap: %q / %q", i-1, i, chunks[i-1], c)
			}
		}
	}
}

func TestSplit_ReconstructsOriginal(t *testing.T) {
	s := &Splitter{ChunkSize: 6, ChunkOverlap: 2, LenFunc: wordCount}
	text := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen"
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Concatenating each chunk's unique span must rebuild the input.
	rebuilt := chunks[0]
	for i := 1; i < len(chunks); i++ {
		overlap := 0
		for k := len(chunks[i]); k > 0; k-- {
			if strings.HasSuffix(rebuilt, chunks[i][:k]) {
				overlap = k
				break
			}
		}
		rebuilt += chunks[i][overlap:]
	}
	if rebuilt != text {
		t.Fatalf("reconstruction mismatch:\n got %q\nwant %q", rebuilt, text)
	}
}

func TestSplit_ParagraphBoundariesPreferred(t *testing.T) {
	s := &Splitter{ChunkSize: 5, ChunkOverlap: 0, LenFunc: wordCount}
	text := "first paragraph has four words\n\nsecond one is shorter"
	chunks := s.Split(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if !strings.HasPrefix(chunks[1], "second") {
		t.Fatalf("second chunk should start at the paragraph break: %q", chunks[1])
	}
}

func TestSplit_HardCutWithoutSeparators(t *testing.T) {
	s := &Splitter{ChunkSize: 4, ChunkOverlap: 0, LenFunc: func(t string) int { return len([]rune(t)) }}
	chunks := s.Split(strings.Repeat("a", 10))
	want := []string{"aaaa", "aaaa", "aa"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplitDocument_MetadataAndDenseIndex(t *testing.T) {
	s := &Splitter{ChunkSize: 3, ChunkOverlap: 0, LenFunc: wordCount}
	sections := []domain.Section{
		{Text: "alpha beta gamma delta", Metadata: map[string]any{"page": 1, "source": "doc.pdf"}},
		{Text: "epsilon zeta", Metadata: map[string]any{"page": 2, "source": "doc.pdf"}},
	}
	pieces := s.SplitDocument(sections)
	if len(pieces) != 3 {
		t.Fatalf("expected 3 pieces, got %d", len(pieces))
	}
	for i, p := range pieces {
		if p.Index != i {
			t.Errorf("piece %d has index %d", i, p.Index)
		}
		if p.Metadata["source"] != "doc.pdf" {
			t.Errorf("piece %d missing loader metadata: %v", i, p.Metadata)
		}
	}
	if pieces[0].Metadata["page"] != 1 || pieces[2].Metadata["page"] != 2 {
		t.Fatalf("page metadata not carried per section: %v", pieces)
	}

	// Metadata maps must be independent copies.
	pieces[0].Metadata["page"] = 99
	if sections[0].Metadata["page"] != 1 {
		t.Fatal("splitter aliased the section metadata map")
	}
}

func TestSplitDocument_EmptySections(t *testing.T) {
	s := NewSplitter(wordCount)
	pieces := s.SplitDocument([]domain.Section{{Text: "", Metadata: nil}})
	if len(pieces) != 0 {
		t.Fatalf("expected no pieces, got %d", len(pieces))
	}
}
