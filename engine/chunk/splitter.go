package chunk

import (
	"strings"

	"github.com/PitchlineAI/pitchline-mvp/engine/domain"
)

const (
	// DefaultChunkSize is the maximum number of tokens per chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of tokens shared between
	// consecutive chunks.
	DefaultChunkOverlap = 200
)

// separators are tried in order: paragraph, line, sentence, word. A hard
// character cut is the last resort when none of them fits the budget.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter produces overlapping token-bounded segments. LenFunc measures a
// segment's cost against ChunkSize; it must be deterministic and monotonic
// with text length.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	LenFunc      func(string) int
}

// NewSplitter creates a Splitter with the default budget.
func NewSplitter(lenFunc func(string) int) *Splitter {
	return &Splitter{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		LenFunc:      lenFunc,
	}
}

// Piece is one chunk of a source document: its text, the dense zero-based
// index within the document, and the loader metadata copied through.
type Piece struct {
	Content  string
	Index    int
	Metadata map[string]any
}

// Split segments text into chunks of at most ChunkSize tokens, consecutive
// chunks sharing roughly ChunkOverlap trailing tokens. An empty document
// yields no chunks; a document within budget yields exactly one.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	size := s.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := s.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}
	frags := s.fragments(text, separators, size)
	return s.merge(frags, size, overlap)
}

// SplitDocument chunks every loaded section in order, copying each
// section's metadata onto its chunks and numbering chunks densely across
// the whole document.
func (s *Splitter) SplitDocument(sections []domain.Section) []Piece {
	var pieces []Piece
	idx := 0
	for _, sec := range sections {
		for _, content := range s.Split(sec.Text) {
			pieces = append(pieces, Piece{
				Content:  content,
				Index:    idx,
				Metadata: cloneMeta(sec.Metadata),
			})
			idx++
		}
	}
	return pieces
}

// fragments recursively splits text on the first separator present until
// every fragment fits the token budget. Separators stay attached to the
// preceding fragment so concatenating fragments reconstructs the input.
func (s *Splitter) fragments(text string, seps []string, size int) []string {
	if s.LenFunc(text) <= size {
		return []string{text}
	}
	if len(seps) == 0 {
		return s.hardCut(text, size)
	}
	sep, rest := seps[0], seps[1:]
	if !strings.Contains(text, sep) {
		return s.fragments(text, rest, size)
	}
	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if s.LenFunc(part) > size {
			out = append(out, s.fragments(part, rest, size)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// hardCut slices text at character boundaries into the largest prefixes
// that fit the budget. Monotonicity of LenFunc makes the binary search
// valid.
func (s *Splitter) hardCut(text string, size int) []string {
	var out []string
	runes := []rune(text)
	for len(runes) > 0 {
		if s.LenFunc(string(runes)) <= size {
			out = append(out, string(runes))
			break
		}
		// Invariant: runes[:lo] fits, runes[:hi] does not.
		lo, hi := 1, len(runes)
		for lo+1 < hi {
			mid := (lo + hi) / 2
			if s.LenFunc(string(runes[:mid])) <= size {
				lo = mid
			} else {
				hi = mid
			}
		}
		out = append(out, string(runes[:lo]))
		runes = runes[lo:]
	}
	return out
}

// merge packs fragments into chunks up to the budget, then walks back from
// each chunk boundary to carry ~overlap tokens of trailing context into the
// next chunk.
func (s *Splitter) merge(frags []string, size, overlap int) []string {
	var chunks []string
	start := 0
	for start < len(frags) {
		var b strings.Builder
		tokens := 0
		end := start
		for end < len(frags) {
			n := s.LenFunc(frags[end])
			if tokens+n > size && tokens > 0 {
				break
			}
			b.WriteString(frags[end])
			tokens += n
			end++
		}
		chunks = append(chunks, b.String())
		if end >= len(frags) {
			break
		}
		overlapTokens := 0
		newStart := end
		for newStart > start && overlapTokens < overlap {
			overlapTokens += s.LenFunc(frags[newStart-1])
			newStart--
		}
		if newStart == start {
			// The whole chunk would repeat; skip the overlap to make progress.
			start = end
		} else {
			start = newStart
		}
	}
	return chunks
}

func cloneMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
