// Package chunk splits document text into overlapping token-bounded
// segments for embedding. Chunk sizes are measured by a pluggable length
// function; the default counts tokens with the cl100k_base encoding used by
// the GPT-4 model family.
package chunk

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const tokenEncoding = "cl100k_base"

// TokenCounter measures text length in model tokens. It is deterministic
// and monotonic: appending text never decreases the count.
type TokenCounter struct {
	tok *tiktoken.Tiktoken
}

// NewTokenCounter loads the BPE encoder once; reuse the counter across all
// chunking operations.
func NewTokenCounter() (*TokenCounter, error) {
	tok, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("chunk: load %s encoding: %w", tokenEncoding, err)
	}
	return &TokenCounter{tok: tok}, nil
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	return len(c.tok.Encode(text, nil, nil))
}
