package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures text in tokens of the embedding model's vocabulary.
// Implementations must be deterministic and safe for concurrent use.
type TokenCounter interface {
	// Count returns the number of tokens in text. Empty text counts zero.
	Count(text string) int
	// Tail returns the text decoded from the trailing n tokens. When text has
	// n tokens or fewer the whole text is returned.
	Tail(text string, n int) string
}

// TiktokenCounter counts BPE tokens via tiktoken. It is stateless after
// construction and safe to share across concurrent chunking calls.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter resolves the tokenizer for the given embedding model
// identifier. The name is first looked up as a model, then as a raw encoding
// name (e.g. "cl100k_base"). Construction fails when no encoding is found:
// a character-count approximation would silently break the token budget, so
// there is no fallback.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(model)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: no encoding for %q: %v", ErrTokenizer, model, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the BPE token count of text.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Tail decodes the trailing n tokens of text back into a string.
func (c *TiktokenCounter) Tail(text string, n int) string {
	if n <= 0 || text == "" {
		return ""
	}
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= n {
		return text
	}
	return c.enc.Decode(tokens[len(tokens)-n:])
}
