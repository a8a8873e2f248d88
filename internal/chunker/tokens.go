package chunker

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const (
	DefaultEncoding = "cl100k_base"
	// WordEncoding selects WordCounter instead of a tiktoken vocabulary.
	WordEncoding = "words"
)

// TiktokenCounter counts tokens with a tiktoken encoding.
type TiktokenCounter struct {
	encoding string
	tke      *tiktoken.Tiktoken
}

// NewTiktokenCounter accepts an encoding name or a model name.
func NewTiktokenCounter(encodingOrModel string) (*TiktokenCounter, error) {
	if encodingOrModel == "" {
		encodingOrModel = DefaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encodingOrModel)
	if err != nil {
		var modelErr error
		tke, modelErr = tiktoken.EncodingForModel(encodingOrModel)
		if modelErr != nil {
			return nil, fmt.Errorf("failed to load encoding %q: %w", encodingOrModel, err)
		}
	}
	return &TiktokenCounter{encoding: encodingOrModel, tke: tke}, nil
}

func (c *TiktokenCounter) CountTokens(text string) int {
	return len(c.tke.Encode(text, nil, nil))
}

func (c *TiktokenCounter) Encoding() string { return c.encoding }

// WordCounter approximates tokens by whitespace-separated words. Used when
// the tiktoken vocabulary cannot be loaded (offline runs).
type WordCounter struct{}

func (WordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

// NewCounter returns a tiktoken counter for encodingOrModel, or WordCounter
// for WordEncoding.
func NewCounter(encodingOrModel string) (TokenCounter, error) {
	if encodingOrModel == WordEncoding {
		return WordCounter{}, nil
	}
	c, err := NewTiktokenCounter(encodingOrModel)
	if err != nil {
		return nil, err
	}
	return c, nil
}
