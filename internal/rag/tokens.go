package rag

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates the token length of a chunk for the index.
type TokenCounter interface {
	Count(text string) int
	Name() string
}

// WordCounter counts whitespace separated words.
type WordCounter struct{}

func (WordCounter) Count(text string) int { return len(strings.Fields(text)) }
func (WordCounter) Name() string          { return "words" }

// TiktokenCounter counts BPE tokens with a tiktoken encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *TiktokenCounter) Count(text string) int { return len(c.enc.Encode(text, nil, nil)) }
func (c *TiktokenCounter) Name() string          { return "tiktoken" }

// NewTokenCounter returns the counter named by the tokenizer setting. The
// tiktoken encoding is cl100k_base; its vocabulary is fetched on first use
// unless TIKTOKEN_CACHE_DIR points at a local copy.
func NewTokenCounter(name string) (TokenCounter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "words":
		return WordCounter{}, nil
	case "tiktoken":
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load tiktoken encoding: %w", err)
		}
		return &TiktokenCounter{enc: enc}, nil
	}
	return nil, fmt.Errorf("unknown tokenizer %q", name)
}
