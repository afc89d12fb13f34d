package rag

import (
	"time"

	"github.com/mwiater/geoassist/internal/aggregate"
)

// IndexEntry is a single JSONL record in the semantic index.
type IndexEntry struct {
	ChunkID    string    `json:"chunk_id"`
	Doc        string    `json:"doc"`
	Offset     int       `json:"offset"`
	Text       string    `json:"text"`
	Embedding  []float64 `json:"embedding"`
	TokenCount int       `json:"token_count"`
}

// RetrievedChunk is a chunk plus similarity score.
type RetrievedChunk struct {
	Entry IndexEntry `json:"entry"`
	Score float64    `json:"score"`
}

// Manifest describes how an index was built. Retrieval compares it with the
// running configuration and warns when the embedding model differs.
type Manifest struct {
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Dimension    int       `json:"dimension"`
	ChunkSize    int       `json:"chunk_size"`
	ChunkOverlap int       `json:"chunk_overlap"`
	Tokenizer    string    `json:"tokenizer"`
	Documents    int       `json:"documents"`
	Chunks       int       `json:"chunks"`
	// ChunkTokens summarises the token count of every chunk.
	ChunkTokens aggregate.RunningStat `json:"chunk_tokens"`
	BuiltAt     time.Time             `json:"built_at"`
}
