package rag

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/mwiater/geoassist/internal/logging"
)

// Retriever embeds queries and looks up their nearest chunks.
type Retriever struct {
	embedder Embedder
	store    Store
	topK     int
}

// NewRetriever returns a retriever that answers with topK chunks by default.
func NewRetriever(embedder Embedder, store Store, topK int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

// CheckManifest warns when the index was built with a different embedding
// model than the one configured now. Scores from mismatched models are
// meaningless, but the index is still used.
func (r *Retriever) CheckManifest(ctx context.Context) {
	m, ok, err := r.store.Manifest(ctx)
	if err != nil {
		logging.Warnf("[RAG] could not read index manifest: %v", err)
		return
	}
	if !ok {
		logging.Warnf("[RAG] index has no manifest; embedding model cannot be verified")
		return
	}
	if m.Model != r.embedder.Model() || m.Provider != r.embedder.Name() {
		logging.Warnf("[RAG] index was built with %s/%s but queries use %s/%s; rebuild the index",
			m.Provider, m.Model, r.embedder.Name(), r.embedder.Model())
	}
}

// Search returns the k chunks closest to query. k <= 0 uses the default.
// There is no relevance threshold: a non-empty index always yields results.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if k <= 0 {
		k = r.topK
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.store.Search(ctx, vec, k)
}

func loadIndex(path string) ([]IndexEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	var entries []IndexEntry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry IndexEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("parse index line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	return entries, nil
}

// scoreEntries ranks entries by cosine similarity to queryVec. Entries of a
// different dimension are skipped; ties keep index order.
func scoreEntries(entries []IndexEntry, queryVec []float64) []RetrievedChunk {
	chunks := make([]RetrievedChunk, 0, len(entries))
	queryNorm := vectorNorm(queryVec)
	for _, entry := range entries {
		if len(entry.Embedding) != len(queryVec) {
			continue
		}
		score := cosineSimilarity(queryVec, entry.Embedding, queryNorm)
		chunks = append(chunks, RetrievedChunk{
			Entry: entry,
			Score: score,
		})
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})

	return chunks
}

func cosineSimilarity(a, b []float64, normA float64) float64 {
	if normA == 0 {
		return 0
	}
	normB := vectorNorm(b)
	if normB == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (normA * normB)
}

func vectorNorm(v []float64) float64 {
	sum := 0.0
	for _, val := range v {
		sum += val * val
	}
	return math.Sqrt(sum)
}
