package rag

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// keywordEmbedder maps text onto counts of a few fixed words so similarity
// is predictable.
type keywordEmbedder struct {
	model string
	fail  bool
}

var keywords = []string{"solar", "water", "soil", "slope"}

func (k keywordEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if k.fail {
		return nil, errors.New("embedding backend down")
	}
	lower := strings.ToLower(text)
	vec := make([]float64, len(keywords)+1)
	for i, w := range keywords {
		vec[i] = float64(strings.Count(lower, w))
	}
	vec[len(keywords)] = 0.1
	return vec, nil
}
func (k keywordEmbedder) Name() string  { return "test" }
func (k keywordEmbedder) Model() string { return k.model }
func (k keywordEmbedder) Close() error  { return nil }

func writeDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"solar.txt":       "Solar irradiance maps. Solar panels need flat land.",
		"hydro/water.txt": "Water bodies and water tables.",
		"soil.txt":        "Soil texture and soil depth explained.",
		"notes.md":        "solar solar solar",
		"empty.txt":       "   \n",
		".hidden/x.txt":   "solar",
	}
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestBuildIndexAndSearch(t *testing.T) {
	docs := writeDocs(t)
	indexPath := filepath.Join(t.TempDir(), "index", "docs.jsonl")
	store := NewFileStore(indexPath)
	var out bytes.Buffer

	m, err := BuildIndex(context.Background(), IndexOptions{
		DocsPath:     docs,
		Extensions:   []string{"txt"},
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Embedder:     keywordEmbedder{model: "kw"},
		Store:        store,
		Out:          &out,
	})
	if err != nil {
		t.Fatalf("BuildIndex error: %v", err)
	}
	if m.Documents != 3 || m.Chunks != 3 || m.Dimension != len(keywords)+1 || m.Model != "kw" || m.Tokenizer != "words" {
		t.Fatalf("unexpected manifest %+v", m)
	}
	if !strings.Contains(out.String(), "[RAG] Index complete") {
		t.Fatalf("expected progress output, got %q", out.String())
	}

	// a fresh store reads what the build wrote
	reloaded := NewFileStore(indexPath)
	if n, err := reloaded.Len(); err != nil || n != 3 {
		t.Fatalf("expected 3 entries on disk, got %d %v", n, err)
	}
	saved, ok, err := reloaded.Manifest(context.Background())
	if err != nil || !ok || saved.Chunks != 3 {
		t.Fatalf("unexpected manifest on disk %+v %v %v", saved, ok, err)
	}
	if saved.ChunkTokens.Count != 3 || saved.ChunkTokens.Min > saved.ChunkTokens.Max {
		t.Fatalf("unexpected chunk token stats %+v", saved.ChunkTokens)
	}

	r := NewRetriever(keywordEmbedder{model: "kw"}, reloaded, 3)
	got, err := r.Search(context.Background(), "where is water", 1)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 1 || got[0].Entry.Doc != "hydro/water.txt" {
		t.Fatalf("expected hydro/water.txt, got %+v", got)
	}
	if got[0].Entry.ChunkID != "hydro/water.txt:0" || got[0].Entry.TokenCount != 5 {
		t.Fatalf("unexpected entry metadata %+v", got[0].Entry)
	}

	all, err := r.Search(context.Background(), "solar", 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected default k=3 results, got %d %v", len(all), err)
	}
	if all[0].Entry.Doc != "solar.txt" {
		t.Fatalf("expected solar.txt first, got %s", all[0].Entry.Doc)
	}

	capped, err := r.Search(context.Background(), "solar", 10)
	if err != nil || len(capped) != 3 {
		t.Fatalf("expected k capped at index size, got %d %v", len(capped), err)
	}
	if !strings.Contains(FormatResults(capped[:1], 10), "Result 1 [solar.txt") {
		t.Fatalf("unexpected formatted result %q", FormatResults(capped[:1], 10))
	}
	if docs := Sources(capped); len(docs) != 3 {
		t.Fatalf("expected 3 sources, got %v", docs)
	}
}

func TestBuildIndexFailures(t *testing.T) {
	docs := writeDocs(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "docs.jsonl"))
	base := IndexOptions{DocsPath: docs, Extensions: []string{".txt"}, ChunkSize: 100, ChunkOverlap: 10, Embedder: keywordEmbedder{}, Store: store}

	failing := base
	failing.Embedder = keywordEmbedder{fail: true}
	if _, err := BuildIndex(context.Background(), failing); err == nil {
		t.Fatal("expected embedding failure to abort the build")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(store.path), "docs.jsonl")); !os.IsNotExist(err) {
		t.Fatalf("expected no index file after a failed build, got %v", err)
	}

	badOverlap := base
	badOverlap.ChunkOverlap = 100
	if _, err := BuildIndex(context.Background(), badOverlap); err == nil {
		t.Fatal("expected overlap validation error")
	}

	noDocs := base
	noDocs.Extensions = []string{".pdf"}
	if _, err := BuildIndex(context.Background(), noDocs); err == nil {
		t.Fatal("expected error when no documents match")
	}
}

func TestRetrieverErrors(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.jsonl"))
	r := NewRetriever(keywordEmbedder{}, store, 0)
	if _, err := r.Search(context.Background(), "  ", 1); err == nil {
		t.Fatal("expected empty query error")
	}
	if _, err := r.Search(context.Background(), "solar", 1); err == nil {
		t.Fatal("expected missing index error")
	}
	// no manifest is only a warning
	r.CheckManifest(context.Background())
}

func TestScoreEntriesOrdersBySimilarity(t *testing.T) {
	entries := []IndexEntry{
		{Doc: "a", Embedding: []float64{1, 0}},
		{Doc: "b", Embedding: []float64{0, 1}},
		{Doc: "c", Embedding: []float64{1, 1}},
		{Doc: "short", Embedding: []float64{1}},
	}
	chunks := scoreEntries(entries, []float64{1, 0})
	if len(chunks) != 3 {
		t.Fatalf("expected mismatched dimension to be skipped, got %d", len(chunks))
	}
	if chunks[0].Entry.Doc != "a" || chunks[1].Entry.Doc != "c" {
		t.Fatalf("unexpected order %s %s", chunks[0].Entry.Doc, chunks[1].Entry.Doc)
	}
}
