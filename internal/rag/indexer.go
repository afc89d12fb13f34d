package rag

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// IndexOptions configure one index build.
type IndexOptions struct {
	DocsPath     string
	Extensions   []string
	ChunkSize    int
	ChunkOverlap int
	Embedder     Embedder
	Store        Store
	Tokens       TokenCounter
	// Out receives progress lines in addition to the log. May be nil.
	Out io.Writer
}

// BuildIndex chunks every document under DocsPath, embeds each chunk and
// replaces the contents of Store. Embedding failures abort the build so a
// partial index is never written.
func BuildIndex(ctx context.Context, opts IndexOptions) (Manifest, error) {
	if opts.Embedder == nil || opts.Store == nil {
		return Manifest{}, fmt.Errorf("index build requires an embedder and a store")
	}
	if strings.TrimSpace(opts.DocsPath) == "" {
		return Manifest{}, fmt.Errorf("docsPath is required")
	}
	if opts.ChunkSize <= 0 {
		return Manifest{}, fmt.Errorf("chunkSize must be greater than zero")
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		return Manifest{}, fmt.Errorf("chunkOverlap must be zero or greater and smaller than chunkSize")
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = WordCounter{}
	}

	start := time.Now()
	status := func(format string, args ...any) {
		elapsed := time.Since(start).Truncate(time.Millisecond)
		msg := fmt.Sprintf("[%s] %s", elapsed, fmt.Sprintf(format, args...))
		log.Print(msg)
		if opts.Out != nil {
			fmt.Fprintln(opts.Out, msg)
		}
	}
	status("[RAG] Indexing documents: %s", opts.DocsPath)
	status("[RAG] Embedding model: %s (provider: %s)", opts.Embedder.Model(), opts.Embedder.Name())
	status("[RAG] Chunk size: %d runes, overlap: %d runes", opts.ChunkSize, opts.ChunkOverlap)

	files, err := discoverDocuments(opts.DocsPath, opts.Extensions)
	if err != nil {
		return Manifest{}, err
	}
	if len(files) == 0 {
		return Manifest{}, fmt.Errorf("no documents found under %s", opts.DocsPath)
	}
	status("[RAG] Discovered %d documents", len(files))

	manifest := Manifest{
		Provider:     opts.Embedder.Name(),
		Model:        opts.Embedder.Model(),
		ChunkSize:    opts.ChunkSize,
		ChunkOverlap: opts.ChunkOverlap,
		Tokenizer:    tokens.Name(),
	}
	var entries []IndexEntry
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Manifest{}, fmt.Errorf("read document %s: %w", path, err)
		}
		docName := documentName(opts.DocsPath, path)
		chunks := ChunkText(string(raw), opts.ChunkSize, opts.ChunkOverlap)
		if len(chunks) == 0 {
			status("[RAG] Skipping empty document: %s", docName)
			continue
		}
		manifest.Documents++
		status("[RAG] Chunked %s into %d chunks", docName, len(chunks))
		for idx, c := range chunks {
			vector, err := opts.Embedder.Embed(ctx, c.Text)
			if err != nil {
				return Manifest{}, fmt.Errorf("embed %s chunk %d: %w", docName, idx, err)
			}
			if manifest.Dimension == 0 {
				manifest.Dimension = len(vector)
			} else if len(vector) != manifest.Dimension {
				return Manifest{}, fmt.Errorf("embed %s chunk %d: dimension %d, expected %d", docName, idx, len(vector), manifest.Dimension)
			}
			count := tokens.Count(c.Text)
			manifest.ChunkTokens.Add(float64(count))
			entries = append(entries, IndexEntry{
				ChunkID:    fmt.Sprintf("%s:%d", docName, idx),
				Doc:        docName,
				Offset:     c.Offset,
				Text:       c.Text,
				Embedding:  vector,
				TokenCount: count,
			})
		}
	}
	if len(entries) == 0 {
		return Manifest{}, fmt.Errorf("documents under %s contain no text", opts.DocsPath)
	}

	manifest.Chunks = len(entries)
	manifest.BuiltAt = time.Now().UTC()
	if err := opts.Store.Replace(ctx, manifest, entries); err != nil {
		return Manifest{}, err
	}
	status("[RAG] Chunk %s: min %.0f, max %.0f, mean %.1f, stddev %.1f", tokens.Name(),
		manifest.ChunkTokens.Min, manifest.ChunkTokens.Max, manifest.ChunkTokens.Mean, manifest.ChunkTokens.StdDev())
	status("[RAG] Index complete: %d chunks from %d documents in %s", manifest.Chunks, manifest.Documents, time.Since(start).Truncate(time.Millisecond))
	return manifest, nil
}

// documentName is path relative to root with forward slashes, or the base
// name when root is the document itself.
func documentName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func discoverDocuments(root string, allowed []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("documents path: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	allowedMap := make(map[string]struct{}, len(allowed))
	for _, ext := range allowed {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowedMap[ext] = struct{}{}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if len(allowedMap) > 0 {
			if _, ok := allowedMap[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
