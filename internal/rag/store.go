package rag

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mwiater/geoassist/internal/util"
)

// Store persists index entries and answers nearest-neighbour queries.
type Store interface {
	// Replace discards the current index and stores entries with m.
	Replace(ctx context.Context, m Manifest, entries []IndexEntry) error
	// Search returns up to k entries ordered by descending cosine similarity.
	Search(ctx context.Context, query []float64, k int) ([]RetrievedChunk, error)
	// Manifest returns the stored manifest; ok is false when none was written.
	Manifest(ctx context.Context) (m Manifest, ok bool, err error)
	Close() error
}

// FileStore keeps the index as JSONL on disk and searches it in memory.
type FileStore struct {
	path string

	mu      sync.Mutex
	entries []IndexEntry
	loaded  bool
}

// NewFileStore returns a store backed by the JSONL file at path. Nothing is
// read until the first search.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// ManifestPath is where the manifest of the index at indexPath lives:
// "index/docs.jsonl" is described by "index/docs.meta.json".
func ManifestPath(indexPath string) string {
	return strings.TrimSuffix(indexPath, filepath.Ext(indexPath)) + ".meta.json"
}

func (s *FileStore) Replace(ctx context.Context, m Manifest, entries []IndexEntry) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create index directory: %w", err)
		}
	}
	out, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer out.Close()

	writer := bufio.NewWriter(out)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := encoder.Encode(entry); err != nil {
			return fmt.Errorf("write index entry: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush index: %w", err)
	}

	meta, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := util.WriteFile(ManifestPath(s.path), append(meta, '\n')); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	s.mu.Lock()
	s.entries = append([]IndexEntry(nil), entries...)
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *FileStore) load() ([]IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		entries, err := loadIndex(s.path)
		if err != nil {
			return nil, err
		}
		s.entries = entries
		s.loaded = true
	}
	return s.entries, nil
}

// Len returns the number of entries in the index.
func (s *FileStore) Len() (int, error) {
	entries, err := s.load()
	return len(entries), err
}

func (s *FileStore) Search(ctx context.Context, query []float64, k int) ([]RetrievedChunk, error) {
	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("index contains no entries")
	}
	chunks := scoreEntries(entries, query)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no index entries match the query dimension %d", len(query))
	}
	if k > len(chunks) {
		k = len(chunks)
	}
	return chunks[:k], nil
}

func (s *FileStore) Manifest(ctx context.Context) (Manifest, bool, error) {
	data, err := os.ReadFile(ManifestPath(s.path))
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, false, fmt.Errorf("parse manifest: %w", err)
	}
	return m, true, nil
}

func (s *FileStore) Close() error { return nil }
