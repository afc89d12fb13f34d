package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Embedder turns text into a vector. Implementations are safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	// Name is the provider name recorded in the index manifest.
	Name() string
	Model() string
	Close() error
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// OllamaEmbedder calls the /api/embeddings endpoint of an Ollama host.
type OllamaEmbedder struct {
	client  *http.Client
	host    string
	model   string
	timeout time.Duration
}

// NewOllamaEmbedder returns an embedder for model served at host.
func NewOllamaEmbedder(host, model string, timeout time.Duration) *OllamaEmbedder {
	return &OllamaEmbedder{
		client:  &http.Client{Timeout: timeout},
		host:    strings.TrimRight(host, "/"),
		model:   model,
		timeout: timeout,
	}
}

func (e *OllamaEmbedder) Name() string  { return "ollama" }
func (e *OllamaEmbedder) Model() string { return e.model }
func (e *OllamaEmbedder) Close() error  { return nil }

// Embed requests an embedding vector for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(e.model) == "" {
		return nil, fmt.Errorf("embedding model is empty")
	}
	payload := map[string]any{
		"model":  e.model,
		"prompt": text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding request failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response returned empty vector")
	}

	return parsed.Embedding, nil
}
