package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when the gemini provider is selected with an
// Ollama model name still configured.
const DefaultGeminiModel = "text-embedding-004"

// GeminiEmbedder embeds text through the Google generative AI API.
type GeminiEmbedder struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiEmbedder opens a client authenticated with apiKey.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiEmbedder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini embedding requires an API key (geminiAPIKey or GEOASSIST_GEMINIAPIKEY)")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiModel
	}
	return &GeminiEmbedder{client: client, model: model, timeout: timeout}, nil
}

func (e *GeminiEmbedder) Name() string  { return "gemini" }
func (e *GeminiEmbedder) Model() string { return e.model }
func (e *GeminiEmbedder) Close() error  { return e.client.Close() }

// Embed requests an embedding vector for text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	res, err := e.client.EmbeddingModel(e.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding response returned empty vector")
	}
	out := make([]float64, len(res.Embedding.Values))
	for i, v := range res.Embedding.Values {
		out[i] = float64(v)
	}
	return out, nil
}
