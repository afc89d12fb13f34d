// internal/providerfactory/factory.go
package providerfactory

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwiater/geoassist/internal/appconfig"
	"github.com/mwiater/geoassist/internal/logging"
	"github.com/mwiater/geoassist/internal/metrics"
	"github.com/mwiater/geoassist/internal/rag"
)

// NewEmbedder selects and configures the embedding provider named in the
// configuration and wraps it with metrics collection.
func NewEmbedder(ctx context.Context, cfg *appconfig.Config) (rag.Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	var embedder rag.Embedder
	switch provider := strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider)); provider {
	case "", "ollama":
		if strings.TrimSpace(cfg.EmbeddingHost) == "" {
			return nil, fmt.Errorf("embeddingHost is required for the ollama provider")
		}
		embedder = rag.NewOllamaEmbedder(cfg.EmbeddingHost, cfg.EmbeddingModel, cfg.RequestTimeout())
		logging.LogEvent("[RAG] Embedding provider ready: ollama %s at %s", cfg.EmbeddingModel, cfg.EmbeddingHost)
	case "gemini":
		model := cfg.EmbeddingModel
		if model == appconfig.Default().EmbeddingModel {
			model = rag.DefaultGeminiModel
		}
		gemini, err := rag.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, model, cfg.RequestTimeout())
		if err != nil {
			logging.LogEvent("[RAG] Gemini provider unavailable: %v", err)
			return nil, err
		}
		embedder = gemini
		logging.LogEvent("[RAG] Embedding provider ready: gemini %s", model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", provider)
	}

	return metrics.NewEmbedder(embedder), nil
}

// OpenStore opens the index backend named in the configuration.
func OpenStore(ctx context.Context, cfg *appconfig.Config) (rag.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}
	switch backend := strings.ToLower(strings.TrimSpace(cfg.IndexBackend)); backend {
	case "", "file":
		if strings.TrimSpace(cfg.IndexPath) == "" {
			return nil, fmt.Errorf("indexPath is required for the file index backend")
		}
		return rag.NewFileStore(cfg.IndexPath), nil
	case "pgvector":
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, fmt.Errorf("postgresDSN is required for the pgvector index backend")
		}
		store, err := rag.NewPgStore(ctx, cfg.PostgresDSN)
		if err != nil {
			logging.LogEvent("[RAG] pgvector backend unavailable: %v", err)
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported index backend %q", backend)
	}
}

// NewRetriever wires the configured embedder and store into a retriever.
// The caller closes both through the returned function.
func NewRetriever(ctx context.Context, cfg *appconfig.Config) (*rag.Retriever, func(), error) {
	embedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		_ = embedder.Close()
		return nil, nil, err
	}
	closeFn := func() {
		_ = store.Close()
		_ = embedder.Close()
	}
	return rag.NewRetriever(embedder, store, cfg.RetrievalTopK()), closeFn, nil
}
