// internal/metrics/embedder.go
package metrics

import (
	"context"
	"time"

	"github.com/mwiater/geoassist/internal/rag"
)

// Embedder is a decorator that wraps a rag.Embedder to record request counts
// and latency.
type Embedder struct {
	wrapped rag.Embedder
}

// NewEmbedder wraps an existing embedder.
func NewEmbedder(wrapped rag.Embedder) *Embedder {
	return &Embedder{wrapped: wrapped}
}

// Embed times the wrapped call and counts it by outcome.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	provider := e.wrapped.Name()
	start := time.Now()
	vec, err := e.wrapped.Embed(ctx, text)
	EmbeddingDurationMs.WithLabelValues(provider).Observe(float64(time.Since(start).Microseconds()) / 1000)
	status := "ok"
	if err != nil {
		status = "error"
	}
	EmbeddingRequestsTotal.WithLabelValues(provider, status).Inc()
	return vec, err
}

// Name passes the call through to the wrapped embedder.
func (e *Embedder) Name() string { return e.wrapped.Name() }

// Model passes the call through to the wrapped embedder.
func (e *Embedder) Model() string { return e.wrapped.Model() }

// Close passes the call through to the wrapped embedder.
func (e *Embedder) Close() error { return e.wrapped.Close() }
