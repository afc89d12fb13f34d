package query

import (
	"context"
	"strings"
	"time"

	"github.com/mwiater/geoassist/internal/district"
	"github.com/mwiater/geoassist/internal/logging"
	"github.com/mwiater/geoassist/internal/metrics"
	"github.com/mwiater/geoassist/internal/rag"
	"github.com/mwiater/geoassist/internal/suitability"
)

// Searcher is the semantic index as seen by the engine.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]rag.RetrievedChunk, error)
}

// Options configure an Engine.
type Options struct {
	// Searcher may be nil, in which case semantic queries return no snippets.
	Searcher Searcher
	TopK     int
	// Frontend names the caller in logs and metrics ("cli", "dashboard").
	Frontend string
}

// Engine answers queries against one loaded district collection. It holds no
// mutable state and may be shared between goroutines.
type Engine struct {
	districts *district.Collection
	searcher  Searcher
	topK      int
	frontend  string
}

// NewEngine builds an engine over records in their file order.
func NewEngine(records []district.Record, opts Options) *Engine {
	topK := opts.TopK
	if topK <= 0 {
		topK = 3
	}
	frontend := opts.Frontend
	if frontend == "" {
		frontend = "query"
	}
	return &Engine{
		districts: district.NewCollection(records),
		searcher:  opts.Searcher,
		topK:      topK,
		frontend:  frontend,
	}
}

// Districts exposes the collection the engine answers from.
func (e *Engine) Districts() *district.Collection { return e.districts }

// Answer is the outcome of one query. Exactly one of Suitable, District or
// Snippets is meaningful, as indicated by Intent.
type Answer struct {
	Query  string `json:"query"`
	Intent string `json:"intent"`
	// Label is the land use for suitability answers ("Solar").
	Label    string                       `json:"label,omitempty"`
	Suitable []string                     `json:"suitable,omitempty"`
	District *district.Record             `json:"district,omitempty"`
	Snippets []rag.RetrievedChunk         `json:"snippets,omitempty"`
	Notice   string                       `json:"notice,omitempty"`
	Urban    []suitability.UrbanBreakdown `json:"-"`
	// Route is the classified intent behind Intent.
	Route IntentKind `json:"-"`
}

// Answer classifies text and produces the matching answer. It never fails: a
// semantic search error yields an answer without snippets and a notice.
func (e *Engine) Answer(ctx context.Context, text string) Answer {
	started := time.Now()
	text = strings.TrimSpace(text)
	intent := Classify(text, e.districts)
	ans := Answer{Query: text, Intent: intent.String(), Route: intent.Kind}

	switch intent.Kind {
	case IntentSuitability:
		records := e.districts.Records()
		ans.Label = intent.Suitability.Label()
		ans.Suitable = intent.Suitability.Filter(records)
		if intent.Suitability == suitability.Urban {
			for _, r := range records {
				ans.Urban = append(ans.Urban, suitability.Breakdown(r))
			}
		}
		logging.LogQuery(e.frontend, ans.Intent, text, ans.Suitable)
	case IntentDistrict:
		rec := intent.District
		ans.District = &rec
		logging.LogQuery(e.frontend, ans.Intent, text, rec.Name)
	default:
		ans.Snippets = e.semantic(ctx, text)
		if len(ans.Snippets) == 0 {
			ans.Notice = "semantic search returned no results"
		}
		logging.LogQuery(e.frontend, ans.Intent, text, rag.Sources(ans.Snippets))
	}

	metrics.ObserveQuery(e.frontend, ans.Intent, started)
	return ans
}

func (e *Engine) semantic(ctx context.Context, text string) []rag.RetrievedChunk {
	if text == "" {
		return nil
	}
	if e.searcher == nil {
		logging.Warnf("[QUERY] semantic search is not configured")
		metrics.SemanticFailuresTotal.Inc()
		return nil
	}
	chunks, err := e.searcher.Search(ctx, text, e.topK)
	if err != nil {
		logging.Warnf("[QUERY] semantic search failed: %v", err)
		metrics.SemanticFailuresTotal.Inc()
		return nil
	}
	return chunks
}
