package geoassist

import (
	"context"

	"github.com/mwiater/geoassist/internal/appconfig"
	"github.com/mwiater/geoassist/internal/district"
	"github.com/mwiater/geoassist/internal/logging"
	"github.com/mwiater/geoassist/internal/providerfactory"
	"github.com/mwiater/geoassist/internal/query"
)

// newEngine loads the district data and, when it can be opened, the semantic
// index. An unavailable index only disables the semantic fallback. The
// returned function releases the index.
func newEngine(ctx context.Context, cfg *appconfig.Config, frontend string) (*query.Engine, func(), error) {
	records, err := district.Read(cfg.DistrictDataPath)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	var searcher query.Searcher
	retriever, closeRetriever, err := providerfactory.NewRetriever(ctx, cfg)
	if err != nil {
		logging.Warnf("[QUERY] semantic search unavailable: %v", err)
	} else {
		retriever.CheckManifest(ctx)
		searcher = retriever
		closeFn = closeRetriever
	}

	engine := query.NewEngine(records, query.Options{
		Searcher: searcher,
		TopK:     cfg.RetrievalTopK(),
		Frontend: frontend,
	})
	return engine, closeFn, nil
}
