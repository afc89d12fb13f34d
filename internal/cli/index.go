package geoassist

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/geoassist/internal/providerfactory"
	"github.com/mwiater/geoassist/internal/rag"
)

// indexCmd chunks and embeds the documentation into the configured index.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the semantic index over the documentation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		ctx := cmd.Context()

		tokens, err := rag.NewTokenCounter(cfg.Tokenizer)
		if err != nil {
			return err
		}
		embedder, err := providerfactory.NewEmbedder(ctx, cfg)
		if err != nil {
			return err
		}
		defer embedder.Close()
		store, err := providerfactory.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		m, err := rag.BuildIndex(ctx, rag.IndexOptions{
			DocsPath:     cfg.DocsPath,
			Extensions:   cfg.DocExtensions,
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
			Embedder:     embedder,
			Store:        store,
			Tokens:       tokens,
			Out:          cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Indexed %d chunks from %d documents (%s, dim %d)\n",
			okMark("✓"), m.Chunks, m.Documents, m.Model, m.Dimension)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
