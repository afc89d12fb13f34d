package appconfig

import (
	"fmt"
	"io"
	"sort"
	"strconv"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg *Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	if cfg == nil {
		def := Default()
		cfg = &def
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Debug:              %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Log File:           %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Districts:          %s (name fields %v)\n", cfg.DistrictsPath, cfg.NameFields())
	fmt.Fprintf(out, "  DEM Raster:         %s\n", cfg.DEMPath)
	fmt.Fprintf(out, "  LULC Raster:        %s\n", cfg.LULCPath)
	if cfg.RasterEPSG != 0 {
		fmt.Fprintf(out, "  Raster EPSG:        %d\n", cfg.RasterEPSG)
	}
	fmt.Fprintf(out, "  District Data:      %s\n", cfg.DistrictDataPath)
	fmt.Fprintln(out, "  LULC Classes:")
	for _, line := range classLines(cfg.LULCClasses) {
		fmt.Fprintf(out, "    %s\n", line)
	}
	fmt.Fprintf(out, "  Docs Path:          %s %v\n", cfg.DocsPath, cfg.DocExtensions)
	fmt.Fprintf(out, "  Index Backend:      %s\n", cfg.IndexBackend)
	if cfg.IndexBackend == "pgvector" {
		fmt.Fprintln(out, "  Postgres DSN:       (set)")
	} else {
		fmt.Fprintf(out, "  Index Path:         %s\n", cfg.IndexPath)
	}
	fmt.Fprintf(out, "  Embedding:          %s / %s\n", cfg.EmbeddingProvider, cfg.EmbeddingModel)
	if cfg.EmbeddingProvider == "ollama" {
		fmt.Fprintf(out, "  Embedding Host:     %s\n", cfg.EmbeddingHost)
	}
	fmt.Fprintf(out, "  Chunk Size/Overlap: %d/%d\n", cfg.ChunkSize, cfg.ChunkOverlap)
	fmt.Fprintf(out, "  Tokenizer:          %s\n", cfg.Tokenizer)
	fmt.Fprintf(out, "  Top K:              %d\n", cfg.RetrievalTopK())
	fmt.Fprintf(out, "  Request Timeout:    %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Server Address:     %s\n", cfg.ServerAddr)
}

func classLines(classes map[string]string) []string {
	if len(classes) == 0 {
		classes = DefaultLULCClasses()
	}
	keys := make([]string, 0, len(classes))
	for k := range classes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s = %s", k, classes[k]))
	}
	return lines
}
