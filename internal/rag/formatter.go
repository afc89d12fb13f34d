package rag

import (
	"fmt"
	"strings"

	"github.com/mwiater/geoassist/internal/util"
)

// FormatResults renders retrieved chunks as numbered plain-text results.
// maxRunes > 0 shortens each chunk for display.
func FormatResults(chunks []RetrievedChunk, maxRunes int) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, chunk := range chunks {
		text := strings.TrimSpace(chunk.Entry.Text)
		if maxRunes > 0 {
			text = util.TruncateRunes(text, maxRunes)
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Result %d [%s, score %.3f]:\n%s", i+1, chunk.Entry.Doc, chunk.Score, text)
	}
	return b.String()
}

// Sources lists the distinct documents behind chunks, in first-seen order.
func Sources(chunks []RetrievedChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var docs []string
	for _, c := range chunks {
		if _, ok := seen[c.Entry.Doc]; ok {
			continue
		}
		seen[c.Entry.Doc] = struct{}{}
		docs = append(docs, c.Entry.Doc)
	}
	return docs
}
