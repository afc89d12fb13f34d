package rag

import "strings"

// Chunk is one window of a document. Offset counts runes from the start.
type Chunk struct {
	Offset int
	Text   string
}

// ChunkText splits text into fixed-size windows of chunkSize runes, each
// starting chunkSize-overlap runes after the previous one. Windows holding
// only whitespace are dropped.
func ChunkText(text string, chunkSize, overlap int) []Chunk {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)

	var chunks []Chunk
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[i:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, Chunk{Offset: i, Text: window})
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
