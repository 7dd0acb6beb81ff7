package ingest

import "strings"

// SplitText splits text into overlapping chunks of at most size runes.
// Chunk boundaries prefer paragraph breaks, then line breaks, then
// spaces, falling back to a hard cut.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 3000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}

	runes := []rune(text)
	if len(runes) <= size {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			// force progress when the overlap swallows the whole step
			next = end
		}
		start = next
	}

	return chunks
}

// breakPoint finds the best cut position at or before limit, searching
// no further back than halfway through the chunk.
func breakPoint(runes []rune, start, limit int) int {
	floor := start + (limit-start)/2

	for _, sep := range []string{"\n\n", "\n", " "} {
		window := string(runes[floor:limit])
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			return floor + len([]rune(window[:idx])) + len([]rune(sep))
		}
	}

	return limit
}
