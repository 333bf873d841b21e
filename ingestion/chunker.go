package ingestion

import "strings"

// Normalize canonicalizes extracted text before chunking: line endings are
// unified to LF and surrounding whitespace is trimmed. Chunks reconstruct
// this normalized form, not the raw file bytes.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// Chunks splits text into a sliding window of chunks of at most size runes,
// where consecutive chunks share overlap runes. Chunk i starts at rune
// i*(size-overlap) and chunking stops once a chunk's start reaches the end of
// the text, so coverage is complete and gap-free: the trailing overlap runes
// of each interior chunk equal the leading overlap runes of the next.
//
// Units are runes, not bytes, so multibyte text never splits mid-character.
// Requires 0 <= overlap < size; returns nil otherwise.
func Chunks(text string, size, overlap int) []string {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
