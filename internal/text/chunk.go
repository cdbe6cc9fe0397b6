package text

import "strings"

// DefaultMaxChunkChars is the default upper bound for a chunk's length.
// A single sentence longer than the bound still becomes one (oversized)
// chunk; sentences are never split.
const DefaultMaxChunkChars = 1200

// sentence terminators: boundary punctuation or a newline.
func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '\n'
}

// SplitSentences splits text into sentence-like units. A unit is a maximal
// run of non-terminator characters followed by its run of terminators; an
// unterminated trailing fragment is its own unit. The concatenation of the
// returned units equals the input.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}

	var units []string
	start := 0
	inTerminator := false
	for i, r := range text {
		if isTerminator(r) {
			inTerminator = true
			continue
		}
		if inTerminator {
			units = append(units, text[start:i])
			start = i
			inTerminator = false
		}
	}
	if start < len(text) {
		units = append(units, text[start:])
	}
	return units
}

// Chunk groups sentences into segments of at most maxChars characters,
// never splitting a sentence. When appending the next sentence would
// overflow a non-empty buffer, the buffer is flushed and the sentence
// starts a new segment; a sentence that alone exceeds maxChars becomes its
// own oversized segment. Segments are trimmed and never empty; their order
// matches the input. Empty input yields no segments.
func Chunk(content string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	sentences := SplitSentences(content)

	var chunks []string
	var current strings.Builder

	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence) > maxChars {
			if flushed := strings.TrimSpace(current.String()); flushed != "" {
				chunks = append(chunks, flushed)
			}
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if flushed := strings.TrimSpace(current.String()); flushed != "" {
		chunks = append(chunks, flushed)
	}

	return chunks
}
