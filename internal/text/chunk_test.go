package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentencesReconstructs(t *testing.T) {
	inputs := []string{
		"One. Two! Three?",
		"No terminator at all",
		"Mixed. Lines\nand fragments",
		"Trailing dots...",
	}

	for _, in := range inputs {
		units := SplitSentences(in)
		assert.Equal(t, in, strings.Join(units, ""), "units must reconstruct input")
	}
}

func TestSplitSentencesEmpty(t *testing.T) {
	assert.Nil(t, SplitSentences(""))
}

func TestChunkEmptyInput(t *testing.T) {
	assert.Empty(t, Chunk("", 1200))
	assert.Empty(t, Chunk("   \n  ", 1200))
}

func TestChunkShortInput(t *testing.T) {
	chunks := Chunk("A single short sentence.", 1200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A single short sentence.", chunks[0])
}

func TestChunkOversizedSentence(t *testing.T) {
	// The oversized middle sentence occupies its own segment; neighbors are
	// not merged into it.
	input := "Short one. This is a considerably longer second sentence that alone exceeds the limit. Third."

	chunks := Chunk(input, 20)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Short one.", chunks[0])
	assert.Greater(t, len(chunks[1]), 20, "oversized sentence kept whole")
	assert.Contains(t, chunks[1], "considerably longer")
	assert.Equal(t, "Third.", chunks[2])
}

func TestChunkNeverSplitsSentences(t *testing.T) {
	input := "Alpha beta gamma. Delta epsilon zeta! Eta theta iota? Kappa lambda."
	sentences := []string{
		"Alpha beta gamma.",
		"Delta epsilon zeta!",
		"Eta theta iota?",
		"Kappa lambda.",
	}

	for _, maxChars := range []int{10, 25, 40, 1200} {
		chunks := Chunk(input, maxChars)
		joined := strings.Join(chunks, " ")
		for _, s := range sentences {
			assert.Equal(t, 1, strings.Count(joined, s),
				"maxChars=%d: sentence %q must appear wholly in exactly one segment", maxChars, s)
		}
	}
}

func TestChunkOrderAndBounds(t *testing.T) {
	input := strings.Repeat("This sentence is about forty characters. ", 50)

	chunks := Chunk(input, 200)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.NotEmpty(t, c)
		assert.Equal(t, c, strings.TrimSpace(c), "chunk %d must be trimmed", i)
		assert.LessOrEqual(t, len(c), 200, "no single sentence exceeds the bound here")
	}

	// Order preserved: re-joining yields the original sentence sequence.
	assert.Equal(t, strings.TrimSpace(input), strings.Join(chunks, " "))
}

func TestChunkNewlineTerminators(t *testing.T) {
	chunks := Chunk("first line\nsecond line\nthird", 1200)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "second line")
}

func TestChunkDefaultsOnBadMax(t *testing.T) {
	long := strings.Repeat("word. ", 300) // ~1800 chars
	chunks := Chunk(long, 0)
	assert.Greater(t, len(chunks), 1, "default bound of 1200 applies")
}
