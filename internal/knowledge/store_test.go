package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpsertRowsDropsNilVectors(t *testing.T) {
	records := []Record{
		{ID: "a-chunk0", URL: "https://e.com/a", Title: "A", Content: "alpha", Source: SourceCrawl},
		{ID: "a-chunk1", URL: "https://e.com/a", Title: "A", Content: "beta", Source: SourceCrawl},
		{ID: "b-chunk0", URL: "https://e.com/b", Title: "B", Content: "gamma", Source: SourceSearch},
	}
	vectors := [][]float32{
		{0.1, 0.2},
		nil,
		{0.3, 0.4},
	}

	rows, dropped, err := buildUpsertRows(records, vectors)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, rows, 2)

	assert.Equal(t, "a-chunk0", rows[0].id)
	assert.Equal(t, "b-chunk0", rows[1].id)
	assert.Equal(t, map[string]string{
		"url":     "https://e.com/a",
		"title":   "A",
		"content": "alpha",
		"source":  "crawl",
	}, rows[0].metadata)
}

func TestBuildUpsertRowsSummaryMetadata(t *testing.T) {
	records := []Record{
		{ID: "a-chunk0", URL: "https://e.com/a", Title: "A", Content: "alpha", Summary: "About A", Source: SourceCrawl},
		{ID: "b-chunk0", URL: "https://e.com/b", Title: "B", Content: "beta", Source: SourceCrawl},
	}
	vectors := [][]float32{{0.1}, {0.2}}

	rows, _, err := buildUpsertRows(records, vectors)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "About A", rows[0].metadata["summary"])
	_, ok := rows[1].metadata["summary"]
	assert.False(t, ok, "empty summaries stay out of the metadata")
}

func TestBuildUpsertRowsAllNil(t *testing.T) {
	records := []Record{{ID: "x"}, {ID: "y"}}
	rows, dropped, err := buildUpsertRows(records, make([][]float32, 2))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 2, dropped)
}

func TestBuildUpsertRowsLengthMismatch(t *testing.T) {
	_, _, err := buildUpsertRows([]Record{{ID: "x"}}, nil)
	require.Error(t, err)
}

func TestBuildUpsertRowsEmpty(t *testing.T) {
	rows, dropped, err := buildUpsertRows(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, dropped)
}
