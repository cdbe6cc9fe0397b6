package knowledge

import "github.com/koopa0/kura/internal/text"

// BuildRecords normalizes and chunks cleaned content into one Record per
// chunk. The base record supplies the shared metadata (title, URL, summary,
// tags, source); each result gets the chunk text as content and an ID of
// the form "{url}-chunk{index}". Content that normalizes to nothing yields
// no records.
func BuildRecords(base Record, maxChars int) []Record {
	normalized := text.Normalize(base.Content)
	chunks := text.Chunk(normalized, maxChars)

	records := make([]Record, 0, len(chunks))
	for i, chunk := range chunks {
		r := base
		r.ID = ChunkID(base.URL, i)
		r.Content = chunk
		records = append(records, r)
	}
	return records
}
