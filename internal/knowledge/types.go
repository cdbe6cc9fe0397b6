// Package knowledge turns cleaned page content into embedded, queryable
// records: it chunks content into retrieval units, batches them through an
// embedding provider, and persists them in PostgreSQL with pgvector for
// similarity search.
package knowledge

import "fmt"

// Source channels a record can originate from.
const (
	SourceCrawl  = "crawl"
	SourceSearch = "search"
)

// Record is one retrieval unit: a chunk of cleaned content plus the
// metadata carried alongside its vector.
type Record struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Content        string   `json:"content"`
	Summary        string   `json:"summary,omitempty"`
	SectionHeading string   `json:"section_heading,omitempty"`
	Date           string   `json:"date,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Author         string   `json:"author,omitempty"`
	Source         string   `json:"source"`
}

// ChunkID derives the stable identifier for the chunk at index idx of the
// page at url.
func ChunkID(url string, idx int) string {
	return fmt.Sprintf("%s-chunk%d", url, idx)
}

// Match is a retrieval hit: a stored record and its cosine similarity to
// the query, in [0, 1] for normalized embeddings.
type Match struct {
	ID       string
	Score    float64
	Content  string
	Metadata map[string]string
}

// UpsertResult reports how a batch of records fared at the vector store:
// Accepted were written, Dropped arrived without a vector and were skipped.
type UpsertResult struct {
	Accepted int
	Dropped  int
}
