package db

// KNNQuery is the input for vector similarity search.
// Prefilter is a prebuilt FT query fragment (tag scoping) or empty.
type KNNQuery struct {
	IndexName    string
	Prefilter    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search. Query is a complete,
// already-escaped FT query string.
type TextQuery struct {
	IndexName    string
	Query        string
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
