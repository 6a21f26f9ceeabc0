package domain

import "unicode/utf8"

// SnippetEllipsis marks a truncated evidence snippet.
const SnippetEllipsis = "..."

// Candidate is an ephemeral, query-scoped retrieval hit. Its lifetime is
// one query evaluation; candidates are never persisted.
type Candidate struct {
	Type      string // singularized category token
	ID        string
	Label     string
	URL       string
	Snippet   string
	Score     float64
	ContactID string
}

// Key returns the (type, id) dedup key for the candidate.
func (c *Candidate) Key() string { return c.Type + ":" + c.ID }

// TruncateSnippet bounds s to max runes, appending the ellipsis marker
// when content was cut.
func TruncateSnippet(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + SnippetEllipsis
}
