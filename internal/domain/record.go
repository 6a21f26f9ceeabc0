package domain

import (
	"strings"
	"time"
)

// IndexRecord is the denormalized search row kept per
// (tenant, category, object). Maintained exclusively by the indexer;
// read-only to retrieval.
type IndexRecord struct {
	TenantID  string
	Category  Category
	ObjectID  string
	ContactID string // owning contact for cross-navigation, may be empty
	Label     string
	Text      string
	Vector    []float32
	UpdatedAt time.Time
}

// Blank reports whether the record carries nothing worth indexing.
func (r *IndexRecord) Blank() bool {
	return strings.TrimSpace(r.Label) == "" || strings.TrimSpace(r.Text) == ""
}
