package domain

// SearchHit is a raw retrieval hit before fusion.
type SearchHit struct {
	Category  Category
	ObjectID  string
	Label     string
	Text      string
	ContactID string
	Score     float64
	UpdatedAt int64 // unix millis, tie-break key for deterministic ordering
}
