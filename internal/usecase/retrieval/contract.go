package retrieval

import (
	"context"

	"github.com/kailas-cloud/answerdex/internal/domain"
)

// SearchRepo defines the storage contract for retrieval queries.
type SearchRepo interface {
	Lexical(
		ctx context.Context, tenantID string, category domain.Category, query string, limit int,
	) ([]domain.SearchHit, error)
	Semantic(
		ctx context.Context, tenantID string, vector []float32, k int,
	) ([]domain.SearchHit, error)
}

// TextFetcher re-reads full record texts for snippet enrichment.
type TextFetcher interface {
	FetchTexts(
		ctx context.Context, tenantID string, refs []domain.Candidate,
	) (map[string]string, error)
}

// URLBuilder produces a navigable link for a candidate. Implementations may
// panic; the service recovers and falls back to an empty URL.
type URLBuilder func(candidateType, objectID, contactID string) string

// Result is one query's fused candidate set plus retrieval diagnostics.
type Result struct {
	Candidates   []domain.Candidate
	LexicalCount int // lexical hits before fusion, feeds confidence damping
}
