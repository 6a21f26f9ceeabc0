package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/answerdex/internal/db"
	"github.com/kailas-cloud/answerdex/internal/domain"
	"github.com/kailas-cloud/answerdex/internal/repository/record"
)

// returnFields are the hash fields fetched back with every hit.
var returnFields = []string{"category", "object_id", "label", "text", "contact_id", "updated_at"}

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo runs lexical and semantic queries over the records index.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Lexical runs a BM25 search scoped to one tenant and category. Field
// weights live in the index schema, so the query text stays unfielded.
func (r *Repo) Lexical(
	ctx context.Context, tenantID string, category domain.Category, query string, limit int,
) ([]domain.SearchHit, error) {
	escaped := db.EscapeText(query)
	queryStr := fmt.Sprintf("%s %s (%s)",
		db.TagFilter("tenant_id", tenantID),
		db.TagFilter("category", string(category)),
		escaped,
	)

	q := &db.TextQuery{
		IndexName:    record.IndexName,
		Query:        queryStr,
		TopK:         limit,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("lexical search %s/%s: %w", tenantID, category, err)
	}

	return parseHits(sr), nil
}

// Semantic runs a KNN cosine-similarity search over all of the tenant's
// records at once; bucketing per category happens in the usecase.
func (r *Repo) Semantic(
	ctx context.Context, tenantID string, vector []float32, k int,
) ([]domain.SearchHit, error) {
	q := &db.KNNQuery{
		IndexName:    record.IndexName,
		Prefilter:    db.TagFilter("tenant_id", tenantID),
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("semantic search %s: %w", tenantID, err)
	}

	return parseHits(sr), nil
}

// parseHits converts db entries into domain hits. Entries with an
// unrecognized category are dropped rather than surfaced.
func parseHits(sr *db.SearchResult) []domain.SearchHit {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	hits := make([]domain.SearchHit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		cat, ok := domain.ParseCategory(entry.Fields["category"])
		if !ok {
			continue
		}

		objectID := entry.Fields["object_id"]
		if objectID == "" {
			objectID = objectIDFromKey(entry.Key)
		}

		var updatedAt int64
		if raw := entry.Fields["updated_at"]; raw != "" {
			updatedAt, _ = strconv.ParseInt(raw, 10, 64)
		}

		hits = append(hits, domain.SearchHit{
			Category:  cat,
			ObjectID:  objectID,
			Label:     entry.Fields["label"],
			Text:      entry.Fields["text"],
			ContactID: entry.Fields["contact_id"],
			Score:     entry.Score,
			UpdatedAt: updatedAt,
		})
	}
	return hits
}

// objectIDFromKey recovers the object id from a record key
// (prefix:tenant:category:object).
func objectIDFromKey(key string) string {
	idx := strings.LastIndex(key, ":")
	if idx < 0 || idx+1 >= len(key) {
		return ""
	}
	return key[idx+1:]
}
