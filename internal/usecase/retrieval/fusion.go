package retrieval

import (
	"sort"

	"github.com/kailas-cloud/answerdex/internal/domain"
)

// fuse merges lexical and semantic hits: first occurrence of a
// (category, id) pair wins, the union is sorted by descending score and
// truncated to limit.
func fuse(lexical, semantic []domain.SearchHit, limit int) []domain.SearchHit {
	seen := make(map[string]struct{}, len(lexical)+len(semantic))
	merged := make([]domain.SearchHit, 0, len(lexical)+len(semantic))

	for _, h := range append(append([]domain.SearchHit{}, lexical...), semantic...) {
		key := string(h.Category) + ":" + h.ObjectID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, h)
	}

	sortHits(merged)

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// sortHits orders hits by descending score, breaking ties by recency and
// then object id so output is deterministic.
func sortHits(hits []domain.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].UpdatedAt != hits[j].UpdatedAt {
			return hits[i].UpdatedAt > hits[j].UpdatedAt
		}
		return hits[i].ObjectID < hits[j].ObjectID
	})
}
