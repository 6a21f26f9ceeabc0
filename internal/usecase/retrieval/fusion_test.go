package retrieval

import (
	"testing"

	"github.com/kailas-cloud/answerdex/internal/domain"
)

func TestFuse_FirstOccurrenceWins(t *testing.T) {
	lexical := []domain.SearchHit{
		{Category: domain.CategoryContacts, ObjectID: "a", Score: 2.0},
	}
	semantic := []domain.SearchHit{
		{Category: domain.CategoryContacts, ObjectID: "a", Score: 0.9},
		{Category: domain.CategoryContacts, ObjectID: "b", Score: 0.8},
	}

	fused := fuse(lexical, semantic, 10)
	if len(fused) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(fused))
	}
	if fused[0].ObjectID != "a" || fused[0].Score != 2.0 {
		t.Errorf("duplicate not resolved to lexical occurrence: %+v", fused[0])
	}
}

func TestFuse_SameIDDifferentCategoryKept(t *testing.T) {
	lexical := []domain.SearchHit{
		{Category: domain.CategoryContacts, ObjectID: "42", Score: 1.0},
	}
	semantic := []domain.SearchHit{
		{Category: domain.CategoryTransactions, ObjectID: "42", Score: 0.9},
	}

	fused := fuse(lexical, semantic, 10)
	if len(fused) != 2 {
		t.Errorf("ids collide only within a category, got %d hits", len(fused))
	}
}

func TestFuse_TruncatesToLimit(t *testing.T) {
	var semantic []domain.SearchHit
	for i := 0; i < 30; i++ {
		semantic = append(semantic, domain.SearchHit{
			Category: domain.CategoryContacts,
			ObjectID: string(rune('a' + i)),
			Score:    float64(30 - i),
		})
	}

	fused := fuse(nil, semantic, 20)
	if len(fused) != 20 {
		t.Errorf("expected 20 hits, got %d", len(fused))
	}
}

func TestSortHits_Deterministic(t *testing.T) {
	hits := []domain.SearchHit{
		{Category: domain.CategoryContacts, ObjectID: "b", Score: 1.0, UpdatedAt: 100},
		{Category: domain.CategoryContacts, ObjectID: "a", Score: 1.0, UpdatedAt: 100},
		{Category: domain.CategoryContacts, ObjectID: "c", Score: 1.0, UpdatedAt: 200},
		{Category: domain.CategoryContacts, ObjectID: "d", Score: 2.0, UpdatedAt: 50},
	}

	sortHits(hits)

	want := []string{"d", "c", "a", "b"}
	for i, id := range want {
		if hits[i].ObjectID != id {
			t.Errorf("position %d: got %s, want %s", i, hits[i].ObjectID, id)
		}
	}
}
