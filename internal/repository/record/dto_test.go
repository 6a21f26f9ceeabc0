package record

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/kailas-cloud/answerdex/internal/domain"
)

func TestBuildHashFields(t *testing.T) {
	rec := &domain.IndexRecord{
		TenantID:  "t1",
		Category:  domain.CategoryContacts,
		ObjectID:  "c1",
		ContactID: "owner-1",
		Label:     "Dana Builder",
		Text:      "Remodel notes",
		Vector:    []float32{0.5, -1.25},
		UpdatedAt: time.UnixMilli(1766400000000).UTC(),
	}

	fields := buildHashFields(rec)

	if fields["tenant_id"] != "t1" || fields["category"] != "contacts" || fields["object_id"] != "c1" {
		t.Errorf("key fields wrong: %v", fields)
	}
	if fields["label"] != "Dana Builder" || fields["text"] != "Remodel notes" {
		t.Errorf("content fields wrong: %v", fields)
	}
	if fields["contact_id"] != "owner-1" {
		t.Errorf("contact_id = %q", fields["contact_id"])
	}
	if fields["updated_at"] != "1766400000000" {
		t.Errorf("updated_at = %q", fields["updated_at"])
	}

	vec := []byte(fields["vector"])
	if len(vec) != 8 {
		t.Fatalf("vector bytes = %d, want 8", len(vec))
	}
	got0 := math.Float32frombits(binary.LittleEndian.Uint32(vec[0:4]))
	got1 := math.Float32frombits(binary.LittleEndian.Uint32(vec[4:8]))
	if got0 != 0.5 || got1 != -1.25 {
		t.Errorf("vector round trip = [%f, %f]", got0, got1)
	}
}

func TestBuildHashFields_ClearedContactIDOverwrites(t *testing.T) {
	rec := &domain.IndexRecord{
		TenantID: "t1",
		Category: domain.CategoryTransactions,
		ObjectID: "tx1",
		Label:    "Closing",
		Text:     "123 Main St",
		Vector:   []float32{0.1},
	}

	// HSET merges fields, so the empty value must be written explicitly or a
	// record whose owning contact was cleared keeps the stale link.
	fields := buildHashFields(rec)
	got, ok := fields["contact_id"]
	if !ok {
		t.Fatal("contact_id must always be written")
	}
	if got != "" {
		t.Errorf("contact_id = %q, want empty", got)
	}
}
