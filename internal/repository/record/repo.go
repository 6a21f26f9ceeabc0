package record

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/answerdex/internal/db"
	"github.com/kailas-cloud/answerdex/internal/domain"
)

// IndexName is the FT index over all search index records.
const IndexName = domain.KeyPrefix + "records-idx"

// keyPrefix namespaces record hashes; the FT index is bound to it.
const keyPrefix = domain.KeyPrefix + "rec:"

// store is the consumer interface for record persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo persists search index records as flat hashes under one FT index.
type Repo struct {
	store store
}

// New creates a record repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// IndexParams holds the vector schema knobs for EnsureIndex.
type IndexParams struct {
	Dimensions  int
	HNSWM       int
	EFConstruct int
	LabelWeight float64
	TextWeight  float64
}

// EnsureIndex creates the records FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, p IndexParams) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("index exists %s: %w", IndexName, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     IndexName,
		Prefixes: []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: "tenant_id", Type: db.IndexFieldTag},
			{Name: "category", Type: db.IndexFieldTag},
			{Name: "contact_id", Type: db.IndexFieldTag},
			{Name: "label", Type: db.IndexFieldText, TextWeight: p.LabelWeight},
			{Name: "text", Type: db.IndexFieldText, TextWeight: p.TextWeight},
			{Name: "updated_at", Type: db.IndexFieldNumeric, Sortable: true},
			{
				Name: "vector", Type: db.IndexFieldVector,
				VectorDim: p.Dimensions, VectorM: p.HNSWM, VectorEFConstruct: p.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && err != db.ErrIndexExists {
		return fmt.Errorf("create index %s: %w", IndexName, err)
	}
	return nil
}

// Upsert atomically replaces the record hash keyed by (tenant, category, object).
func (r *Repo) Upsert(ctx context.Context, rec *domain.IndexRecord) error {
	key := Key(rec.TenantID, rec.Category, rec.ObjectID)
	if err := r.store.HSet(ctx, key, buildHashFields(rec)); err != nil {
		return fmt.Errorf("upsert record %s: %w", key, err)
	}
	return nil
}

// Delete removes the record unconditionally; deleting a record that was
// never indexed is a no-op.
func (r *Repo) Delete(ctx context.Context, tenantID string, category domain.Category, objectID string) error {
	key := Key(tenantID, category, objectID)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete record %s: %w", key, err)
	}
	return nil
}

// FetchTexts returns the stored full text per (category, objectID) key for
// snippet enrichment. Missing records are simply absent from the map.
func (r *Repo) FetchTexts(
	ctx context.Context, tenantID string, refs []domain.Candidate,
) (map[string]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(refs))
	ids := make([]string, 0, len(refs))
	for i := range refs {
		cat, ok := domain.CategoryFromSingular(refs[i].Type)
		if !ok {
			continue
		}
		keys = append(keys, Key(tenantID, cat, refs[i].ID))
		ids = append(ids, refs[i].Key())
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch record texts: %w", err)
	}

	out := make(map[string]string, len(maps))
	for i, m := range maps {
		if text := m["text"]; text != "" {
			out[ids[i]] = text
		}
	}
	return out, nil
}

// Key builds the record hash key for (tenant, category, object).
func Key(tenantID string, category domain.Category, objectID string) string {
	return keyPrefix + strings.Join([]string{tenantID, string(category), objectID}, ":")
}
