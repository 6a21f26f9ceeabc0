package indexer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/answerdex/internal/domain"
)

// RecordStore defines the persistence contract for index records.
type RecordStore interface {
	Upsert(ctx context.Context, rec *domain.IndexRecord) error
	Delete(ctx context.Context, tenantID string, category domain.Category, objectID string) error
}

// Service maintains the denormalized search index. Indexing is best-effort:
// an embedding failure is logged and reported as "not indexed" without an
// error, so the owning object's write path is never blocked.
type Service struct {
	records RecordStore
	embed   domain.Embedder
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an indexer service.
func New(records RecordStore, embed domain.Embedder, logger *zap.Logger) *Service {
	return &Service{records: records, embed: embed, logger: logger, now: time.Now}
}

// Upsert derives and stores the search record for one source object.
// Returns true when a record was written.
func (s *Service) Upsert(
	ctx context.Context,
	tenantID string, category domain.Category, objectID, contactID, label, text string,
) (bool, error) {
	rec := &domain.IndexRecord{
		TenantID:  tenantID,
		Category:  category,
		ObjectID:  objectID,
		ContactID: contactID,
		Label:     strings.TrimSpace(label),
		Text:      strings.TrimSpace(text),
	}
	if rec.Blank() {
		return false, nil
	}

	embRes, err := s.embed.Embed(ctx, rec.Label+"\n"+rec.Text)
	if err != nil || len(embRes.Embedding) == 0 {
		s.logger.Warn("Skipping index update, embedding unavailable",
			zap.String("tenant_id", tenantID),
			zap.String("category", string(category)),
			zap.String("object_id", objectID),
			zap.Error(err),
		)
		return false, nil
	}

	rec.Vector = embRes.Embedding
	rec.UpdatedAt = s.now().UTC()

	if err := s.records.Upsert(ctx, rec); err != nil {
		// Store unavailability is the one failure that propagates.
		return false, err
	}
	return true, nil
}

// Delete removes the record; safe to call for objects that were never indexed.
func (s *Service) Delete(
	ctx context.Context, tenantID string, category domain.Category, objectID string,
) error {
	return s.records.Delete(ctx, tenantID, category, objectID)
}
