package answer

import (
	"context"

	"github.com/kailas-cloud/answerdex/internal/domain"
	"github.com/kailas-cloud/answerdex/internal/usecase/retrieval"
)

// Guard is the quota contract. RecordSuccess runs only after an answer was
// validated and accepted.
type Guard interface {
	CheckAndPrepare(ctx context.Context, tenantID string) (domain.UsageSnapshot, error)
	RecordSuccess(ctx context.Context, tenantID string, spendCents int64) error
}

// Retriever produces the fused candidate set for a query.
type Retriever interface {
	Retrieve(ctx context.Context, tenantID, query string) (retrieval.Result, error)
}

// Config holds answer policy knobs. The damping factors are policy
// constants kept as configuration for behavioral parity.
type Config struct {
	Enabled                bool    // process-wide assistant availability
	ThinEvidenceFactor     float64 // applied when the fused set is small
	ThinEvidenceMax        int     // "small" means at most this many candidates
	SemanticOnlyFactor     float64 // applied when no lexical hit contributed
	LowConfidenceThreshold float64 // below this, answers carry a warning
	CostPerAnswerCents     int64   // flat spend recorded per accepted answer
}
