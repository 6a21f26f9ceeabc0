package guard

import (
	"context"

	"github.com/kailas-cloud/answerdex/internal/domain"
)

// StateStore defines the persistence contract for guard state.
type StateStore interface {
	Load(ctx context.Context, tenantID string) (domain.UsageSnapshot, error)
	Save(ctx context.Context, snap *domain.UsageSnapshot) error
	ResetDaily(ctx context.Context, tenantID, dayKey string) error
	ResetMonthly(ctx context.Context, tenantID, monthKey string) error
	RecordSuccess(ctx context.Context, tenantID string, spendCents int64) error
}

// Settings is the writable part of a tenant's assistant configuration.
type Settings struct {
	Enabled         bool
	DailyLimit      int
	MonthlyCapCents int64 // 0 = no cap
}
