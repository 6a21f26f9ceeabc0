package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/answerdex/internal/domain"
)

// Service enforces the per-tenant daily request quota and monthly spend cap.
// The read-reset-check sequence runs under a per-tenant mutex so two
// concurrent requests cannot both pass a nearly-spent limit.
type Service struct {
	enabled bool // process-wide assistant flag, injected at construction
	store   StateStore
	logger  *zap.Logger
	locks   sync.Map // tenantID -> *sync.Mutex
	now     func() time.Time
}

// New creates a guard service. enabled is the process-wide assistant flag.
func New(enabled bool, store StateStore, logger *zap.Logger) *Service {
	return &Service{
		enabled: enabled,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckAndPrepare loads the tenant's counters, lazily resets stale daily and
// monthly windows, and evaluates both limits. The returned snapshot is
// authoritative for this check cycle only.
func (s *Service) CheckAndPrepare(ctx context.Context, tenantID string) (domain.UsageSnapshot, error) {
	if !s.enabled {
		return domain.UsageSnapshot{}, domain.ErrAssistantDisabled
	}

	mu := s.lock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	snap, err := s.store.Load(ctx, tenantID)
	if err != nil {
		return domain.UsageSnapshot{}, err
	}

	if !snap.Enabled {
		return domain.UsageSnapshot{}, domain.ErrAssistantNotEnabled
	}

	now := s.now().UTC()
	today := now.Format(domain.DayKeyLayout)
	if snap.LastDailyReset != today {
		if err := s.store.ResetDaily(ctx, tenantID, today); err != nil {
			return domain.UsageSnapshot{}, fmt.Errorf("reset daily window: %w", err)
		}
		snap.DailyUsed = 0
		snap.LastDailyReset = today
	}

	month := now.Format(domain.MonthKeyLayout)
	if snap.LastMonthlyReset != month {
		if err := s.store.ResetMonthly(ctx, tenantID, month); err != nil {
			return domain.UsageSnapshot{}, fmt.Errorf("reset monthly window: %w", err)
		}
		snap.MonthlySpendCents = 0
		snap.LastMonthlyReset = month
	}

	if snap.DailyLimit <= 0 || snap.DailyUsed >= snap.DailyLimit {
		return domain.UsageSnapshot{}, domain.ErrDailyLimitReached
	}
	if snap.MonthlyCapCents > 0 && snap.MonthlySpendCents >= snap.MonthlyCapCents {
		return domain.UsageSnapshot{}, domain.ErrMonthlyCapReached
	}

	return snap, nil
}

// RecordSuccess increments the daily counter by one and monthly spend by
// max(0, spendCents). Called only after a downstream answer was accepted.
func (s *Service) RecordSuccess(ctx context.Context, tenantID string, spendCents int64) error {
	mu := s.lock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	if spendCents < 0 {
		spendCents = 0
	}
	if err := s.store.RecordSuccess(ctx, tenantID, spendCents); err != nil {
		return fmt.Errorf("record success: %w", err)
	}

	s.logger.Debug("Recorded assistant usage",
		zap.String("tenant_id", tenantID),
		zap.Int64("spend_cents", spendCents),
	)
	return nil
}

// ApplySettings creates or updates the tenant's assistant configuration,
// preserving existing counters when the tenant already has state.
func (s *Service) ApplySettings(
	ctx context.Context, tenantID string, settings Settings,
) (domain.UsageSnapshot, error) {
	mu := s.lock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	now := s.now().UTC()

	snap, err := s.store.Load(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, domain.ErrTenantUnknown) {
			return domain.UsageSnapshot{}, err
		}
		snap = domain.UsageSnapshot{
			TenantID:         tenantID,
			LastDailyReset:   now.Format(domain.DayKeyLayout),
			LastMonthlyReset: now.Format(domain.MonthKeyLayout),
		}
	}

	snap.Enabled = settings.Enabled
	snap.DailyLimit = settings.DailyLimit
	snap.MonthlyCapCents = settings.MonthlyCapCents

	if err := s.store.Save(ctx, &snap); err != nil {
		return domain.UsageSnapshot{}, err
	}
	return snap, nil
}

// Usage returns the tenant's current counters with stale windows presented
// as zero. The view-level reset is not persisted; CheckAndPrepare owns that.
func (s *Service) Usage(ctx context.Context, tenantID string) (domain.UsageSnapshot, error) {
	snap, err := s.store.Load(ctx, tenantID)
	if err != nil {
		return domain.UsageSnapshot{}, err
	}

	now := s.now().UTC()
	if snap.LastDailyReset != now.Format(domain.DayKeyLayout) {
		snap.DailyUsed = 0
	}
	if snap.LastMonthlyReset != now.Format(domain.MonthKeyLayout) {
		snap.MonthlySpendCents = 0
	}
	return snap, nil
}

func (s *Service) lock(tenantID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(tenantID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
