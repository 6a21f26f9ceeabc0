package guard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/answerdex/internal/domain"
)

// Guard state hash fields, one hash per tenant.
const (
	fieldEnabled          = "ai_enabled"
	fieldDailyLimit       = "ai_daily_request_limit"
	fieldDailyUsed        = "ai_daily_requests_used"
	fieldLastDailyReset   = "ai_last_daily_reset_at"
	fieldMonthlyCapCents  = "ai_monthly_cap_cents"
	fieldMonthlySpend     = "ai_monthly_spend_cents"
	fieldLastMonthlyReset = "ai_last_monthly_reset_at"
)

// store is the consumer interface for guard state persistence (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
}

// Store persists per-tenant assistant usage state.
type Store struct {
	store store
}

// New creates a guard state store.
func New(s store) *Store {
	return &Store{store: s}
}

// Load reads the tenant's guard state. A missing hash means the tenant has
// no assistant record and maps to domain.ErrTenantUnknown.
func (s *Store) Load(ctx context.Context, tenantID string) (domain.UsageSnapshot, error) {
	m, err := s.store.HGetAll(ctx, Key(tenantID))
	if err != nil {
		return domain.UsageSnapshot{}, fmt.Errorf("load guard state %s: %w", tenantID, err)
	}
	if len(m) == 0 {
		return domain.UsageSnapshot{}, domain.ErrTenantUnknown
	}
	return parseSnapshot(tenantID, m), nil
}

// Save writes the full guard state; used by the settings write path.
func (s *Store) Save(ctx context.Context, snap *domain.UsageSnapshot) error {
	if err := s.store.HSet(ctx, Key(snap.TenantID), buildFields(snap)); err != nil {
		return fmt.Errorf("save guard state %s: %w", snap.TenantID, err)
	}
	return nil
}

// ResetDaily zeroes the daily counter and stamps the new reset day.
func (s *Store) ResetDaily(ctx context.Context, tenantID, dayKey string) error {
	fields := map[string]string{
		fieldDailyUsed:      "0",
		fieldLastDailyReset: dayKey,
	}
	if err := s.store.HSet(ctx, Key(tenantID), fields); err != nil {
		return fmt.Errorf("reset daily counter %s: %w", tenantID, err)
	}
	return nil
}

// ResetMonthly zeroes the monthly spend and stamps the new reset month-key.
func (s *Store) ResetMonthly(ctx context.Context, tenantID, monthKey string) error {
	fields := map[string]string{
		fieldMonthlySpend:     "0",
		fieldLastMonthlyReset: monthKey,
	}
	if err := s.store.HSet(ctx, Key(tenantID), fields); err != nil {
		return fmt.Errorf("reset monthly counter %s: %w", tenantID, err)
	}
	return nil
}

// RecordSuccess bumps the daily request counter by one and the monthly
// spend by spendCents. HINCRBY keeps the bumps atomic store-side.
func (s *Store) RecordSuccess(ctx context.Context, tenantID string, spendCents int64) error {
	key := Key(tenantID)
	if _, err := s.store.HIncrBy(ctx, key, fieldDailyUsed, 1); err != nil {
		return fmt.Errorf("increment daily counter %s: %w", tenantID, err)
	}
	if spendCents > 0 {
		if _, err := s.store.HIncrBy(ctx, key, fieldMonthlySpend, spendCents); err != nil {
			return fmt.Errorf("increment monthly spend %s: %w", tenantID, err)
		}
	}
	return nil
}

// Key builds the guard state hash key for a tenant.
func Key(tenantID string) string {
	return domain.KeyPrefix + "tenant:" + tenantID + ":assistant"
}

func parseSnapshot(tenantID string, m map[string]string) domain.UsageSnapshot {
	return domain.UsageSnapshot{
		TenantID:          tenantID,
		Enabled:           m[fieldEnabled] == "1",
		DailyLimit:        atoi(m[fieldDailyLimit]),
		DailyUsed:         atoi(m[fieldDailyUsed]),
		LastDailyReset:    m[fieldLastDailyReset],
		MonthlyCapCents:   atoi64(m[fieldMonthlyCapCents]),
		MonthlySpendCents: atoi64(m[fieldMonthlySpend]),
		LastMonthlyReset:  m[fieldLastMonthlyReset],
	}
}

func buildFields(snap *domain.UsageSnapshot) map[string]string {
	enabled := "0"
	if snap.Enabled {
		enabled = "1"
	}
	return map[string]string{
		fieldEnabled:          enabled,
		fieldDailyLimit:       strconv.Itoa(snap.DailyLimit),
		fieldDailyUsed:        strconv.Itoa(snap.DailyUsed),
		fieldLastDailyReset:   snap.LastDailyReset,
		fieldMonthlyCapCents:  strconv.FormatInt(snap.MonthlyCapCents, 10),
		fieldMonthlySpend:     strconv.FormatInt(snap.MonthlySpendCents, 10),
		fieldLastMonthlyReset: snap.LastMonthlyReset,
	}
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func atoi64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
