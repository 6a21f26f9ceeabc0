package domain

// Date and month-key layouts for guard reset markers.
const (
	DayKeyLayout   = "2006-01-02"
	MonthKeyLayout = "2006-01"
)

// UsageSnapshot is the per-tenant guard state. A snapshot returned by a
// guard check is authoritative for that check cycle only; a second check
// must reload state.
type UsageSnapshot struct {
	TenantID          string
	Enabled           bool
	DailyLimit        int
	DailyUsed         int
	LastDailyReset    string // DayKeyLayout
	MonthlyCapCents   int64  // 0 = no cap
	MonthlySpendCents int64
	LastMonthlyReset  string // MonthKeyLayout
}

// RemainingToday returns requests left in the daily quota, floored at 0.
func (s *UsageSnapshot) RemainingToday() int {
	remaining := s.DailyLimit - s.DailyUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
