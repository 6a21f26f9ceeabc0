package domain

import "errors"

// Guard errors. Each one resolves to a user-facing warning inside a
// no_answer result; none of them propagates past the answer usecase.
var (
	// ErrAssistantDisabled signals the process-wide assistant flag is off.
	ErrAssistantDisabled = errors.New("assistant is disabled")
	// ErrTenantUnknown signals the tenant guard record does not exist.
	ErrTenantUnknown = errors.New("tenant not found")
	// ErrAssistantNotEnabled signals the tenant has not opted in.
	ErrAssistantNotEnabled = errors.New("assistant not enabled for this tenant")
	// ErrDailyLimitReached signals the daily request quota is spent.
	ErrDailyLimitReached = errors.New("daily request limit reached")
	// ErrMonthlyCapReached signals the monthly spend cap is spent.
	ErrMonthlyCapReached = errors.New("monthly spend cap reached")
)

// Upstream model errors. Distinguished for operators, identical for users.
var (
	// ErrUpstreamTimeout signals the generative or embedding call timed out.
	ErrUpstreamTimeout = errors.New("upstream model timeout")
	// ErrUpstreamTransport signals a non-timeout upstream failure.
	ErrUpstreamTransport = errors.New("upstream model transport failure")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
)

// Storage errors.
var (
	// ErrRecordNotFound signals a missing search index record.
	ErrRecordNotFound = errors.New("index record not found")
	// ErrRateLimited signals a transport-level rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// guardWarnings are the user-facing messages attached to no_answer results.
var guardWarnings = map[error]string{
	ErrAssistantDisabled:   "The assistant is currently unavailable.",
	ErrTenantUnknown:       "Unknown account.",
	ErrAssistantNotEnabled: "The assistant is not enabled for this account.",
	ErrDailyLimitReached:   "Daily assistant request limit reached. Try again tomorrow.",
	ErrMonthlyCapReached:   "Monthly assistant spend cap reached.",
}

// IsGuardError reports whether err belongs to the guard taxonomy.
func IsGuardError(err error) bool {
	for sentinel := range guardWarnings {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// GuardWarning returns the user-facing message for a guard error,
// or an empty string when err is not a guard error.
func GuardWarning(err error) string {
	for sentinel, msg := range guardWarnings {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return ""
}
