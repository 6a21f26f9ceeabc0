package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct{ err error }

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{}, &mockChecker{})

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Errorf("status = %s, want %s", report.Status, Healthy)
	}
	for _, name := range []string{"store", "embedding", "answer_model"} {
		if report.Checks[name] != CheckOK {
			t.Errorf("check %s = %s, want ok", name, report.Checks[name])
		}
	}
}

func TestCheck_StoreDown(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("no route")}, &mockChecker{}, &mockChecker{})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Errorf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["store"] != CheckError {
		t.Errorf("store check = %s, want error", report.Checks["store"])
	}
}

func TestCheck_ProviderDown(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{}, &mockChecker{err: errors.New("upstream 503")})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Errorf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["answer_model"] != CheckError {
		t.Errorf("answer_model check = %s, want error", report.Checks["answer_model"])
	}
}

func TestCheck_NilProvidersSkipped(t *testing.T) {
	svc := New(&mockPinger{}, nil, nil)

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Errorf("status = %s, want %s", report.Status, Healthy)
	}
	if len(report.Checks) != 1 {
		t.Errorf("checks = %v, want only store", report.Checks)
	}
}
