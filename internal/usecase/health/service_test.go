package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct{ err error }

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

type mockCatalog struct{ size int }

func (m *mockCatalog) Size() int { return m.size }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{}, &mockCatalog{size: 5})

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Fatalf("status = %s, want %s", report.Status, Healthy)
	}
	if report.ReferencePoses != 5 {
		t.Errorf("ReferencePoses = %d, want 5", report.ReferencePoses)
	}
	for name, check := range report.Checks {
		if check != CheckOK {
			t.Errorf("check %s = %s, want ok", name, check)
		}
	}
}

func TestCheck_StoreDown(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("refused")}, &mockChecker{}, &mockCatalog{size: 5})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Fatalf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["store"] != CheckError {
		t.Errorf("store check = %s, want error", report.Checks["store"])
	}
}

func TestCheck_EmptyCatalogDegrades(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{}, &mockCatalog{size: 0})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Fatalf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["catalog"] != CheckError {
		t.Errorf("catalog check = %s, want error", report.Checks["catalog"])
	}
}

func TestCheck_NilComponentsSkipped(t *testing.T) {
	svc := New(nil, nil, &mockCatalog{size: 1})

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Fatalf("status = %s, want %s", report.Status, Healthy)
	}
	if _, ok := report.Checks["store"]; ok {
		t.Error("nil store must not be checked")
	}
	if _, ok := report.Checks["extractor"]; ok {
		t.Error("nil extractor must not be checked")
	}
}
