package sqlstore

import (
	"context"
	"testing"
	"time"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()

	db, backend, err := Open(Options{SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})
	if backend != BackendSQLite {
		t.Fatalf("backend = %q, want %q", backend, BackendSQLite)
	}
	return NewGateway(db, backend)
}

func newBootstrappedGateway(t *testing.T, seed bool) *Gateway {
	t.Helper()

	gw := newTestGateway(t)
	err := Bootstrap(context.Background(), gw, BootstrapOptions{
		Seed:   seed,
		Hasher: plainHasher{},
		Now:    time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Bootstrap error: %v", err)
	}
	return gw
}
