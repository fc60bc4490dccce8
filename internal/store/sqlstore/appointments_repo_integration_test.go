package sqlstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"clinic/backend/internal/domain"
	"clinic/backend/internal/store"
)

func TestPostgresIntegration_BootstrapBookCancel(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("CLINIC_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("CLINIC_TEST_DATABASE_URL not set")
	}

	db, backend, err := Open(Options{DatabaseURL: databaseURL, Pool: PoolConfig{MaxOpenConns: 1}})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})
	if backend != BackendPostgres {
		t.Fatalf("backend = %q, want %q", backend, BackendPostgres)
	}

	schema := "clinic_test_" + randomHex(t, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw("SET LOCAL search_path TO " + schema).Exec(ctx); err != nil {
			return err
		}

		gw := &Gateway{db: tx, backend: BackendPostgres}
		opts := BootstrapOptions{Seed: true, Hasher: plainHasher{}, Now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
		if err := Bootstrap(ctx, gw, opts); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		if err := Bootstrap(ctx, gw, opts); err != nil {
			return fmt.Errorf("second bootstrap: %w", err)
		}

		repo := NewAppointmentRepo(gw)
		confirmed, err := repo.ListConfirmed(ctx)
		if err != nil {
			return err
		}
		if len(confirmed) != 1 || confirmed[0].Date != "2026-03-02" {
			return fmt.Errorf("confirmed = %+v, want the seeded appointment", confirmed)
		}

		slot := domain.Slot{Date: "2026-03-02", Time: "11:00"}
		var booked domain.Appointment
		err = repo.InSlotTransaction(ctx, slot, func(ctx context.Context, stx store.SlotTx) error {
			taken, err := stx.SlotTaken(ctx, slot)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("slot unexpectedly taken")
			}
			booked, err = stx.InsertAppointment(ctx, domain.Appointment{
				Name: "Jane", Phone: "555-1234", Date: slot.Date, Time: slot.Time, OwnerEmail: "jane@example.com",
			})
			return err
		})
		if err != nil {
			return err
		}
		if booked.ID == 0 {
			return fmt.Errorf("expected id to be assigned")
		}

		times, err := repo.ConfirmedTimes(ctx, slot.Date)
		if err != nil {
			return err
		}
		if len(times) != 2 || times[0] != "10:00" || times[1] != "11:00" {
			return fmt.Errorf("times = %v, want [10:00 11:00]", times)
		}

		if ok, err := repo.Cancel(ctx, booked.ID, "someone@example.com"); err != nil || ok {
			return fmt.Errorf("cancel by non-owner = %v, %v", ok, err)
		}
		if ok, err := repo.Cancel(ctx, booked.ID, "jane@example.com"); err != nil || !ok {
			return fmt.Errorf("cancel by owner = %v, %v", ok, err)
		}

		// A unique violation aborts the transaction, so it runs last.
		_, err = insertAppointment(ctx, gw, domain.Appointment{
			Name: "Dup", Date: "2026-03-02", Time: "10:00", OwnerEmail: "dup@example.com",
		})
		if !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("duplicate slot err = %v, want %v", err, store.ErrConflict)
		}
		return errRollback
	})
	if err != nil && !errors.Is(err, errRollback) {
		t.Fatalf("tx error: %v", err)
	}
}

var errRollback = errors.New("rollback")

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}
