package sqlstore

import (
	"context"
	"fmt"
	"errors"
	"log/slog"
	"strings"
	"time"

	"clinic/backend/internal/domain"
)

const (
	SeedDoctorEmail     = "doctor@example.com"
	SeedDoctorPassword  = "password123"
	SeedPatientEmail    = "patient@example.com"
	SeedPatientPassword = "patient123"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type BootstrapOptions struct {
	Seed   bool
	Hasher PasswordHasher
	// Now dates the demo appointment; its calendar date is used as-is.
	Now time.Time
	Log *slog.Logger
}

var schemaStatements = map[Backend][]string{
	BackendPostgres: {
		`CREATE TABLE IF NOT EXISTS patients (
			id BIGSERIAL PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS doctors (
			id BIGSERIAL PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL,
			message TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			age INTEGER,
			address TEXT,
			phone TEXT,
			"time" TEXT,
			"date" TEXT,
			owner_email TEXT,
			status TEXT DEFAULT 'Confirmed'
		)`,
	},
	BackendSQLite: {
		`CREATE TABLE IF NOT EXISTS patients (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS doctors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL,
			message TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			age INTEGER,
			address TEXT,
			phone TEXT,
			"time" TEXT,
			"date" TEXT,
			owner_email TEXT,
			status TEXT DEFAULT 'Confirmed'
		)`,
	},
}

var columnQueries = map[Backend]string{
	BackendPostgres: `SELECT column_name AS name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = 'appointments'`,
	BackendSQLite: `PRAGMA table_info(appointments)`,
}

// Index statements run after legacy columns are in place.
var indexStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS appointments_confirmed_slot_uniq
		ON appointments ("date", "time") WHERE status = 'Confirmed'`,
	`CREATE INDEX IF NOT EXISTS appointments_owner_email_idx ON appointments (owner_email)`,
}

var ErrDuplicateSlots = errors.New("existing appointments double-book confirmed slots")

// Bootstrap creates the schema if needed and seeds the demo accounts.
// It is safe to run on every start.
func Bootstrap(ctx context.Context, gw *Gateway, opts BootstrapOptions) error {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	stmts, ok := schemaStatements[gw.Backend()]
	if !ok {
		return fmt.Errorf("unsupported backend %q", gw.Backend())
	}
	for _, stmt := range stmts {
		if _, err := gw.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	if err := ensureStatusColumn(ctx, gw, log); err != nil {
		return err
	}
	if err := checkDuplicateSlots(ctx, gw, log); err != nil {
		return err
	}

	for _, stmt := range indexStatements {
		if _, err := gw.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	if !opts.Seed {
		return nil
	}
	if opts.Hasher == nil {
		return fmt.Errorf("seed requires a password hasher")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	return gw.RunInTx(ctx, func(ctx context.Context, tx *Gateway) error {
		return seed(ctx, tx, opts.Hasher, now, log)
	})
}

func ensureStatusColumn(ctx context.Context, gw *Gateway, log *slog.Logger) error {
	rows, err := gw.FetchAll(ctx, columnQueries[gw.Backend()])
	if err != nil {
		return fmt.Errorf("inspect appointments columns: %w", err)
	}
	for _, r := range rows {
		if r.String("name") == "status" {
			return nil
		}
	}

	log.Info("adding missing appointments.status column")
	if _, err := gw.Exec(ctx, `ALTER TABLE appointments ADD COLUMN status TEXT DEFAULT 'Confirmed'`); err != nil {
		return fmt.Errorf("add status column: %w", err)
	}
	return nil
}

// checkDuplicateSlots fails before the unique slot index is built when older
// data holds more than one confirmed appointment for the same slot.
func checkDuplicateSlots(ctx context.Context, gw *Gateway, log *slog.Logger) error {
	rows, err := gw.FetchAll(ctx,
		`SELECT "date", "time", COUNT(*) AS n FROM appointments
			WHERE status = ? GROUP BY "date", "time" HAVING COUNT(*) > 1 ORDER BY "date", "time"`,
		string(domain.StatusConfirmed),
	)
	if err != nil {
		return fmt.Errorf("inspect duplicate slots: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	slots := make([]string, 0, len(rows))
	for _, r := range rows {
		slot := r.String("date") + " " + r.String("time")
		slots = append(slots, slot)
		log.Error("slot double-booked in existing data",
			slog.String("date", r.String("date")),
			slog.String("time", r.String("time")),
			slog.Int64("confirmed", r.Int64("n")),
		)
	}
	return fmt.Errorf("%w: %s; set status = 'Cancelled' on all but one confirmed appointment per slot and restart",
		ErrDuplicateSlots, strings.Join(slots, ", "))
}

func seed(ctx context.Context, gw *Gateway, hasher PasswordHasher, now time.Time, log *slog.Logger) error {
	doctor, err := gw.FetchOne(ctx, `SELECT id FROM doctors WHERE email = ?`, SeedDoctorEmail)
	if err != nil {
		return err
	}
	if doctor == nil {
		hash, err := hasher.Hash(SeedDoctorPassword)
		if err != nil {
			return err
		}
		if _, err := gw.Exec(ctx, `INSERT INTO doctors (email, password) VALUES (?, ?)`, SeedDoctorEmail, hash); err != nil {
			return fmt.Errorf("seed doctor: %w", err)
		}
		log.Info("seeded doctor account", slog.String("email", SeedDoctorEmail))
	}

	count, err := gw.FetchOne(ctx, `SELECT COUNT(*) AS n FROM patients`)
	if err != nil {
		return err
	}
	if count.Int64("n") > 0 {
		return nil
	}

	hash, err := hasher.Hash(SeedPatientPassword)
	if err != nil {
		return err
	}
	if _, err := gw.Exec(ctx, `INSERT INTO patients (email, password) VALUES (?, ?)`, SeedPatientEmail, hash); err != nil {
		return fmt.Errorf("seed patient: %w", err)
	}

	age := 30
	appt, err := insertAppointment(ctx, gw, domain.Appointment{
		Name:       "John Doe",
		Age:        &age,
		Address:    "123 Test St",
		Phone:      "555-0199",
		Time:       "10:00",
		Date:       domain.FormatDate(now),
		OwnerEmail: SeedPatientEmail,
		Status:     domain.StatusConfirmed,
	})
	if err != nil {
		return fmt.Errorf("seed appointment: %w", err)
	}
	log.Info(
		"seeded patient account",
		slog.String("email", SeedPatientEmail),
		slog.Int64("appointment_id", appt.ID),
		slog.String("date", appt.Date),
	)
	return nil
}
