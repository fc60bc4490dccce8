package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clinic/backend/internal/domain"
	"clinic/backend/internal/store"
)

const appointmentColumns = `id, name, age, address, phone, "time", "date", owner_email, status`

// likeEscaper makes LIKE treat % and _ literally under ESCAPE '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

type AppointmentRepo struct {
	gw *Gateway
}

func NewAppointmentRepo(gw *Gateway) *AppointmentRepo {
	return &AppointmentRepo{gw: gw}
}

type slotTx struct {
	gw *Gateway
}

// InSlotTransaction runs fn in a transaction that serializes bookers of the
// same slot. Postgres takes a transaction-scoped advisory lock; the SQLite
// pool has a single connection so transactions are already serialized.
func (r *AppointmentRepo) InSlotTransaction(ctx context.Context, slot domain.Slot, fn func(ctx context.Context, tx store.SlotTx) error) error {
	return r.gw.RunInTx(ctx, func(ctx context.Context, gw *Gateway) error {
		if err := lockSlot(ctx, gw, slot); err != nil {
			return err
		}
		return fn(ctx, slotTx{gw: gw})
	})
}

func lockSlot(ctx context.Context, gw *Gateway, slot domain.Slot) error {
	if gw.Backend() != BackendPostgres {
		return nil
	}
	_, err := gw.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", "slot:"+slot.Date+" "+slot.Time)
	return err
}

func (t slotTx) SlotTaken(ctx context.Context, slot domain.Slot) (bool, error) {
	return slotTaken(ctx, t.gw, slot)
}

func (t slotTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	return insertAppointment(ctx, t.gw, appt)
}

func (r *AppointmentRepo) SlotTaken(ctx context.Context, slot domain.Slot) (bool, error) {
	return slotTaken(ctx, r.gw, slot)
}

func slotTaken(ctx context.Context, gw *Gateway, slot domain.Slot) (bool, error) {
	row, err := gw.FetchOne(ctx,
		`SELECT id FROM appointments WHERE "date" = ? AND "time" = ? AND status = ? LIMIT 1`,
		slot.Date, slot.Time, string(domain.StatusConfirmed),
	)
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

func insertAppointment(ctx context.Context, gw *Gateway, appt domain.Appointment) (domain.Appointment, error) {
	if appt.Status == "" {
		appt.Status = domain.StatusConfirmed
	}
	row, err := gw.FetchOne(ctx,
		`INSERT INTO appointments (name, age, address, phone, "time", "date", owner_email, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		appt.Name, appt.Age, appt.Address, appt.Phone, appt.Time, appt.Date, appt.OwnerEmail, string(appt.Status),
	)
	if err != nil {
		return domain.Appointment{}, err
	}
	if row == nil {
		return domain.Appointment{}, errors.New("insert appointment: no id returned")
	}
	appt.ID = row.Int64("id")
	return appt, nil
}

func (r *AppointmentRepo) ListByOwner(ctx context.Context, ownerEmail string) ([]domain.Appointment, error) {
	return r.list(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE owner_email = ? ORDER BY "date" DESC, "time" DESC, id DESC`,
		ownerEmail,
	)
}

func (r *AppointmentRepo) ListConfirmedByOwnerOnDate(ctx context.Context, ownerEmail, date string) ([]domain.Appointment, error) {
	return r.list(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE owner_email = ? AND "date" = ? AND status = ? ORDER BY "time", id`,
		ownerEmail, date, string(domain.StatusConfirmed),
	)
}

func (r *AppointmentRepo) ListConfirmed(ctx context.Context) ([]domain.Appointment, error) {
	return r.list(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE status = ? ORDER BY "date", "time", id`,
		string(domain.StatusConfirmed),
	)
}

// Search matches name or phone by substring; an empty query returns everything.
func (r *AppointmentRepo) Search(ctx context.Context, query string) ([]domain.Appointment, error) {
	if query == "" {
		return r.list(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY name, id`)
	}
	pattern := "%" + likeEscaper.Replace(query) + "%"
	return r.list(ctx,
		`SELECT `+appointmentColumns+` FROM appointments
			WHERE (name LIKE ? ESCAPE '!' OR phone LIKE ? ESCAPE '!') ORDER BY name, id`,
		pattern, pattern,
	)
}

func (r *AppointmentRepo) ConfirmedTimes(ctx context.Context, date string) ([]string, error) {
	rows, err := r.gw.FetchAll(ctx,
		`SELECT "time" FROM appointments WHERE "date" = ? AND status = ? ORDER BY "time"`,
		date, string(domain.StatusConfirmed),
	)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.String("time"))
	}
	return out, nil
}

// Cancel reports whether a confirmed appointment owned by ownerEmail was cancelled.
func (r *AppointmentRepo) Cancel(ctx context.Context, id int64, ownerEmail string) (bool, error) {
	from := domain.StatusConfirmed
	to, err := from.Transition(domain.StatusCancelled)
	if err != nil {
		return false, err
	}
	affected, err := r.gw.Exec(ctx,
		`UPDATE appointments SET status = ? WHERE id = ? AND owner_email = ? AND status = ?`,
		string(to), id, ownerEmail, string(from),
	)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *AppointmentRepo) list(ctx context.Context, query string, args ...any) ([]domain.Appointment, error) {
	rows, err := r.gw.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	out := make([]domain.Appointment, 0, len(rows))
	for _, row := range rows {
		out = append(out, appointmentFromRow(row))
	}
	return out, nil
}

func appointmentFromRow(row Row) domain.Appointment {
	return domain.Appointment{
		ID:         row.Int64("id"),
		Name:       row.String("name"),
		Age:        row.OptInt("age"),
		Address:    row.String("address"),
		Phone:      row.String("phone"),
		Time:       row.String("time"),
		Date:       row.String("date"),
		OwnerEmail: row.String("owner_email"),
		Status:     domain.AppointmentStatus(row.String("status")),
	}
}
