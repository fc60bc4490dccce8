package store

import (
	"context"

	"clinic/backend/internal/domain"
)

type AppointmentRepository interface {
	InSlotTransaction(ctx context.Context, slot domain.Slot, fn func(ctx context.Context, tx SlotTx) error) error

	SlotTaken(ctx context.Context, slot domain.Slot) (bool, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]domain.Appointment, error)
	ListConfirmedByOwnerOnDate(ctx context.Context, ownerEmail, date string) ([]domain.Appointment, error)
	ListConfirmed(ctx context.Context) ([]domain.Appointment, error)
	Search(ctx context.Context, query string) ([]domain.Appointment, error)
	ConfirmedTimes(ctx context.Context, date string) ([]string, error)
	Cancel(ctx context.Context, id int64, ownerEmail string) (bool, error)
}

// SlotTx runs against a transaction that holds the slot's booking lock.
type SlotTx interface {
	SlotTaken(ctx context.Context, slot domain.Slot) (bool, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}
