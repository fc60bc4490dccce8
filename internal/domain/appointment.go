package domain

import (
	"errors"

	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "Confirmed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

var ErrInvalidTransition = errors.New("invalid appointment status transition")

func (s AppointmentStatus) Valid() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Transition reports the status reached by moving s to next.
// Confirmed -> Cancelled is the only allowed move; Cancelled is terminal.
func (s AppointmentStatus) Transition(next AppointmentStatus) (AppointmentStatus, error) {
	if s == StatusConfirmed && next == StatusCancelled {
		return next, nil
	}
	return s, ErrInvalidTransition
}

// Appointment is one booking of a slot. Age, Address and Phone are optional.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID         int64             `bun:"id,pk,autoincrement"`
	Name       string            `bun:"name,notnull"`
	Age        *int              `bun:"age"`
	Address    string            `bun:"address"`
	Phone      string            `bun:"phone"`
	Time       string            `bun:"time"`
	Date       string            `bun:"date"`
	OwnerEmail string            `bun:"owner_email"`
	Status     AppointmentStatus `bun:"status,default:'Confirmed'"`
}

func (a Appointment) Slot() Slot {
	return Slot{Date: a.Date, Time: a.Time}
}
