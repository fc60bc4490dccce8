package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinic/backend/internal/auth"
	"clinic/backend/internal/domain"
	"clinic/backend/internal/store"
)

var (
	ErrPastSlot        = errors.New("slot is not in the future")
	ErrSlotTaken       = errors.New("slot already booked")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed for this role")
)

type ValidationError struct {
	msg string
	err error
}

func (e *ValidationError) Error() string {
	return e.msg
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

func malformedSlot() error {
	return &ValidationError{msg: "date must be YYYY-MM-DD and time HH:MM", err: domain.ErrMalformedTimestamp}
}

const maxAge = 150

type Service struct {
	repo store.AppointmentRepository
	loc  *time.Location
}

// NewService interprets stored dates and times in loc (time.Local when nil).
func NewService(repo store.AppointmentRepository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, loc: loc}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

type BookInput struct {
	Name    string
	Age     *int
	Address string
	Phone   string
	Date    string
	Time    string
}

// Book reserves a future slot for the calling patient.
func (s *Service) Book(ctx context.Context, p auth.Principal, in BookInput, now time.Time) (domain.Appointment, error) {
	if err := requirePatient(p); err != nil {
		return domain.Appointment{}, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Appointment{}, validationError("name is required")
	}
	if in.Age != nil && (*in.Age < 0 || *in.Age > maxAge) {
		return domain.Appointment{}, validationError("age is out of range")
	}

	slot, start, err := s.parseSlot(in.Date, in.Time)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !start.After(now) {
		return domain.Appointment{}, ErrPastSlot
	}

	appt := domain.Appointment{
		Name:       name,
		Age:        in.Age,
		Address:    strings.TrimSpace(in.Address),
		Phone:      strings.TrimSpace(in.Phone),
		Date:       slot.Date,
		Time:       slot.Time,
		OwnerEmail: p.Email,
		Status:     domain.StatusConfirmed,
	}

	var out domain.Appointment
	err = s.repo.InSlotTransaction(ctx, slot, func(ctx context.Context, tx store.SlotTx) error {
		taken, err := tx.SlotTaken(ctx, slot)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}
		out, err = tx.InsertAppointment(ctx, appt)
		return err
	})
	if err != nil {
		// A concurrent booker won the race and tripped the unique index.
		if errors.Is(err, store.ErrConflict) {
			return domain.Appointment{}, ErrSlotTaken
		}
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Service) IsSlotAvailable(ctx context.Context, date, clock string) (bool, error) {
	slot, _, err := s.parseSlot(date, clock)
	if err != nil {
		return false, err
	}
	taken, err := s.repo.SlotTaken(ctx, slot)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// Cancel is a no-op when id does not name a confirmed appointment owned by
// the caller, so non-owners learn nothing about other bookings. The bool
// reports whether a row actually moved to Cancelled.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, id int64) (bool, error) {
	if err := requirePatient(p); err != nil {
		return false, err
	}
	if id <= 0 {
		return false, validationError("appointment id is required")
	}
	return s.repo.Cancel(ctx, id, p.Email)
}

// ListUpcomingForPatient returns today's confirmed appointments of the caller
// that start within domain.UpcomingWindow of now. Rows whose stored date or
// time does not parse are skipped.
func (s *Service) ListUpcomingForPatient(ctx context.Context, p auth.Principal, now time.Time) ([]domain.Appointment, error) {
	if !p.IsPatient() {
		return []domain.Appointment{}, nil
	}

	now = now.In(s.loc)
	rows, err := s.repo.ListConfirmedByOwnerOnDate(ctx, p.Email, domain.FormatDate(now))
	if err != nil {
		return nil, err
	}

	out := make([]domain.Appointment, 0, len(rows))
	for _, a := range rows {
		start, err := a.Slot().Start(s.loc)
		if err != nil {
			continue
		}
		if domain.StartsSoon(start, now) {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListForPatient returns every appointment the caller owns, newest first.
func (s *Service) ListForPatient(ctx context.Context, p auth.Principal) ([]domain.Appointment, error) {
	if err := requirePatient(p); err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(ctx, p.Email)
}

func (s *Service) ListForDoctor(ctx context.Context, p auth.Principal) ([]domain.Appointment, error) {
	if err := requireDoctor(p); err != nil {
		return nil, err
	}
	return s.repo.ListConfirmed(ctx)
}

func (s *Service) SearchPatients(ctx context.Context, p auth.Principal, query string) ([]domain.Appointment, error) {
	if err := requireDoctor(p); err != nil {
		return nil, err
	}
	return s.repo.Search(ctx, strings.TrimSpace(query))
}

func (s *Service) BookedSlots(ctx context.Context, date string) ([]string, error) {
	day, err := domain.ParseDate(strings.TrimSpace(date), s.loc)
	if err != nil {
		return nil, malformedSlot()
	}
	return s.repo.ConfirmedTimes(ctx, domain.FormatDate(day))
}

type SlotDay struct {
	Date        string
	BookedSlots []string
	RestDay     bool
}

// Day describes the booked slots of date, defaulting to today when empty.
func (s *Service) Day(ctx context.Context, date string, now time.Time) (SlotDay, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = domain.FormatDate(now.In(s.loc))
	}
	day, err := domain.ParseDate(date, s.loc)
	if err != nil {
		return SlotDay{}, malformedSlot()
	}
	date = domain.FormatDate(day)

	booked, err := s.repo.ConfirmedTimes(ctx, date)
	if err != nil {
		return SlotDay{}, err
	}
	return SlotDay{
		Date:        date,
		BookedSlots: booked,
		RestDay:     domain.IsRestDay(day),
	}, nil
}

// parseSlot returns the slot in canonical form so "9:05" and "09:05" name
// the same slot.
func (s *Service) parseSlot(date, clock string) (domain.Slot, time.Time, error) {
	raw := domain.Slot{Date: strings.TrimSpace(date), Time: strings.TrimSpace(clock)}
	start, err := raw.Start(s.loc)
	if err != nil {
		return domain.Slot{}, time.Time{}, malformedSlot()
	}
	return domain.Slot{
		Date: start.Format(domain.DateLayout),
		Time: start.Format(domain.TimeLayout),
	}, start, nil
}

func requirePatient(p auth.Principal) error {
	if !p.Authenticated() {
		return ErrUnauthenticated
	}
	if !p.IsPatient() {
		return ErrForbidden
	}
	return nil
}

func requireDoctor(p auth.Principal) error {
	if !p.Authenticated() {
		return ErrUnauthenticated
	}
	if !p.IsDoctor() {
		return ErrForbidden
	}
	return nil
}
