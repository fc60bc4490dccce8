package domain

import (
	"errors"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// UpcomingWindow is how far ahead an appointment counts as starting soon.
	UpcomingWindow = 15 * time.Minute

	// RestDay is the weekday on which the clinic takes no bookings in the UI.
	RestDay = time.Sunday
)

var ErrMalformedTimestamp = errors.New("malformed date or time")

// Slot is a unique (date, time) pair an appointment can occupy.
type Slot struct {
	Date string
	Time string
}

// Start returns the start instant of the slot interpreted in loc.
func (s Slot) Start(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.Time, loc)
	if err != nil {
		return time.Time{}, ErrMalformedTimestamp
	}
	return t, nil
}

func ParseDate(date string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, ErrMalformedTimestamp
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func IsRestDay(day time.Time) bool {
	return day.Weekday() == RestDay
}

// StartsSoon reports whether start lies in (now, now+UpcomingWindow].
func StartsSoon(start, now time.Time) bool {
	lead := start.Sub(now)
	return lead > 0 && lead <= UpcomingWindow
}
