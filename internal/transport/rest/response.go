package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic/backend/internal/domain"
	"clinic/backend/internal/service/accounts"
	"clinic/backend/internal/service/appointments"
)

type response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func successBody(data any) response {
	return response{Status: "success", Data: data}
}

func errorBody(message string) response {
	return response{Status: "error", Message: message}
}

type appointmentJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Age        *int   `json:"age,omitempty"`
	Address    string `json:"address,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	OwnerEmail string `json:"owner_email,omitempty"`
	Status     string `json:"status"`
}

func toAppointmentJSON(a domain.Appointment) appointmentJSON {
	return appointmentJSON{
		ID:         a.ID,
		Name:       a.Name,
		Age:        a.Age,
		Address:    a.Address,
		Phone:      a.Phone,
		Date:       a.Date,
		Time:       a.Time,
		OwnerEmail: a.OwnerEmail,
		Status:     string(a.Status),
	}
}

func toAppointmentsJSON(in []domain.Appointment) []appointmentJSON {
	out := make([]appointmentJSON, 0, len(in))
	for _, a := range in {
		out = append(out, toAppointmentJSON(a))
	}
	return out
}

// writeError maps service errors onto statuses. Unknown errors are logged
// and reported as a generic 500.
func (s *Server) writeError(c *gin.Context, op string, err error) {
	log := s.log.With(slog.String("op", op), slog.String("request_id", c.GetString(ctxRequestID)))

	var apptErr *appointments.ValidationError
	var acctErr *accounts.ValidationError
	switch {
	case errors.As(err, &apptErr), errors.As(err, &acctErr):
		log.Warn("invalid request", slog.Any("err", err))
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, appointments.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, errorBody("Log in to continue."))
	case errors.Is(err, accounts.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorBody("Incorrect email or password. Try again."))
	case errors.Is(err, appointments.ErrForbidden):
		c.JSON(http.StatusForbidden, errorBody("Your account type cannot use this page."))
	case errors.Is(err, appointments.ErrPastSlot):
		log.Info("booking rejected", slog.String("reason", "past_slot"))
		c.JSON(http.StatusConflict, errorBody("That time has already passed. Pick a future date and time."))
	case errors.Is(err, appointments.ErrSlotTaken):
		log.Info("booking rejected", slog.String("reason", "slot_taken"))
		c.JSON(http.StatusConflict, errorBody("That slot is already booked. Pick a different time."))
	case errors.Is(err, accounts.ErrAccountExists):
		c.JSON(http.StatusConflict, errorBody("An account with that email already exists. Log in instead."))
	case errors.Is(err, context.DeadlineExceeded):
		log.Error("request timed out", slog.Any("err", err))
		c.JSON(http.StatusGatewayTimeout, errorBody("request timed out"))
	default:
		log.Error("request failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}
}
