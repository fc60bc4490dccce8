package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clinic/backend/internal/auth"
	"clinic/backend/internal/metrics"
	"clinic/backend/internal/service/appointments"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type feedbackRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type bookRequest struct {
	Name    string `json:"name"`
	Age     *int   `json:"age"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

func (s *Server) registerPatient(c *gin.Context) {
	var req credentialsRequest
	if !s.bind(c, &req) {
		return
	}
	acct, err := s.accounts.RegisterPatient(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, "register_patient", err)
		return
	}
	s.log.Info("patient registered", slog.Int64("account_id", acct.ID))
	c.JSON(http.StatusCreated, successBody(gin.H{"id": acct.ID, "email": acct.Email}))
}

func (s *Server) registerDoctor(c *gin.Context) {
	var req credentialsRequest
	if !s.bind(c, &req) {
		return
	}
	acct, err := s.accounts.RegisterDoctor(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, "register_doctor", err)
		return
	}
	s.log.Info("doctor registered", slog.Int64("account_id", acct.ID))
	c.JSON(http.StatusCreated, successBody(gin.H{"id": acct.ID, "email": acct.Email}))
}

func (s *Server) loginPatient(c *gin.Context) {
	var req credentialsRequest
	if !s.bind(c, &req) {
		return
	}
	p, err := s.accounts.LoginPatient(c.Request.Context(), req.Email, req.Password)
	s.respondLogin(c, "login_patient", p, err)
}

func (s *Server) loginDoctor(c *gin.Context) {
	var req credentialsRequest
	if !s.bind(c, &req) {
		return
	}
	p, err := s.accounts.LoginDoctor(c.Request.Context(), req.Email, req.Password)
	s.respondLogin(c, "login_doctor", p, err)
}

func (s *Server) respondLogin(c *gin.Context, op string, p auth.Principal, err error) {
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	token, err := s.tokens.Issue(p)
	if err != nil {
		s.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, successBody(gin.H{
		"token": token,
		"email": p.Email,
		"role":  p.Role,
	}))
}

func (s *Server) submitFeedback(c *gin.Context) {
	var req feedbackRequest
	if !s.bind(c, &req) {
		return
	}
	fb, err := s.accounts.SubmitFeedback(c.Request.Context(), req.Email, req.Message)
	if err != nil {
		s.writeError(c, "submit_feedback", err)
		return
	}
	c.JSON(http.StatusCreated, response{
		Status:  "success",
		Message: "Thank you for your feedback!",
		Data:    gin.H{"id": fb.ID},
	})
}

func (s *Server) bookAppointment(c *gin.Context) {
	var req bookRequest
	if !s.bind(c, &req) {
		s.recordBooking(metrics.OutcomeInvalid)
		return
	}

	appt, err := s.appts.Book(c.Request.Context(), principal(c), appointments.BookInput{
		Name:    req.Name,
		Age:     req.Age,
		Address: req.Address,
		Phone:   req.Phone,
		Date:    req.Date,
		Time:    req.Time,
	}, s.now())
	if err != nil {
		s.recordBooking(bookingOutcome(err))
		s.writeError(c, "book_appointment", err)
		return
	}

	s.recordBooking(metrics.OutcomeBooked)
	s.log.Info(
		"appointment booked",
		slog.Int64("appointment_id", appt.ID),
		slog.String("date", appt.Date),
		slog.String("time", appt.Time),
	)
	c.JSON(http.StatusCreated, response{
		Status:  "success",
		Message: "Appointment booked successfully!",
		Data:    toAppointmentJSON(appt),
	})
}

func (s *Server) cancelAppointment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorBody("appointment id must be a positive integer"))
		return
	}
	cancelled, err := s.appts.Cancel(c.Request.Context(), principal(c), id)
	if err != nil {
		s.writeError(c, "cancel_appointment", err)
		return
	}
	if cancelled && s.metrics != nil {
		s.metrics.Cancellations.Inc()
	}
	c.JSON(http.StatusOK, response{
		Status:  "success",
		Message: "Appointment cancelled.",
		Data:    gin.H{"id": id},
	})
}

func (s *Server) listAppointments(c *gin.Context) {
	appts, err := s.appts.ListForPatient(c.Request.Context(), principal(c))
	if err != nil {
		s.writeError(c, "list_appointments", err)
		return
	}
	c.JSON(http.StatusOK, successBody(toAppointmentsJSON(appts)))
}

func (s *Server) upcomingAppointments(c *gin.Context) {
	appts, err := s.appts.ListUpcomingForPatient(c.Request.Context(), principal(c), s.now())
	if err != nil {
		s.writeError(c, "upcoming_appointments", err)
		return
	}
	c.JSON(http.StatusOK, successBody(toAppointmentsJSON(appts)))
}

func (s *Server) slots(c *gin.Context) {
	day, err := s.appts.Day(c.Request.Context(), c.Query("date"), s.now())
	if err != nil {
		s.writeError(c, "slots", err)
		return
	}
	booked := day.BookedSlots
	if booked == nil {
		booked = []string{}
	}
	c.JSON(http.StatusOK, successBody(gin.H{
		"date":         day.Date,
		"booked_slots": booked,
		"rest_day":     day.RestDay,
	}))
}

func (s *Server) doctorAppointments(c *gin.Context) {
	appts, err := s.appts.ListForDoctor(c.Request.Context(), principal(c))
	if err != nil {
		s.writeError(c, "doctor_appointments", err)
		return
	}
	c.JSON(http.StatusOK, successBody(toAppointmentsJSON(appts)))
}

func (s *Server) searchPatients(c *gin.Context) {
	appts, err := s.appts.SearchPatients(c.Request.Context(), principal(c), c.Query("search"))
	if err != nil {
		s.writeError(c, "search_patients", err)
		return
	}
	c.JSON(http.StatusOK, successBody(toAppointmentsJSON(appts)))
}

func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.log.Warn("invalid request body", slog.Any("err", err), slog.String("request_id", c.GetString(ctxRequestID)))
		c.JSON(http.StatusBadRequest, errorBody("request body must be valid JSON"))
		return false
	}
	return true
}

func (s *Server) recordBooking(outcome string) {
	if s.metrics != nil {
		s.metrics.Bookings.WithLabelValues(outcome).Inc()
	}
}

func bookingOutcome(err error) string {
	var vErr *appointments.ValidationError
	switch {
	case errors.Is(err, appointments.ErrPastSlot):
		return metrics.OutcomePastSlot
	case errors.Is(err, appointments.ErrSlotTaken):
		return metrics.OutcomeTaken
	case errors.As(err, &vErr), errors.Is(err, appointments.ErrUnauthenticated), errors.Is(err, appointments.ErrForbidden):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
