package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clinic/backend/internal/auth"
	"clinic/backend/internal/domain"
	"clinic/backend/internal/metrics"
	"clinic/backend/internal/service/appointments"
)

type appointmentsService interface {
	Book(ctx context.Context, p auth.Principal, in appointments.BookInput, now time.Time) (domain.Appointment, error)
	Cancel(ctx context.Context, p auth.Principal, id int64) (bool, error)
	ListUpcomingForPatient(ctx context.Context, p auth.Principal, now time.Time) ([]domain.Appointment, error)
	ListForPatient(ctx context.Context, p auth.Principal) ([]domain.Appointment, error)
	ListForDoctor(ctx context.Context, p auth.Principal) ([]domain.Appointment, error)
	SearchPatients(ctx context.Context, p auth.Principal, query string) ([]domain.Appointment, error)
	Day(ctx context.Context, date string, now time.Time) (appointments.SlotDay, error)
}

type accountsService interface {
	RegisterPatient(ctx context.Context, email, password string) (domain.PatientAccount, error)
	RegisterDoctor(ctx context.Context, email, password string) (domain.DoctorAccount, error)
	LoginPatient(ctx context.Context, email, password string) (auth.Principal, error)
	LoginDoctor(ctx context.Context, email, password string) (auth.Principal, error)
	SubmitFeedback(ctx context.Context, email, message string) (domain.Feedback, error)
}

type tokenService interface {
	Issue(p auth.Principal) (string, error)
	Verify(raw string) (auth.Principal, error)
}

type Options struct {
	Appointments   appointmentsService
	Accounts       accountsService
	Tokens         tokenService
	Metrics        *metrics.Metrics
	Log            *slog.Logger
	RequestTimeout time.Duration

	// Health reports storage reachability for /healthz. Optional.
	Health func(ctx context.Context) error
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	appts          appointmentsService
	accounts       accountsService
	tokens         tokenService
	metrics        *metrics.Metrics
	log            *slog.Logger
	requestTimeout time.Duration
	health         func(ctx context.Context) error
	now            func() time.Time
}

func NewServer(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Server{
		appts:          opts.Appointments,
		accounts:       opts.Accounts,
		tokens:         opts.Tokens,
		metrics:        opts.Metrics,
		log:            log.With(slog.String("component", "http")),
		requestTimeout: timeout,
		health:         opts.Health,
		now:            now,
	}
}

// Handler builds the gin engine with every route mounted.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.accessLog(), s.observe(), requestTimeout(s.requestTimeout))

	r.GET("/healthz", s.healthz)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api", s.authenticate())
	{
		api.POST("/patients/register", s.registerPatient)
		api.POST("/patients/login", s.loginPatient)
		api.POST("/doctors/register", s.registerDoctor)
		api.POST("/doctors/login", s.loginDoctor)
		api.POST("/feedback", s.submitFeedback)

		api.GET("/appointments", s.listAppointments)
		api.POST("/appointments", s.bookAppointment)
		api.GET("/appointments/upcoming", s.upcomingAppointments)
		api.POST("/appointments/:id/cancel", s.cancelAppointment)
		api.GET("/slots", s.slots)

		api.GET("/doctor/appointments", s.doctorAppointments)
		api.GET("/doctor/patients", s.searchPatients)
	}

	return r
}

func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			s.log.Warn("health check failed", slog.Any("err", err))
			c.JSON(http.StatusServiceUnavailable, errorBody("storage unavailable"))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
