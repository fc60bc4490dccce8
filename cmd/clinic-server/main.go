package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"clinic/backend/internal/auth"
	"clinic/backend/internal/config"
	"clinic/backend/internal/metrics"
	"clinic/backend/internal/service/accounts"
	"clinic/backend/internal/service/appointments"
	"clinic/backend/internal/store/sqlstore"
	"clinic/backend/internal/transport/rest"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "clinic-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "clinic-server"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("log_level", cfg.LogLevel),
		slog.String("timezone", cfg.Location.String()),
	)

	opts := sqlstore.Options{
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		Pool: sqlstore.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		},
	}

	log.Info("connecting to database", databaseLogArgs(opts)...)
	db, backend, err := sqlstore.Open(opts)
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(opts)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := sqlstore.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	gw := sqlstore.NewGateway(db, backend)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	err = sqlstore.Bootstrap(bootCtx, gw, sqlstore.BootstrapOptions{
		Seed:   cfg.Seed,
		Hasher: hasher,
		Now:    time.Now().In(cfg.Location),
		Log:    log,
	})
	cancelBoot()
	if err != nil {
		log.Error("schema bootstrap failed", slog.Any("err", err), slog.String("backend", string(backend)))
		os.Exit(1)
	}

	tokens, err := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		log.Error("token setup failed", slog.Any("err", err))
		os.Exit(1)
	}

	apptSvc := appointments.NewService(sqlstore.NewAppointmentRepo(gw), cfg.Location)
	acctSvc := accounts.NewService(sqlstore.NewAccountRepo(gw), sqlstore.NewFeedbackRepo(gw), hasher)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	api := rest.NewServer(rest.Options{
		Appointments:   apptSvc,
		Accounts:       acctSvc,
		Tokens:         tokens,
		Metrics:        metrics.New("clinic"),
		Log:            log,
		RequestTimeout: cfg.HTTPRequestTimeout,
		Health:         db.PingContext,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr), slog.String("backend", string(backend)))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, httpServer, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func shutdown(log *slog.Logger, s *http.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown timed out; forcing close", slog.Any("err", err))
		_ = s.Close()
		return
	}
	log.Info("http server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// databaseLogArgs never includes credentials.
func databaseLogArgs(opts sqlstore.Options) []any {
	if opts.Backend() == sqlstore.BackendSQLite {
		return []any{
			slog.String("db_backend", string(sqlstore.BackendSQLite)),
			slog.String("db_path", opts.SQLitePath),
		}
	}

	u, err := url.Parse(opts.DatabaseURL)
	if err != nil {
		return []any{slog.String("db_backend", string(sqlstore.BackendPostgres)), slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_backend", string(sqlstore.BackendPostgres)),
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
