package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const devTokenSecret = "clinic-dev-secret"

type Config struct {
	HTTPAddr           string
	HTTPRequestTimeout time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           string
	Env                string

	DatabaseURL       string
	SQLitePath        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	TokenSecret string
	TokenTTL    time.Duration
	BcryptCost  int

	Location *time.Location
	Seed     bool
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "dev")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.port", "")
	v.SetDefault("http.request_timeout", "10s")
	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite_path", "instance/doctor_appointment.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.bcrypt_cost", 0)
	v.SetDefault("clinic.timezone", "Local")
	v.SetDefault("seed.enabled", true)
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("log.level", "info")

	_ = v.BindEnv("env", "CLINIC_ENV", "APP_ENV")
	_ = v.BindEnv("http.addr", "CLINIC_HTTP_ADDR", "HTTP_ADDR")
	_ = v.BindEnv("http.port", "CLINIC_HTTP_PORT", "PORT")
	_ = v.BindEnv("http.request_timeout", "CLINIC_HTTP_REQUEST_TIMEOUT")
	_ = v.BindEnv("database.url", "CLINIC_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("database.sqlite_path", "CLINIC_DATABASE_SQLITE_PATH")
	_ = v.BindEnv("database.max_open_conns", "CLINIC_DATABASE_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.max_idle_conns", "CLINIC_DATABASE_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.conn_max_lifetime", "CLINIC_DATABASE_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.conn_max_idle_time", "CLINIC_DATABASE_CONN_MAX_IDLE_TIME")
	_ = v.BindEnv("auth.token_secret", "CLINIC_AUTH_TOKEN_SECRET", "SECRET_KEY")
	_ = v.BindEnv("auth.token_ttl", "CLINIC_AUTH_TOKEN_TTL")
	_ = v.BindEnv("auth.bcrypt_cost", "CLINIC_AUTH_BCRYPT_COST")
	_ = v.BindEnv("clinic.timezone", "CLINIC_TIMEZONE", "TZ")
	_ = v.BindEnv("seed.enabled", "CLINIC_SEED_ENABLED")
	_ = v.BindEnv("shutdown.timeout", "CLINIC_SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT")
	_ = v.BindEnv("log.level", "CLINIC_LOG_LEVEL", "LOG_LEVEL")

	requestTimeout, err := time.ParseDuration(v.GetString("http.request_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("http.request_timeout: %w", err)
	}
	shutdownTimeout, err := time.ParseDuration(v.GetString("shutdown.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("shutdown.timeout: %w", err)
	}
	connMaxLifetime, err := time.ParseDuration(v.GetString("database.conn_max_lifetime"))
	if err != nil {
		return Config{}, fmt.Errorf("database.conn_max_lifetime: %w", err)
	}
	connMaxIdleTime, err := time.ParseDuration(v.GetString("database.conn_max_idle_time"))
	if err != nil {
		return Config{}, fmt.Errorf("database.conn_max_idle_time: %w", err)
	}
	tokenTTL, err := time.ParseDuration(v.GetString("auth.token_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("auth.token_ttl: %w", err)
	}

	loc, err := loadLocation(v.GetString("clinic.timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("clinic.timezone: %w", err)
	}

	env := strings.ToLower(strings.TrimSpace(v.GetString("env")))
	secret := v.GetString("auth.token_secret")
	if secret == "" {
		if env != "dev" && env != "test" {
			return Config{}, fmt.Errorf("auth.token_secret is required when env=%s", env)
		}
		secret = devTokenSecret
	}

	addr := strings.TrimSpace(v.GetString("http.addr"))
	if port := strings.TrimSpace(v.GetString("http.port")); port != "" {
		addr = ":" + port
	}

	return Config{
		HTTPAddr:           addr,
		HTTPRequestTimeout: requestTimeout,
		ShutdownTimeout:    shutdownTimeout,
		LogLevel:           v.GetString("log.level"),
		Env:                env,
		DatabaseURL:        strings.TrimSpace(v.GetString("database.url")),
		SQLitePath:         strings.TrimSpace(v.GetString("database.sqlite_path")),
		DBMaxOpenConns:     v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:     v.GetInt("database.max_idle_conns"),
		DBConnMaxLifetime:  connMaxLifetime,
		DBConnMaxIdleTime:  connMaxIdleTime,
		TokenSecret:        secret,
		TokenTTL:           tokenTTL,
		BcryptCost:         v.GetInt("auth.bcrypt_cost"),
		Location:           loc,
		Seed:               v.GetBool("seed.enabled"),
	}, nil
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
