package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env      string
	HTTPPort string

	// DatabaseURL wins over the individual DB_* parts when set. When it is
	// empty the target database is created on startup if missing.
	DatabaseURL string
	DBUser      string
	DBPassword  string
	DBHost      string
	DBPort      int
	DBName      string
	DBAdminDB   string
	DBMaxConns  int

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	AdminUsername string
	AdminPassword string

	FrontendURL string
	StaticDir   string

	RedisAddr          string
	RedisPassword      string
	LoginRatePerMinute int
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPPort:           getEnv("PORT", "3000"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             intEnv("DB_PORT", 5432),
		DBName:             getEnv("DB_NAME", "attendance_db"),
		DBAdminDB:          getEnv("DB_ADMIN_DB", "postgres"),
		DBMaxConns:         intEnv("DB_MAX_CONNS", 10),
		JWTSecret:          getEnv("JWT_SECRET", "attendance_secret_key_2024"),
		JWTIssuer:          getEnv("JWT_ISSUER", "school-attendance"),
		TokenTTL:           durationEnv("TOKEN_TTL", 24*time.Hour),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", "admin123"),
		FrontendURL:        getEnv("FRONTEND_URL", "*"),
		StaticDir:          getEnv("STATIC_DIR", "../frontend"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		LoginRatePerMinute: intEnv("LOGIN_RATE_LIMIT_PER_MIN", 20),
	}
}

// IsProduction reports whether APP_ENV names a production deployment.
func (a App) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

// ProvisionDatabase reports whether the server is responsible for creating
// its own database. Hosted deployments hand us a DATABASE_URL instead.
func (a App) ProvisionDatabase() bool {
	return a.DatabaseURL == ""
}

// DSN returns the connection string for the application database.
func (a App) DSN() string {
	if a.DatabaseURL != "" {
		return a.DatabaseURL
	}
	return a.dsnFor(a.DBName)
}

// AdminDSN returns the connection string for the maintenance database used
// to issue CREATE DATABASE.
func (a App) AdminDSN() string {
	return a.dsnFor(a.DBAdminDB)
}

func (a App) dsnFor(database string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(a.DBUser, a.DBPassword),
		Host:     net.JoinHostPort(a.DBHost, fmt.Sprintf("%d", a.DBPort)),
		Path:     "/" + database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			slog.Warn("invalid duration, using fallback", "key", key, "error", err, "fallback", fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		slog.Warn("invalid int, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}
