package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Sla          SlaConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SlaConfig defines SLA engine parameters.
type SlaConfig struct {
	// CronSecret authenticates the external scheduler's trigger calls.
	CronSecret string `validate:"required"`
	// DedupWindowHours is the notification lookback window.
	DedupWindowHours int `validate:"gt=0"`
	// AtRiskThreshold is the fraction of remaining time at or below which
	// a ticket counts as at-risk.
	AtRiskThreshold float64 `validate:"gt=0,lte=1"`
	// PassBudgetSeconds bounds the wall-clock duration of one pass.
	PassBudgetSeconds int `validate:"gt=0"`
	// TicketTimeoutSeconds bounds the evaluation of one ticket.
	TicketTimeoutSeconds int `validate:"gt=0"`
	// ManagerCacheTTLMinutes bounds staleness of group-manager lookups.
	ManagerCacheTTLMinutes int `validate:"gt=0"`
	// SchedulerEnabled turns on the in-process ticker. Production runs
	// rely on the external cron hitting the HTTP trigger instead.
	SchedulerEnabled         bool
	SchedulerIntervalMinutes int `validate:"gt=0"`
}

// NotificationConfig holds stub delivery endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	atRiskThreshold, err := strconv.ParseFloat(getEnv("SLA_AT_RISK_THRESHOLD", "0.25"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_AT_RISK_THRESHOLD: %w", err)
	}

	appEnv := getEnv("APP_ENV", "development")

	// The secret has no fallback outside development; validation rejects
	// an unset value at startup.
	cronSecretDefault := ""
	if appEnv == "development" {
		cronSecretDefault = "dev-secret"
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "servicedesk-sla"),
			Env:                   appEnv,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Sla: SlaConfig{
			CronSecret:               getEnv("SLA_CRON_SECRET", cronSecretDefault),
			DedupWindowHours:         getEnvAsInt("SLA_DEDUP_WINDOW_HOURS", 4),
			AtRiskThreshold:          atRiskThreshold,
			PassBudgetSeconds:        getEnvAsInt("SLA_PASS_BUDGET_SECONDS", 300),
			TicketTimeoutSeconds:     getEnvAsInt("SLA_TICKET_TIMEOUT_SECONDS", 5),
			ManagerCacheTTLMinutes:   getEnvAsInt("SLA_MANAGER_CACHE_TTL_MINUTES", 5),
			SchedulerEnabled:         getEnvAsBool("SLA_SCHEDULER_ENABLED", false),
			SchedulerIntervalMinutes: getEnvAsInt("SLA_SCHEDULER_INTERVAL_MINUTES", 15),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if err := validator.New().Struct(cfg.Sla); err != nil {
		return nil, fmt.Errorf("invalid SLA configuration: %w", err)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// DedupWindow returns the notification lookback window.
func (s SlaConfig) DedupWindow() time.Duration {
	return time.Duration(s.DedupWindowHours) * time.Hour
}

// PassBudget returns the wall-clock budget for one scheduler pass.
func (s SlaConfig) PassBudget() time.Duration {
	return time.Duration(s.PassBudgetSeconds) * time.Second
}

// TicketTimeout returns the evaluation budget for one ticket.
func (s SlaConfig) TicketTimeout() time.Duration {
	return time.Duration(s.TicketTimeoutSeconds) * time.Second
}

// ManagerCacheTTL returns the group-manager lookup cache TTL.
func (s SlaConfig) ManagerCacheTTL() time.Duration {
	return time.Duration(s.ManagerCacheTTLMinutes) * time.Minute
}

// SchedulerInterval returns the in-process ticker interval.
func (s SlaConfig) SchedulerInterval() time.Duration {
	return time.Duration(s.SchedulerIntervalMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
