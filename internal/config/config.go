package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/campfirehq/intake-service/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Chat     ChatConfig
	Intake   IntakeConfig
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
	Level  string
	Format string
}

// AuthConfig defines staff authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// ChatConfig points at the bot gateway and the platform objects the service
// operates on: partitions, the panel channel and the roles involved.
type ChatConfig struct {
	GatewayURL            string
	GatewayToken          string
	GatewayTimeoutSeconds int

	PanelChannelID    string
	FirstPrimaryID    string
	FirstOverflowID   string
	SecondReviewID    string
	ArchiveID         string
	RequiredRoleID    string
	ApprovedRoleID    string
	StaffRoleID       string
	StaffOverrideIDs  []string
}

// IntakeConfig is the admission and lifecycle policy.
type IntakeConfig struct {
	DailyLimit         int
	Timezone           string
	OpenHour           int
	CloseHour          int
	QuotaResetHour     int
	RemindAfter        time.Duration
	ArchiveAfter       time.Duration
	ConfirmGrace       time.Duration
	CategoryCapacity   int
	HistoryLimit       int
	WorkspaceOpTimeout time.Duration
	RatePerMinute      int

	location *time.Location
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "intake-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Chat: ChatConfig{
			GatewayURL:            getEnv("CHAT_GATEWAY_URL", "http://127.0.0.1:9090"),
			GatewayToken:          os.Getenv("CHAT_GATEWAY_TOKEN"),
			GatewayTimeoutSeconds: getEnvAsInt("CHAT_GATEWAY_TIMEOUT_SECONDS", 15),
			PanelChannelID:        os.Getenv("CHAT_PANEL_CHANNEL_ID"),
			FirstPrimaryID:        os.Getenv("CHAT_FIRST_REVIEW_PRIMARY_ID"),
			FirstOverflowID:       os.Getenv("CHAT_FIRST_REVIEW_OVERFLOW_ID"),
			SecondReviewID:        os.Getenv("CHAT_SECOND_REVIEW_ID"),
			ArchiveID:             os.Getenv("CHAT_ARCHIVE_ID"),
			RequiredRoleID:        os.Getenv("CHAT_REQUIRED_ROLE_ID"),
			ApprovedRoleID:        os.Getenv("CHAT_APPROVED_ROLE_ID"),
			StaffRoleID:           os.Getenv("CHAT_STAFF_ROLE_ID"),
			StaffOverrideIDs:      splitList(os.Getenv("CHAT_STAFF_OVERRIDE_IDS")),
		},
		Intake: IntakeConfig{
			DailyLimit:         getEnvAsInt("INTAKE_DAILY_LIMIT", 60),
			Timezone:           getEnv("INTAKE_TIMEZONE", "UTC"),
			OpenHour:           getEnvAsInt("INTAKE_OPEN_HOUR", 9),
			CloseHour:          getEnvAsInt("INTAKE_CLOSE_HOUR", 22),
			QuotaResetHour:     getEnvAsInt("INTAKE_QUOTA_RESET_HOUR", 0),
			RemindAfter:        time.Duration(getEnvAsInt("INTAKE_REMIND_AFTER_HOURS", 24)) * time.Hour,
			ArchiveAfter:       time.Duration(getEnvAsInt("INTAKE_ARCHIVE_AFTER_HOURS", 48)) * time.Hour,
			ConfirmGrace:       time.Duration(getEnvAsInt("INTAKE_CONFIRM_GRACE_MINUTES", 60)) * time.Minute,
			CategoryCapacity:   getEnvAsInt("INTAKE_CATEGORY_CAPACITY", domain.DefaultCategoryCapacity),
			HistoryLimit:       getEnvAsInt("INTAKE_HISTORY_LIMIT", 100),
			WorkspaceOpTimeout: time.Duration(getEnvAsInt("INTAKE_WORKSPACE_OP_TIMEOUT_SECONDS", 30)) * time.Second,
			RatePerMinute:      getEnvAsInt("INTAKE_RATE_PER_MINUTE", 5),
		},
	}

	loc, err := time.LoadLocation(cfg.Intake.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid INTAKE_TIMEZONE: %w", err)
	}
	cfg.Intake.location = loc

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

// GatewayTimeout returns the gateway call timeout.
func (c ChatConfig) GatewayTimeout() time.Duration {
	if c.GatewayTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.GatewayTimeoutSeconds) * time.Second
}

// CategoryID maps a logical category to its platform partition id.
func (c ChatConfig) CategoryID(cat domain.Category) string {
	switch cat {
	case domain.CategoryFirstReviewPrimary:
		return c.FirstPrimaryID
	case domain.CategoryFirstReviewOverflow:
		return c.FirstOverflowID
	case domain.CategorySecondReview:
		return c.SecondReviewID
	case domain.CategoryArchive:
		return c.ArchiveID
	}
	return ""
}

// Location returns the configured local time zone.
func (i IntakeConfig) Location() *time.Location {
	if i.location == nil {
		return time.UTC
	}
	return i.location
}

// WithLocation returns a copy using loc; used by tests.
func (i IntakeConfig) WithLocation(loc *time.Location) IntakeConfig {
	i.location = loc
	return i
}

// InOperatingHours reports whether now's local hour falls inside the daily
// intake window. OpenHour greater than CloseHour means an overnight window.
func (i IntakeConfig) InOperatingHours(now time.Time) bool {
	if i.OpenHour == i.CloseHour {
		return true
	}
	hour := now.In(i.Location()).Hour()
	if i.OpenHour < i.CloseHour {
		return hour >= i.OpenHour && hour < i.CloseHour
	}
	return hour >= i.OpenHour || hour < i.CloseHour
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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
