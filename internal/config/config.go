package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// Config aggregates runtime configuration for the engine.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	SLA        SLAConfig
	Monitor    MonitorConfig
	Notify     NotifyConfig
	Assignment AssignmentConfig
	Snapshot   SnapshotConfig
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

// AuthConfig defines operator authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	OperatorPasswordHash  string
	OperatorPassword      string
	BcryptCost            int
}

// SLATarget holds the response/resolution budgets for one priority tier.
type SLATarget struct {
	ResponseMinutes   int
	ResolutionMinutes int
}

// SLAConfig maps priority tiers to their deadline budgets.
type SLAConfig struct {
	Targets map[domain.TicketPriority]SLATarget
}

// Target returns the budgets for a priority, falling back to the medium tier
// for unknown input.
func (c SLAConfig) Target(priority domain.TicketPriority) SLATarget {
	if target, ok := c.Targets[priority]; ok {
		return target
	}
	return c.Targets[domain.TicketPriorityMedium]
}

// MonitorConfig controls the breach-detection loop.
type MonitorConfig struct {
	IntervalSeconds int
}

// Interval returns the monitor cadence.
func (m MonitorConfig) Interval() time.Duration {
	if m.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(m.IntervalSeconds) * time.Second
}

// NotifyConfig controls webhook dispatch behavior.
type NotifyConfig struct {
	TimeoutSeconds       int
	ShutdownGraceSeconds int
	Endpoints            []NotifyEndpoint
}

// NotifyEndpoint is a webhook receiver seeded from the environment.
// NOTIFY_ENDPOINTS takes "url|event1;event2" pairs separated by commas, with
// an empty event list meaning "all".
type NotifyEndpoint struct {
	URL    string
	Events []string
}

// Timeout returns the per-dispatch deadline.
func (n NotifyConfig) Timeout() time.Duration {
	if n.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// ShutdownGrace returns how long to wait for in-flight dispatches on close.
func (n NotifyConfig) ShutdownGrace() time.Duration {
	if n.ShutdownGraceSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.ShutdownGraceSeconds) * time.Second
}

// AssignmentConfig controls automatic agent assignment.
type AssignmentConfig struct {
	AutoAssign     bool
	DefaultMaxLoad int
}

// SnapshotConfig selects the persistence collaborator.
type SnapshotConfig struct {
	Backend string // "postgres", "redis" or "none"
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "escalation-engine"),
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
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			OperatorPasswordHash:  os.Getenv("AUTH_OPERATOR_PASSWORD_HASH"),
			OperatorPassword:      getEnv("AUTH_OPERATOR_PASSWORD", "operator"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		SLA: SLAConfig{
			Targets: map[domain.TicketPriority]SLATarget{
				domain.TicketPriorityUrgent: {
					ResponseMinutes:   getEnvAsInt("SLA_URGENT_RESPONSE_MINUTES", 5),
					ResolutionMinutes: getEnvAsInt("SLA_URGENT_RESOLUTION_MINUTES", 30),
				},
				domain.TicketPriorityHigh: {
					ResponseMinutes:   getEnvAsInt("SLA_HIGH_RESPONSE_MINUTES", 15),
					ResolutionMinutes: getEnvAsInt("SLA_HIGH_RESOLUTION_MINUTES", 60),
				},
				domain.TicketPriorityMedium: {
					ResponseMinutes:   getEnvAsInt("SLA_MEDIUM_RESPONSE_MINUTES", 30),
					ResolutionMinutes: getEnvAsInt("SLA_MEDIUM_RESOLUTION_MINUTES", 120),
				},
				domain.TicketPriorityLow: {
					ResponseMinutes:   getEnvAsInt("SLA_LOW_RESPONSE_MINUTES", 60),
					ResolutionMinutes: getEnvAsInt("SLA_LOW_RESOLUTION_MINUTES", 240),
				},
			},
		},
		Monitor: MonitorConfig{
			IntervalSeconds: getEnvAsInt("SLA_MONITOR_INTERVAL_SECONDS", 60),
		},
		Notify: NotifyConfig{
			TimeoutSeconds:       getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 5),
			ShutdownGraceSeconds: getEnvAsInt("NOTIFY_SHUTDOWN_GRACE_SECONDS", 10),
			Endpoints:            parseEndpoints(os.Getenv("NOTIFY_ENDPOINTS")),
		},
		Assignment: AssignmentConfig{
			AutoAssign:     getEnvAsBool("ASSIGN_AUTO", true),
			DefaultMaxLoad: getEnvAsInt("ASSIGN_DEFAULT_MAX_LOAD", 5),
		},
		Snapshot: SnapshotConfig{
			Backend: strings.ToLower(getEnv("SNAPSHOT_BACKEND", "none")),
		},
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

func parseEndpoints(raw string) []NotifyEndpoint {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var endpoints []NotifyEndpoint
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "|", 2)
		endpoint := NotifyEndpoint{URL: parts[0]}
		if len(parts) == 2 && parts[1] != "" {
			for _, event := range strings.Split(parts[1], ";") {
				if event = strings.TrimSpace(event); event != "" {
					endpoint.Events = append(endpoint.Events, event)
				}
			}
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints
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
