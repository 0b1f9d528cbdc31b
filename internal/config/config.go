package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Role policies.
const (
	UnknownRoleCreate  = "create"
	UnknownRoleReject  = "reject"
	MissingRoleDefault = "default"
	MissingRoleRequire = "require"
)

// Registration lock modes.
const (
	RegistrationLockNone  = "none"
	RegistrationLockLocal = "local"
	RegistrationLockRedis = "redis"
)

// Audit overflow policies.
const (
	AuditOverflowDrop = "drop"
	AuditOverflowWait = "wait"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Audit    AuditConfig
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

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// MongoConfig holds MongoDB connection values.
type MongoConfig struct {
	URI            string
	Database       string
	TimeoutSeconds int
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	JWTIssuer               string
	AccessTokenTTLMinutes   int
	BcryptCost              int
	DefaultRoles            []string
	UnknownRolePolicy       string
	MissingRolesPolicy      string
	RegistrationLock        string
	RegistrationLockTTLSecs int
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Workers                int
	QueueSize              int
	OverflowPolicy         string
	EnqueueTimeoutMillis   int
	WriteTimeoutMillis     int
	ShutdownTimeoutSeconds int
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
			Name:                  getEnv("APP_NAME", "auth-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DB", "auth_service"),
			TimeoutSeconds: getEnvAsInt("MONGO_TIMEOUT_SECONDS", 10),
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
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			JWTIssuer:               getEnv("AUTH_JWT_ISSUER", "auth-service"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
			DefaultRoles:            getEnvAsList("AUTH_DEFAULT_ROLES", []string{"USER"}),
			UnknownRolePolicy:       strings.ToLower(getEnv("AUTH_UNKNOWN_ROLE_POLICY", UnknownRoleCreate)),
			MissingRolesPolicy:      strings.ToLower(getEnv("AUTH_MISSING_ROLES_POLICY", MissingRoleDefault)),
			RegistrationLock:        strings.ToLower(getEnv("AUTH_REGISTRATION_LOCK", RegistrationLockNone)),
			RegistrationLockTTLSecs: getEnvAsInt("AUTH_REGISTRATION_LOCK_TTL_SECONDS", 10),
		},
		Audit: AuditConfig{
			Workers:                getEnvAsInt("AUDIT_WORKERS", 4),
			QueueSize:              getEnvAsInt("AUDIT_QUEUE_SIZE", 1024),
			OverflowPolicy:         strings.ToLower(getEnv("AUDIT_OVERFLOW_POLICY", AuditOverflowDrop)),
			EnqueueTimeoutMillis:   getEnvAsInt("AUDIT_ENQUEUE_TIMEOUT_MS", 5),
			WriteTimeoutMillis:     getEnvAsInt("AUDIT_WRITE_TIMEOUT_MS", 2000),
			ShutdownTimeoutSeconds: getEnvAsInt("AUDIT_SHUTDOWN_TIMEOUT_SECONDS", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configuration values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMongo, StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid STORE_DRIVER %q", c.Store.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if len(c.Auth.DefaultRoles) == 0 {
		errs = append(errs, errors.New("AUTH_DEFAULT_ROLES must name at least one role"))
	}
	switch c.Auth.UnknownRolePolicy {
	case UnknownRoleCreate, UnknownRoleReject:
	default:
		errs = append(errs, fmt.Errorf("invalid AUTH_UNKNOWN_ROLE_POLICY %q", c.Auth.UnknownRolePolicy))
	}
	switch c.Auth.MissingRolesPolicy {
	case MissingRoleDefault, MissingRoleRequire:
	default:
		errs = append(errs, fmt.Errorf("invalid AUTH_MISSING_ROLES_POLICY %q", c.Auth.MissingRolesPolicy))
	}
	switch c.Auth.RegistrationLock {
	case RegistrationLockNone, RegistrationLockLocal, RegistrationLockRedis:
	default:
		errs = append(errs, fmt.Errorf("invalid AUTH_REGISTRATION_LOCK %q", c.Auth.RegistrationLock))
	}
	switch c.Audit.OverflowPolicy {
	case AuditOverflowDrop, AuditOverflowWait:
	default:
		errs = append(errs, fmt.Errorf("invalid AUDIT_OVERFLOW_POLICY %q", c.Audit.OverflowPolicy))
	}
	if c.Audit.QueueSize <= 0 {
		errs = append(errs, errors.New("AUDIT_QUEUE_SIZE must be positive"))
	}
	if c.Audit.Workers <= 0 {
		errs = append(errs, errors.New("AUDIT_WORKERS must be positive"))
	}

	return errors.Join(errs...)
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

// AccessTokenTTL returns the default token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RegistrationLockTTL bounds how long a registration lock may be held.
func (a AuthConfig) RegistrationLockTTL() time.Duration {
	return time.Duration(a.RegistrationLockTTLSecs) * time.Second
}

// EnqueueTimeout is how long the wait policy blocks a caller.
func (a AuditConfig) EnqueueTimeout() time.Duration {
	return time.Duration(a.EnqueueTimeoutMillis) * time.Millisecond
}

// WriteTimeout bounds a single audit write.
func (a AuditConfig) WriteTimeout() time.Duration {
	return time.Duration(a.WriteTimeoutMillis) * time.Millisecond
}

// ShutdownTimeout bounds queue draining on shutdown.
func (a AuditConfig) ShutdownTimeout() time.Duration {
	return time.Duration(a.ShutdownTimeoutSeconds) * time.Second
}

// Timeout returns the Mongo connect timeout.
func (m MongoConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
