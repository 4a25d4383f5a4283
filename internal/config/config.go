package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/BradenHooton/ticketdesk/internal/reference"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	Reset     ResetConfig
	Reference ReferenceConfig
	Email     EmailConfig
	Notify    NotifyConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectAttempts   int
	AutoMigrate       bool // apply pending migrations when the API starts
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	TrustedProxies []string // CIDR ranges allowed to set X-Forwarded-For
	AuthRateLimit  int      // requests per minute per IP on login, register and reset routes
	WriteRateLimit int      // complaint submissions per minute per user
}

type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
	// Failed logins are padded to at least LoginDelayBase plus random jitter
	LoginDelayBase   time.Duration
	LoginDelayJitter time.Duration
	// Bootstrap staff account, created at startup when absent
	AdminEmail    string
	AdminPassword string
}

// ResetConfig controls the password-reset token lifecycle
type ResetConfig struct {
	TokenExpiry         time.Duration
	CleanupInterval     time.Duration
	ConcealUnknownEmail bool
}

// ReferenceConfig controls complaint reference allocation
type ReferenceConfig struct {
	Prefix      string
	Start       int64
	MaxAttempts int
}

type EmailConfig struct {
	Driver      string // "ses" or "log"
	AWSRegion   string
	FromAddress string
	FrontendURL string
}

// NotifyConfig controls the asynchronous notification dispatcher
type NotifyConfig struct {
	QueueSize     int
	MaxRetries    int
	RatePerSecond float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "ticketdesk"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			ConnectAttempts:   getEnvAsInt("DB_CONNECT_ATTEMPTS", 5),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
			AuthRateLimit:  getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 5),
			WriteRateLimit: getEnvAsInt("COMPLAINT_RATE_LIMIT_PER_MINUTE", 30),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 24*time.Hour),
			LoginDelayBase:    getEnvAsDuration("LOGIN_DELAY_BASE", 250*time.Millisecond),
			LoginDelayJitter:  getEnvAsDuration("LOGIN_DELAY_JITTER", 100*time.Millisecond),
			AdminEmail:        getEnv("ADMIN_EMAIL", ""),
			AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		},
		Reset: ResetConfig{
			TokenExpiry:         getEnvAsDuration("RESET_TOKEN_EXPIRY", 24*time.Hour),
			CleanupInterval:     getEnvAsDuration("RESET_TOKEN_CLEANUP_INTERVAL", 1*time.Hour),
			ConcealUnknownEmail: getEnvAsBool("RESET_CONCEAL_UNKNOWN_EMAIL", false),
		},
		Reference: ReferenceConfig{
			Prefix:      getEnv("REFERENCE_PREFIX", reference.DefaultPrefix),
			Start:       int64(getEnvAsInt("REFERENCE_START", reference.DefaultStart)),
			MaxAttempts: getEnvAsInt("REFERENCE_MAX_ATTEMPTS", reference.DefaultMaxAttempts),
		},
		Email: EmailConfig{
			Driver:      strings.ToLower(getEnv("EMAIL_DRIVER", "ses")),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
			FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://127.0.0.1:5500"), "/"),
		},
		Notify: NotifyConfig{
			QueueSize:     getEnvAsInt("NOTIFY_QUEUE_SIZE", 100),
			MaxRetries:    getEnvAsInt("NOTIFY_MAX_RETRIES", 3),
			RatePerSecond: getEnvAsFloat("NOTIFY_RATE_PER_SECOND", 10),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Email.Driver {
	case "ses":
		if c.Email.FromAddress == "" {
			return fmt.Errorf("EMAIL_FROM_ADDRESS is required when EMAIL_DRIVER=ses")
		}
	case "log":
	default:
		return fmt.Errorf("EMAIL_DRIVER must be one of ses, log (got %q)", c.Email.Driver)
	}

	if c.Reset.TokenExpiry <= 0 {
		return fmt.Errorf("RESET_TOKEN_EXPIRY must be positive")
	}
	if c.Reference.MaxAttempts < 1 {
		return fmt.Errorf("REFERENCE_MAX_ATTEMPTS must be at least 1")
	}
	if c.Server.AuthRateLimit < 1 || c.Server.WriteRateLimit < 1 {
		return fmt.Errorf("rate limits must be at least 1 request per minute")
	}
	if c.Notify.QueueSize < 1 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be at least 1")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return splitList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: the static frontend is served from Live Server or Vite
	return []string{
		"http://localhost:5500",
		"http://127.0.0.1:5500",
		"http://localhost:5173",
		"http://127.0.0.1:5173",
		"http://localhost:3000",
	}
}

// splitList splits a comma separated value, dropping blank entries
func splitList(value string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
