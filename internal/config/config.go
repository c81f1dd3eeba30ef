// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        // e.g. "8080"
	Env          string        // "development" | "production"
	ReadTimeout  time.Duration // default 10s
	WriteTimeout time.Duration // default 30s, imports can be slow
	LogLevel     string        // zap level name, default "info"
	// AllowedOrigins lists the CORS origins accepted in production.
	AllowedOrigins []string
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 10
	MaxIdleConns    int           // default 5
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds operator token settings.
type JWTConfig struct {
	Secret string        // must be set
	TTL    time.Duration // default 24h
}

// ImportConfig holds batch reconciliation settings.
type ImportConfig struct {
	Timezone      string        // canonical IANA zone, default America/Chicago
	ErrorSamples  int           // row error messages kept per report, default 10
	Schedule      string        // cron spec; "" disables scheduled imports
	OddsJamPath   string        // export picked up by the scheduler
	PikkitPath    string        // export picked up by the scheduler
	LockTTL       time.Duration // default 5m
	AuthorityFile string        // YAML override for sportsbook authority; "" = built-in
}

// RedisConfig holds the import lock backend. An empty Addr selects the
// in-process lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds import event publishing. No brokers disables events.
type KafkaConfig struct {
	Brokers     []string
	ImportTopic string // default "bet-imports"
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	JWT    JWTConfig
	Import ImportConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive, got %s", c.JWT.TTL))
	}

	// In production, DB DSN must be explicit
	if c.IsProd() && os.Getenv("DATABASE_DSN") == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if _, err := time.LoadLocation(c.Import.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("IMPORT_TIMEZONE %q: %w", c.Import.Timezone, err))
	}
	if c.Import.ErrorSamples < 0 {
		errs = append(errs, fmt.Errorf("IMPORT_ERROR_SAMPLES must not be negative, got %d", c.Import.ErrorSamples))
	}
	if c.Import.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("IMPORT_LOCK_TTL must be positive, got %s", c.Import.LockTTL))
	}
	if c.Import.Schedule != "" && c.Import.OddsJamPath == "" && c.Import.PikkitPath == "" {
		errs = append(errs, errors.New("IMPORT_SCHEDULE is set but neither IMPORT_ODDSJAM_PATH nor IMPORT_PIKKIT_PATH is"))
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.ImportTopic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC_IMPORTS must be set when KAFKA_BROKERS is"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails; call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		// A missing .env is normal outside development.
		_ = godotenv.Load()
		instance, loadErr = Load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Loader
// ──────────────────────────────────────────────────────────────────────────────

// Load reads the configuration from the current environment without caching.
// The CLI and tests use it directly.
func Load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:           getEnv("SERVER_PORT", "8080"),
		Env:            getEnv("ENVIRONMENT", "development"),
		ReadTimeout:    getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:   getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getList("CORS_ALLOWED_ORIGINS"),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "bet_tracker"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET", ""),
		TTL:    getDuration("JWT_TTL", 24*time.Hour),
	}

	// ── Import ────────────────────────────────────────────────────────────────
	samples, err := getInt("IMPORT_ERROR_SAMPLES", 10)
	if err != nil {
		return nil, fmt.Errorf("IMPORT_ERROR_SAMPLES: %w", err)
	}

	cfg.Import = ImportConfig{
		Timezone:      getEnv("IMPORT_TIMEZONE", "America/Chicago"),
		ErrorSamples:  samples,
		Schedule:      getEnv("IMPORT_SCHEDULE", ""),
		OddsJamPath:   getEnv("IMPORT_ODDSJAM_PATH", ""),
		PikkitPath:    getEnv("IMPORT_PIKKIT_PATH", ""),
		LockTTL:       getDuration("IMPORT_LOCK_TTL", 5*time.Minute),
		AuthorityFile: getEnv("AUTHORITY_FILE", ""),
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}

	cfg.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	cfg.Kafka = KafkaConfig{
		Brokers:     getList("KAFKA_BROKERS"),
		ImportTopic: getEnv("KAFKA_TOPIC_IMPORTS", "bet-imports"),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getList splits a comma-separated variable, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or unparsable.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
