package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Scripts    ScriptsConfig    `yaml:"scripts"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Search     SearchConfig     `yaml:"search"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port                  string   `yaml:"port" validate:"required,numeric"`
	CORSOrigins           []string `yaml:"cors_origins"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds" validate:"gte=0"`
	DefaultListLimit      int      `yaml:"default_list_limit" validate:"gte=0"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type        string         `yaml:"type" validate:"oneof=sqlite mysql postgres"`
	SQLite      SQLiteConfig   `yaml:"sqlite"`
	MySQL       MySQLConfig    `yaml:"mysql"`
	Postgres    PostgresConfig `yaml:"postgres"`
	AutoMigrate bool           `yaml:"auto_migrate"`
	LogLevel    string         `yaml:"log_level" validate:"oneof=silent error warn info"`
}

// SQLiteConfig points at the listings database shared with the scripts
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// ScriptsConfig locates the external enrichment scripts
type ScriptsConfig struct {
	Python         string            `yaml:"python" validate:"required"`
	Dir            string            `yaml:"dir"`
	WorkDir        string            `yaml:"workdir"`
	TimeoutSeconds int               `yaml:"timeout_seconds" validate:"gte=1"`
	Timeouts       map[string]int    `yaml:"timeouts" validate:"dive,gte=1"`
	Overrides      map[string]string `yaml:"overrides"`
}

// RateLimitConfig limits how often each job kind may launch
type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled"`
	JobsPerMinute int  `yaml:"jobs_per_minute" validate:"gte=0"`
	JobsPerHour   int  `yaml:"jobs_per_hour" validate:"gte=0"`
	JobsPerDay    int  `yaml:"jobs_per_day" validate:"gte=0"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host" validate:"omitempty,url"`
	APIKey string `yaml:"api_key"`
	Index  string `yaml:"index"`
}

// EnrichmentConfig drives the scheduled enrichment run
type EnrichmentConfig struct {
	DailyRunEnabled     bool   `yaml:"daily_run_enabled"`
	DailyRunTime        string `yaml:"daily_run_time" validate:"hhmm"`
	BatchLimit          int    `yaml:"batch_limit" validate:"gte=1"`
	BreakerThreshold    int    `yaml:"breaker_threshold" validate:"gte=1"`
	BreakerResetMinutes int    `yaml:"breaker_reset_minutes" validate:"gte=1"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                  "8080",
			CORSOrigins:           []string{"http://localhost:3000"},
			RequestTimeoutSeconds: 30,
			DefaultListLimit:      0,
		},
		Database: DatabaseConfig{
			Type:     "sqlite",
			SQLite:   SQLiteConfig{Path: "data/listings.db"},
			LogLevel: "warn",
			MySQL: MySQLConfig{
				Port: 3306,
			},
			Postgres: PostgresConfig{
				Port:    5432,
				SSLMode: "disable",
			},
		},
		Scripts: ScriptsConfig{
			Python:         "python3",
			Dir:            "scripts",
			TimeoutSeconds: 60,
			Timeouts: map[string]int{
				"gmail":   600,
				"compass": 1800,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			JobsPerMinute: 2,
			JobsPerHour:   30,
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Host:  "http://localhost:7700",
				Index: "listings",
			},
		},
		Enrichment: EnrichmentConfig{
			DailyRunEnabled:     false,
			DailyRunTime:        "02:00",
			BatchLimit:          50,
			BreakerThreshold:    3,
			BreakerResetMinutes: 360,
		},
		Logging: LoggingConfig{
			Level:       "info",
			LogRequests: true,
		},
	}
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are not an error.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Printf("[Config] failed to load %s: %v", p, err)
			}
			continue
		}
		log.Printf("[Config] loaded env file=%s", p)
	}
}

// LoadConfig loads configuration from a YAML file, applies environment
// overrides and validates the result.
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, keep the defaults
	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides file values with environment variables that are set.
func (c *Config) ApplyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}

	c.Database.Type = getEnv("DB_TYPE", c.Database.Type)
	c.Database.SQLite.Path = getEnv("SQLITE_PATH", c.Database.SQLite.Path)
	c.Database.AutoMigrate = getEnvBool("DB_AUTO_MIGRATE", c.Database.AutoMigrate)
	c.Database.LogLevel = getEnv("DB_LOG_LEVEL", c.Database.LogLevel)

	switch c.Database.Type {
	case "mysql":
		m := &c.Database.MySQL
		m.Host = getEnv("DB_HOST", m.Host)
		m.Port = getEnvInt("DB_PORT", m.Port)
		m.User = getEnv("DB_USER", m.User)
		m.Password = getEnv("DB_PASSWORD", m.Password)
		m.Database = getEnv("DB_NAME", m.Database)
	case "postgres":
		p := &c.Database.Postgres
		p.Host = getEnv("DB_HOST", p.Host)
		p.Port = getEnvInt("DB_PORT", p.Port)
		p.User = getEnv("DB_USER", p.User)
		p.Password = getEnv("DB_PASSWORD", p.Password)
		p.Database = getEnv("DB_NAME", p.Database)
		p.SSLMode = getEnv("DB_SSLMODE", p.SSLMode)
	}

	c.Scripts.Python = getEnv("PYTHON_BIN", c.Scripts.Python)
	c.Scripts.Dir = getEnv("SCRIPTS_DIR", c.Scripts.Dir)
	c.Scripts.WorkDir = getEnv("SCRIPTS_WORKDIR", c.Scripts.WorkDir)

	c.Search.Enabled = getEnvBool("SEARCH_ENABLED", c.Search.Enabled)
	c.Search.Meilisearch.Host = getEnv("MEILISEARCH_HOST", c.Search.Meilisearch.Host)
	c.Search.Meilisearch.APIKey = getEnv("MEILISEARCH_KEY", c.Search.Meilisearch.APIKey)

	c.Enrichment.DailyRunEnabled = getEnvBool("DAILY_RUN_ENABLED", c.Enrichment.DailyRunEnabled)
	c.Enrichment.DailyRunTime = getEnv("DAILY_RUN_TIME", c.Enrichment.DailyRunTime)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("hhmm", isHHMM); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(databaseRules, DatabaseConfig{})
	// Use YAML tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func isHHMM(fl validator.FieldLevel) bool {
	_, _, err := ParseClock(fl.Field().String())
	return err == nil
}

// databaseRules requires the connection settings of the selected backend.
func databaseRules(sl validator.StructLevel) {
	db := sl.Current().Interface().(DatabaseConfig)
	switch db.Type {
	case "sqlite":
		if db.SQLite.Path == "" {
			sl.ReportError(db.SQLite.Path, "path", "Path", "required", "")
		}
	case "mysql":
		if db.MySQL.Host == "" || db.MySQL.Database == "" {
			sl.ReportError(db.MySQL.Host, "mysql", "MySQL", "required", "")
		}
	case "postgres":
		if db.Postgres.Host == "" || db.Postgres.Database == "" {
			sl.ReportError(db.Postgres.Host, "postgres", "Postgres", "required", "")
		}
	}
}

// Validate checks every section and reports all violations at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ParseClock parses an "HH:MM" wall clock time.
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("time %q is not HH:MM", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour in %q out of range", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute in %q out of range", s)
	}
	return hour, minute, nil
}

// GetTimeout returns the default job timeout as a duration
func (c *ScriptsConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetTimeouts returns the per-job timeouts keyed by job name
func (c *ScriptsConfig) GetTimeouts() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.Timeouts))
	for job, secs := range c.Timeouts {
		out[job] = time.Duration(secs) * time.Second
	}
	return out
}

// GetRequestTimeout returns the per-request timeout, zero for none
func (c *ServerConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// GetBreakerReset returns how long a tripped job stays skipped
func (c *EnrichmentConfig) GetBreakerReset() time.Duration {
	return time.Duration(c.BreakerResetMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("[Config] ignoring non-numeric %s=%q", key, value)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("[Config] ignoring non-boolean %s=%q", key, value)
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
