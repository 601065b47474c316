package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingJWTSecret is returned when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set in environment variables")

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort         string
	JWTSecret       string
	SessionTTLHours int
	CookieInsecure  bool
	BcryptCost      int
	// Database
	DBDriver    string
	DBPath      string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for token revocation and post caching; empty host disables it
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	CacheTTLSeconds int
	// HTTP
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Proxies whose X-Forwarded-For is believed; empty trusts none
	TrustedProxies []string
	GinMode        string
	GinPath        string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// SessionTTL is the lifetime of an issued session token and its cookie.
func (c AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// CacheTTL is the lifetime of cached post details.
func (c AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RedisEnabled reports whether a Redis server is configured.
func (c AppConfig) RedisEnabled() bool {
	return c.RedisHost != ""
}

// Load loads the application configuration and exits the process when it is unusable.
// It should be called once during boot.
func Load() AppConfig {
	cfg, err := Parse(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
}

// Parse builds the configuration.
// Precedence: .env -> JSON file -> defaults -> environment variable overrides.
func Parse(jsonPath string) (AppConfig, error) {
	var cfg AppConfig

	// A missing .env file is fine; variables may come from the real environment.
	_ = godotenv.Load()

	if err := loadJSONConfig(jsonPath, &cfg); err != nil {
		return cfg, fmt.Errorf("read %s: %w", jsonPath, err)
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	switch c.DBDriver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive, got %d", c.SessionTTLHours)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// fileConfig mirrors the grouped sections of config/config.json.
type fileConfig struct {
	App struct {
		AppPort            string
		JWTSecret          string
		SessionTTLHours    int
		BcryptCost         int
		RateLimitPerMinute int
		AllowedOrigins     []string
		TrustedProxies     []string
		CookieInsecure     bool
	} `json:"app"`
	Database struct {
		Driver      string
		Path        string
		DatabaseURI string
		DBHost      string
		DBPort      string
		DBUser      string
		DBPassword  string
		DBName      string
	} `json:"database"`
	Redis struct {
		RedisHost       string
		RedisPort       int
		RedisDB         int
		RedisPassword   string
		CacheTTLSeconds int
	} `json:"redis"`
	Gin struct {
		Mode    string
		LogPath string
	} `json:"gin"`
	Log struct {
		Level      string
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	} `json:"log"`
}

// loadJSONConfig reads the JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil // silently ignore missing file
	}

	var fc fileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return err
	}

	out.AppPort = fc.App.AppPort
	out.JWTSecret = fc.App.JWTSecret
	out.SessionTTLHours = fc.App.SessionTTLHours
	out.BcryptCost = fc.App.BcryptCost
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.TrustedProxies = fc.App.TrustedProxies
	out.CookieInsecure = fc.App.CookieInsecure

	out.DBDriver = fc.Database.Driver
	out.DBPath = fc.Database.Path
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName

	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword
	out.CacheTTLSeconds = fc.Redis.CacheTTLSeconds

	out.GinMode = fc.Gin.Mode
	out.GinPath = fc.Gin.LogPath

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "3000"
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 24
	}
	if c.DBDriver == "" {
		c.DBDriver = "sqlite"
	}
	if c.DBPath == "" {
		c.DBPath = "simpleblog.db"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "simpleblog"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 3600
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 30
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	var errs []error
	intVal := func(key string, dst *int) {
		v := getEnv(key, "")
		if v == "" {
			return
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid integer value for %s: %q", key, v))
			return
		}
		*dst = i
	}
	strVal := func(key string, dst *string) {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}
	boolVal := func(key string, dst *bool) {
		if v := getEnv(key, ""); v != "" {
			*dst = strings.EqualFold(v, "true") || v == "1"
		}
	}

	strVal("APP_PORT", &c.AppPort)
	strVal("JWT_SECRET", &c.JWTSecret)
	intVal("SESSION_TTL_HOURS", &c.SessionTTLHours)
	boolVal("COOKIE_INSECURE", &c.CookieInsecure)
	intVal("BCRYPT_COST", &c.BcryptCost)

	strVal("DB_DRIVER", &c.DBDriver)
	strVal("DB_PATH", &c.DBPath)
	strVal("DATABASE_URI", &c.DatabaseURI)
	strVal("DB_HOST", &c.DBHost)
	strVal("DB_PORT", &c.DBPort)
	strVal("DB_USER", &c.DBUser)
	strVal("DB_PASSWORD", &c.DBPassword)
	strVal("DB_NAME", &c.DBName)

	strVal("REDIS_HOST", &c.RedisHost)
	intVal("REDIS_PORT", &c.RedisPort)
	intVal("REDIS_DB", &c.RedisDB)
	strVal("REDIS_PASSWORD", &c.RedisPassword)
	intVal("CACHE_TTL_SECONDS", &c.CacheTTLSeconds)

	intVal("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	c.TrustedProxies = readListEnv("TRUSTED_PROXIES", c.TrustedProxies)
	strVal("GIN_MODE", &c.GinMode)
	strVal("GIN_PATH", &c.GinPath)

	strVal("LOG_LEVEL", &c.LogLevel)
	strVal("LOG_PATH", &c.LogPath)
	intVal("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	intVal("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	intVal("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	boolVal("LOG_COMPRESS", &c.LogCompress)

	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	return errors.Join(errs...)
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
