// Package config loads the YAML configuration file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/logging"
	"github.com/toolcatalog/toolcatalog/internal/security"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when neither a flag nor CONFIG_PATH is given.
	DefaultConfigPath = "config.yaml"
	// EnvProduction enables fail-closed secret checks and secure cookies.
	EnvProduction = "production"

	// Rate cache backends.
	CacheBackendDB    = "db"
	CacheBackendRedis = "redis"
)

const (
	defaultListenAddr         = ":8080"
	defaultDSN                = "file:toolcatalog.db"
	defaultDevAdminPassword   = "admin"
	defaultProviderTimeout    = 20
	defaultRedisPrefix        = "toolcatalog:"
	defaultExchangeRateBase   = "https://api.exchangerate.host"
	defaultShutdownTimeoutSec = 10
	defaultSettingsRefreshSec = 30
	minSessionSecretBytes     = 32
	devSessionSecretLength    = 48
)

// AppConfig carries process-level inputs such as the config file path.
type AppConfig struct {
	ConfigPath string
}

// Config is the full service configuration.
type Config struct {
	Env        string         `yaml:"env"`
	ListenAddr string         `yaml:"listen-addr"`
	Database   DatabaseConfig `yaml:"database"`
	Admin      AdminConfig    `yaml:"admin"`
	Rates      RatesConfig    `yaml:"rates"`
	Redis      RedisConfig    `yaml:"redis"`
	Usage      UsageConfig    `yaml:"usage"`
	CORS       CORSConfig     `yaml:"cors"`
	Logging    logging.Config `yaml:"logging"`

	ShutdownTimeoutSeconds int `yaml:"shutdown-timeout-seconds"`
	// SettingsRefreshSeconds is how often each instance reloads the settings table.
	SettingsRefreshSeconds int `yaml:"settings-refresh-seconds"`
}

// DatabaseConfig selects the store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// AdminConfig holds the admin password and the session signing secret.
// The password may be plaintext or a bcrypt hash.
type AdminConfig struct {
	Password      string `yaml:"password"`
	SessionSecret string `yaml:"session-secret"`
}

// RatesConfig configures the exchange rate provider and cache backend.
type RatesConfig struct {
	BaseURL        string `yaml:"base-url"`
	TimeoutSeconds int    `yaml:"timeout-seconds"`
	CacheBackend   string `yaml:"cache-backend"`
}

// RedisConfig configures the optional Redis rate cache.
type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// UsageConfig configures the monthly request counter rollover.
type UsageConfig struct {
	RolloverEnabled bool   `yaml:"rollover-enabled"`
	ResetCron       string `yaml:"reset-cron"`
}

// CORSConfig lists origins allowed to call the API with credentials.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed-origins"`
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), EnvProduction)
}

// ResolveConfigPath picks the config file path from the flag, CONFIG_PATH or the default.
func ResolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv("CONFIG_PATH")); env != "" {
		return env
	}
	return DefaultConfigPath
}

// Load reads .env, the YAML file at path (optional), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	if errEnv := godotenv.Load(); errEnv != nil && !errors.Is(errEnv, fs.ErrNotExist) {
		log.WithError(errEnv).Warn("config: failed to load .env")
	}

	cfg := &Config{}
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, fs.ErrNotExist):
		log.Infof("config: %s not found, using defaults and environment", path)
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	if errValidate := cfg.Validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		name   string
		target *string
	}{
		{"APP_ENV", &cfg.Env},
		{"DATABASE_DSN", &cfg.Database.DSN},
		{"ADMIN_PASSWORD", &cfg.Admin.Password},
		{"SESSION_SECRET", &cfg.Admin.SessionSecret},
		{"LISTEN_ADDR", &cfg.ListenAddr},
		{"EXCHANGE_RATE_BASE_URL", &cfg.Rates.BaseURL},
		{"REDIS_URL", &cfg.Redis.URL},
		{"LOG_LEVEL", &cfg.Logging.Level},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.name); ok && strings.TrimSpace(v) != "" {
			*o.target = strings.TrimSpace(v)
		}
	}
}

func applyDefaults(cfg *Config) {
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		cfg.Database.DSN = defaultDSN
	}
	if strings.TrimSpace(cfg.Rates.BaseURL) == "" {
		cfg.Rates.BaseURL = defaultExchangeRateBase
	}
	if cfg.Rates.TimeoutSeconds <= 0 {
		cfg.Rates.TimeoutSeconds = defaultProviderTimeout
	}
	cfg.Rates.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.Rates.CacheBackend))
	if cfg.Rates.CacheBackend == "" {
		cfg.Rates.CacheBackend = CacheBackendDB
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = defaultRedisPrefix
	}
	if cfg.ShutdownTimeoutSeconds <= 0 {
		cfg.ShutdownTimeoutSeconds = defaultShutdownTimeoutSec
	}
	if cfg.SettingsRefreshSeconds <= 0 {
		cfg.SettingsRefreshSeconds = defaultSettingsRefreshSec
	}
}

// Validate checks secrets and enum fields. Outside production it fills
// missing secrets with development defaults and logs a warning.
func (c *Config) Validate() error {
	switch c.Rates.CacheBackend {
	case CacheBackendDB:
	case CacheBackendRedis:
		if strings.TrimSpace(c.Redis.URL) == "" {
			return errors.New("config: rates.cache-backend=redis requires redis.url")
		}
	default:
		return fmt.Errorf("config: unknown rates.cache-backend %q", c.Rates.CacheBackend)
	}

	if c.IsProduction() {
		if strings.TrimSpace(c.Admin.Password) == "" {
			return errors.New("config: ADMIN_PASSWORD is required in production")
		}
		if strings.TrimSpace(c.Admin.SessionSecret) == "" {
			return errors.New("config: SESSION_SECRET is required in production")
		}
		if len(c.Admin.SessionSecret) < minSessionSecretBytes {
			return fmt.Errorf("config: SESSION_SECRET must be at least %d bytes in production", minSessionSecretBytes)
		}
		return nil
	}

	if strings.TrimSpace(c.Admin.Password) == "" {
		c.Admin.Password = defaultDevAdminPassword
		log.Warnf("config: ADMIN_PASSWORD not set, using insecure development password %q", defaultDevAdminPassword)
	}
	if strings.TrimSpace(c.Admin.SessionSecret) == "" {
		secret, errSecret := security.GenerateRandomString(devSessionSecretLength)
		if errSecret != nil {
			return fmt.Errorf("config: generate development session secret: %w", errSecret)
		}
		c.Admin.SessionSecret = secret
		log.Warn("config: SESSION_SECRET not set, using a random development secret; sessions end on restart")
	}
	return nil
}
