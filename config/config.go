package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fitdash/logger"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is given and it exists
const DefaultPath = "fitdash.yaml"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Settings SettingsConfig `yaml:"settings"`
	Cache    CacheConfig    `yaml:"cache"`
	Export   ExportConfig   `yaml:"export"`
	Logger   logger.Config  `yaml:"logger"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr"`
	PublicURL  string `yaml:"public_url"`
	StaticDir  string `yaml:"static_dir"`
	CookieName string `yaml:"cookie_name"`
	// Timezone is the IANA zone the dashboard resolves dates in
	Timezone string `yaml:"timezone"`
}

type BackendConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Token         string        `yaml:"token"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
}

type SettingsConfig struct {
	// Store is one of "file", "redis" or "memory"
	Store    string      `yaml:"store"`
	FilePath string      `yaml:"file_path"`
	Redis    RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	PurgeSchedule string        `yaml:"purge_schedule"`
	DB            DBConfig      `yaml:"db"`
}

// DBConfig enables the postgres application cache when Host is set
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

func (d DBConfig) Enabled() bool { return d.Host != "" }

type ExportConfig struct {
	// Capturer is "render" or "browser"
	Capturer   string        `yaml:"capturer"`
	DebugURL   string        `yaml:"debug_url"`
	Timeout    time.Duration `yaml:"timeout"`
	TileWidth  int           `yaml:"tile_width"`
	TileHeight int           `yaml:"tile_height"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8080",
			StaticDir:  "static",
			CookieName: "fitdash_client",
			Timezone:   "Local",
		},
		Backend: BackendConfig{
			Endpoint:      "http://localhost:8000/backend/graphql",
			Timeout:       15 * time.Second,
			RetryAttempts: 3,
		},
		Settings: SettingsConfig{
			Store:    "file",
			FilePath: "fitdash_data/settings.json",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "fitdash:",
			},
		},
		Cache: CacheConfig{
			TTL:           2 * time.Hour,
			PurgeSchedule: "@every 30m",
			DB: DBConfig{
				Port:   "5432",
				User:   "postgres",
				DBName: "fitdash",
			},
		},
		Export: ExportConfig{
			Capturer:   "render",
			Timeout:    30 * time.Second,
			TileWidth:  640,
			TileHeight: 380,
		},
		Logger: logger.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, then the YAML file at path (or
// DefaultPath when it exists), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "FITDASH_ADDR")
	setString(&c.Server.PublicURL, "FITDASH_PUBLIC_URL")
	setString(&c.Server.StaticDir, "FITDASH_STATIC_DIR")
	setString(&c.Server.Timezone, "FITDASH_TIMEZONE")

	setString(&c.Backend.Endpoint, "BACKEND_URL")
	setString(&c.Backend.Token, "BACKEND_TOKEN")

	setString(&c.Settings.Store, "SETTINGS_STORE")
	setString(&c.Settings.FilePath, "SETTINGS_FILE")
	setString(&c.Settings.Redis.Addr, "REDIS_ADDR")
	setString(&c.Settings.Redis.Password, "REDIS_PASSWORD")

	setString(&c.Cache.PurgeSchedule, "CACHE_PURGE_SCHEDULE")
	setString(&c.Cache.DB.Host, "DB_HOST")
	setString(&c.Cache.DB.Port, "DB_PORT")
	setString(&c.Cache.DB.User, "DB_USER")
	setString(&c.Cache.DB.Password, "DB_PASSWORD")
	setString(&c.Cache.DB.DBName, "DB_NAME")

	setString(&c.Export.Capturer, "EXPORT_CAPTURER")
	setString(&c.Export.DebugURL, "CHROME_DEBUG_URL")

	setString(&c.Logger.Level, "LOG_LEVEL")
	setString(&c.Logger.Format, "LOG_FORMAT")
	setString(&c.Logger.OutputPath, "LOG_OUTPUT")

	return errors.Join(
		setDuration(&c.Backend.Timeout, "BACKEND_TIMEOUT"),
		setInt(&c.Backend.RetryAttempts, "BACKEND_RETRY_ATTEMPTS"),
		setInt(&c.Settings.Redis.DB, "REDIS_DB"),
		setDuration(&c.Cache.TTL, "CACHE_TTL"),
	)
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	if c.Backend.Endpoint == "" {
		errs = append(errs, errors.New("backend.endpoint is required"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.Backend.RetryAttempts < 1 {
		errs = append(errs, errors.New("backend.retry_attempts must be at least 1"))
	}
	switch c.Settings.Store {
	case "file":
		if c.Settings.FilePath == "" {
			errs = append(errs, errors.New("settings.file_path is required for the file store"))
		}
	case "redis":
		if c.Settings.Redis.Addr == "" {
			errs = append(errs, errors.New("settings.redis.addr is required for the redis store"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("settings.store must be file, redis or memory, got %q", c.Settings.Store))
	}
	switch c.Export.Capturer {
	case "render", "browser":
	default:
		errs = append(errs, fmt.Errorf("export.capturer must be render or browser, got %q", c.Export.Capturer))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("server.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Location is the configured time zone
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" || strings.EqualFold(c.Server.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Server.Timezone)
}

// MaskSecret keeps the first and last four characters of long secrets
func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// Summary lists the effective settings with secrets masked
func (c *Config) Summary() []string {
	return []string{
		"Server Addr: " + c.Server.Addr,
		"Timezone: " + c.Server.Timezone,
		"Backend Endpoint: " + c.Backend.Endpoint,
		"Backend Token: " + MaskSecret(c.Backend.Token),
		"Backend Timeout: " + c.Backend.Timeout.String(),
		"Settings Store: " + c.Settings.Store,
		"Redis Addr: " + c.Settings.Redis.Addr,
		"Redis Password: " + MaskSecret(c.Settings.Redis.Password),
		fmt.Sprintf("App Cache DB: %t", c.Cache.DB.Enabled()),
		"DB Password: " + MaskSecret(c.Cache.DB.Password),
		"Cache TTL: " + c.Cache.TTL.String(),
		"Export Capturer: " + c.Export.Capturer,
		"Log Level: " + c.Logger.Level,
		"Log Output: " + c.Logger.OutputPath,
		"Log Format: " + c.Logger.Format,
	}
}
