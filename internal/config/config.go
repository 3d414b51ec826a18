package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when CONFIG_FILE is not set. A missing file is not an error.
const DefaultConfigFile = "config.yaml"

// Config holds all application configuration
type Config struct {
	BotToken    string        `yaml:"bot_token" envconfig:"BOT_TOKEN"`
	AdminID     int64         `yaml:"admin_id" envconfig:"ADMIN_ID"`
	LogLevel    string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	PollTimeout time.Duration `yaml:"poll_timeout" envconfig:"POLL_TIMEOUT"`

	// PageSize is how many rows a paginated result shows
	PageSize int `yaml:"page_size" envconfig:"PAGE_SIZE"`
	// RoleSyncInterval is how often the approved set is reloaded; 0 disables it
	RoleSyncInterval time.Duration `yaml:"role_sync_interval" envconfig:"ROLE_SYNC_INTERVAL"`
	// RateLimit is the minimum gap between two updates of the same user
	RateLimit time.Duration `yaml:"rate_limit" envconfig:"RATE_LIMIT"`

	API      APIConfig      `yaml:"api"`
	Messages MessagesConfig `yaml:"messages"`
	Database DatabaseConfig `yaml:"database"`
}

// APIConfig points at the library backend
type APIConfig struct {
	BaseURL string        `yaml:"base_url" envconfig:"API_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" envconfig:"API_TIMEOUT"`
}

// MessagesConfig controls automatic message deletion
type MessagesConfig struct {
	ShortTTL      time.Duration `yaml:"short_ttl" envconfig:"SHORT_TTL"`
	LongTTL       time.Duration `yaml:"long_ttl" envconfig:"LONG_TTL"`
	Animate       bool          `yaml:"animate" envconfig:"ANIMATE_DELETIONS"`
	FrameInterval time.Duration `yaml:"frame_interval" envconfig:"ANIMATION_FRAME_INTERVAL"`
}

// DatabaseConfig holds the optional Postgres role mirror settings
type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     string `yaml:"port" envconfig:"DB_PORT"`
	Name     string `yaml:"name" envconfig:"DB_NAME"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
}

// Default returns the configuration used before any file or variable is applied
func Default() Config {
	return Config{
		LogLevel:         "info",
		PollTimeout:      10 * time.Second,
		PageSize:         5,
		RoleSyncInterval: 5 * time.Minute,
		RateLimit:        300 * time.Millisecond,
		API: APIConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 10 * time.Second,
		},
		Messages: MessagesConfig{
			ShortTTL:      time.Minute,
			LongTTL:       5 * time.Minute,
			Animate:       true,
			FrameInterval: time.Second,
		},
		Database: DatabaseConfig{
			Port: "5432",
			Name: "librarian",
			User: "librarian",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := Default()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && os.Getenv("CONFIG_FILE") == "":
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.AdminID == 0 {
		return fmt.Errorf("ADMIN_ID is required")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}

	if c.Messages.ShortTTL <= 0 {
		return fmt.Errorf("SHORT_TTL must be positive")
	}
	if c.Messages.LongTTL <= c.Messages.ShortTTL {
		return fmt.Errorf("LONG_TTL (%s) must be longer than SHORT_TTL (%s)", c.Messages.LongTTL, c.Messages.ShortTTL)
	}
	if c.Messages.FrameInterval <= 0 {
		return fmt.Errorf("ANIMATION_FRAME_INTERVAL must be positive")
	}

	if c.PageSize < 1 || c.PageSize > 20 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 20, got %d", c.PageSize)
	}
	if c.RoleSyncInterval < 0 || c.RateLimit < 0 || c.PollTimeout < 0 {
		return fmt.Errorf("intervals must not be negative")
	}

	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level
func (c *Config) Level() (zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return level, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// HasDatabase reports whether the Postgres role mirror is configured
func (c *Config) HasDatabase() bool {
	return c.Database.Host != ""
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
