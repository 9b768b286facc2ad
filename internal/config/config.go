package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Theme proxy
	Port          string        `mapstructure:"PORT"`
	UpstreamURL   string        `mapstructure:"UPSTREAM_URL"`
	SecureCookies bool          `mapstructure:"SECURE_COOKIES"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	ThemeTTL      time.Duration `mapstructure:"THEME_TTL"`

	// Blog database and search index, used only for fixtures
	DBHost           string `mapstructure:"DB_HOST"`
	DBPort           string `mapstructure:"DB_PORT"`
	DBUser           string `mapstructure:"DB_USER"`
	DBPassword       string `mapstructure:"DB_PASSWORD"`
	DBName           string `mapstructure:"DB_NAME"`
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
	SearchIndex      string `mapstructure:"SEARCH_INDEX"`

	FixtureUserID     int   `mapstructure:"FIXTURE_USER_ID"`
	FixtureCategoryID int   `mapstructure:"FIXTURE_CATEGORY_ID"`
	FixtureSeed       int64 `mapstructure:"FIXTURE_SEED"`

	// Client behaviour
	PageSize       int           `mapstructure:"PAGE_SIZE"`
	SearchDebounce time.Duration `mapstructure:"SEARCH_DEBOUNCE"`
	HTTPTimeout    time.Duration `mapstructure:"HTTP_TIMEOUT"`

	// E2E harness
	BaseURL       string        `mapstructure:"E2E_BASE_URL"`
	AdminEmail    string        `mapstructure:"E2E_ADMIN_EMAIL"`
	AdminPassword string        `mapstructure:"E2E_ADMIN_PASSWORD"`
	Headless      bool          `mapstructure:"E2E_HEADLESS"`
	ChromePath    string        `mapstructure:"E2E_CHROME_PATH"`
	E2ETimeout    time.Duration `mapstructure:"E2E_TIMEOUT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"PORT":                "8081",
	"UPSTREAM_URL":        "http://localhost:22222",
	"SECURE_COOKIES":      false,
	"REDIS_ADDR":          "localhost:6379",
	"THEME_TTL":           "8760h",
	"DB_HOST":             "localhost",
	"DB_PORT":             "5432",
	"DB_USER":             "bloguser",
	"DB_PASSWORD":         "blogpass",
	"DB_NAME":             "blogdb",
	"ELASTICSEARCH_URL":   "",
	"SEARCH_INDEX":        "posts",
	"FIXTURE_USER_ID":     1,
	"FIXTURE_CATEGORY_ID": 1,
	"FIXTURE_SEED":        2025,
	"PAGE_SIZE":           5,
	"SEARCH_DEBOUNCE":     "300ms",
	"HTTP_TIMEOUT":        "10s",
	"E2E_BASE_URL":        "http://localhost:22222",
	"E2E_ADMIN_EMAIL":     "",
	"E2E_ADMIN_PASSWORD":  "",
	"E2E_HEADLESS":        true,
	"E2E_CHROME_PATH":     "",
	"E2E_TIMEOUT":         "30s",
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "console",
}

// LoadConfig reads config.yml from dir (when present) and the environment.
// Environment variables win over the file.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the components cannot work with.
func (c *Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE must not be negative, got %s", c.SearchDebounce)
	}
	if c.UpstreamURL == "" {
		return errors.New("UPSTREAM_URL is required")
	}
	return nil
}

// DSN is the lib/pq connection string for the blog database.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}
