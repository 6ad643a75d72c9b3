package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingToken is returned by Validate when no TMDB token is configured
var ErrMissingToken = errors.New("tmdb token not configured")

// Config holds all application configuration
type Config struct {
	TMDB    TMDBConfig    `mapstructure:"tmdb"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TMDBConfig holds remote catalog configuration
type TMDBConfig struct {
	Token        string        `mapstructure:"token"` // v4 read access token
	BaseURL      string        `mapstructure:"base_url"`
	ImageBaseURL string        `mapstructure:"image_base_url"`
	Language     string        `mapstructure:"language"` // e.g. "en-US"
	Timeout      time.Duration `mapstructure:"timeout"`
}

// AdminConfig holds the reserved administrator credentials
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// CatalogConfig holds browsing preferences
type CatalogConfig struct {
	MinQueryLength int `mapstructure:"min_query_length"`
}

// StorageConfig holds on-device persistence configuration
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"` // empty keeps everything in memory
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		TMDB: TMDBConfig{
			BaseURL:      "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p/",
			Language:     "en-US",
			Timeout:      15 * time.Second,
		},
		Admin: AdminConfig{
			Email:    "admin@admin.com",
			Password: "admin",
		},
		Catalog: CatalogConfig{
			MinQueryLength: 3,
		},
		Storage: StorageConfig{
			DataDir: defaultDataPath(),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "cinedex.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "cinedex")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "cinedex")
	}
}

// DefaultConfigPath returns the default config directory for the current OS
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "cinedex")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "cinedex")
	}
}

// LoadConfig loads .env, the config file and CINEDEX_* environment overrides
func LoadConfig() (*Config, error) {
	return Load("")
}

// Load reads configuration from configFile, or searches the default
// locations when configFile is empty. A missing file is not an error.
func Load(configFile string) (*Config, error) {
	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := newViper(DefaultConfig())
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigPath())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.expandPaths()
	return cfg, nil
}

// newViper registers every key with its default so AutomaticEnv can override it
func newViper(def *Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CINEDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range settings(def) {
		v.SetDefault(key, value)
	}
	return v
}

// settings flattens cfg into snake_case viper keys
func settings(cfg *Config) map[string]any {
	return map[string]any{
		"tmdb.token":               cfg.TMDB.Token,
		"tmdb.base_url":            cfg.TMDB.BaseURL,
		"tmdb.image_base_url":      cfg.TMDB.ImageBaseURL,
		"tmdb.language":            cfg.TMDB.Language,
		"tmdb.timeout":             cfg.TMDB.Timeout,
		"admin.email":              cfg.Admin.Email,
		"admin.password":           cfg.Admin.Password,
		"catalog.min_query_length": cfg.Catalog.MinQueryLength,
		"storage.data_dir":         cfg.Storage.DataDir,
		"logging.file":             cfg.Logging.File,
		"logging.level":            cfg.Logging.Level,
	}
}

// SaveConfig writes cfg to the default config file
func SaveConfig(cfg *Config) error {
	return SaveTo(cfg, filepath.Join(DefaultConfigPath(), "config.yaml"))
}

// SaveTo writes cfg as YAML to configFile
func SaveTo(cfg *Config, configFile string) error {
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	for key, value := range settings(cfg) {
		v.Set(key, value)
	}
	v.Set("tmdb.timeout", cfg.TMDB.Timeout.String())

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TMDB.Token) == "" {
		return ErrMissingToken
	}
	if c.Catalog.MinQueryLength < 1 {
		return fmt.Errorf("catalog.min_query_length must be positive, got %d", c.Catalog.MinQueryLength)
	}
	if c.TMDB.Timeout <= 0 {
		return fmt.Errorf("tmdb.timeout must be positive, got %s", c.TMDB.Timeout)
	}
	return nil
}

// IsConfigured returns true if a TMDB token is set
func (c *Config) IsConfigured() bool {
	return strings.TrimSpace(c.TMDB.Token) != ""
}

func (c *Config) expandPaths() {
	c.Storage.DataDir = expandHome(c.Storage.DataDir)
	c.Logging.File = expandHome(c.Logging.File)
}

// expandHome replaces a leading ~ with the user's home directory
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
