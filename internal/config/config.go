package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/viper"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/testlog"
)

const (
	ProviderMemory = "memory"
	ProviderSQLite = "sqlite"
)

var supportedProviders = []string{"memory", "postgresql", "postgres", "mysql", "sqlite", "sqlite3"}

type Config struct {
	SitePath    string   `json:"site_path" mapstructure:"site_path"`
	DoctypesDir string   `json:"doctypes_dir" mapstructure:"doctypes_dir"`
	Database    Database `json:"database" mapstructure:"database"`
	Log         Log      `json:"log" mapstructure:"log"`
}

type Database struct {
	Provider string `json:"provider" mapstructure:"provider"`
	// Driver picks an alternative database/sql driver. Only "pq" is
	// recognised, for postgres.
	Driver string `json:"driver,omitempty" mapstructure:"driver"`
	URLEnv string `json:"url_env" mapstructure:"url_env"`
}

type Log struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		SitePath:    filepath.Join("sites", "test_site"),
		DoctypesDir: "doctypes",
		Database: Database{
			Provider: ProviderSQLite,
			URLEnv:   "DATABASE_URL",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config viper has collected and fills in defaults.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	def := DefaultConfig()
	if cfg.SitePath == "" {
		cfg.SitePath = def.SitePath
	}
	if cfg.DoctypesDir == "" {
		cfg.DoctypesDir = def.DoctypesDir
	}
	if cfg.Database.Provider == "" {
		cfg.Database.Provider = def.Database.Provider
	}
	if cfg.Database.URLEnv == "" {
		cfg.Database.URLEnv = def.Database.URLEnv
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}

	return &cfg, nil
}

// GetDatabaseURL returns the connection URL for the configured provider.
// SQLite falls back to a database file inside the site; the memory provider
// needs none.
func (c *Config) GetDatabaseURL() (string, error) {
	if c.Database.Provider == ProviderMemory {
		return "", nil
	}

	dbURL := os.Getenv(c.Database.URLEnv)
	if dbURL != "" {
		return dbURL, nil
	}

	switch c.Database.Provider {
	case "sqlite", "sqlite3":
		return "sqlite://" + filepath.Join(c.SitePath, "fixtures.db"), nil
	}
	return "", fmt.Errorf("database URL not found in environment variable %s", c.Database.URLEnv)
}

func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.SitePath, c.DoctypesDir} {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if !slices.Contains(supportedProviders, c.Database.Provider) {
		return fmt.Errorf("unsupported database provider: %s. Supported providers: %v", c.Database.Provider, supportedProviders)
	}

	if c.Database.Driver != "" && c.Database.Driver != "pq" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.SitePath == "" {
		return fmt.Errorf("site_path cannot be empty")
	}

	if c.DoctypesDir == "" {
		return fmt.Errorf("doctypes_dir cannot be empty")
	}

	return nil
}

// LogPath is where the site's fixture log lives.
func (c *Config) LogPath() string {
	return filepath.Join(c.SitePath, testlog.FileName)
}
