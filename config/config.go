// Package config contains go-vault node configuration definitions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/timesync"
)

const (
	defaultDataDirName = "go-vault"
	dbFile             = "state.sql"
)

// ID schemes supported by the registry.
const (
	UUIDScheme    = "uuid"
	DerivedScheme = "derived"
)

var defaultDataDir = filepath.Join(homeDir(), defaultDataDirName)

func homeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return dir
}

// Config defines the top level configuration for a vault node.
type Config struct {
	BaseConfig `mapstructure:"main"`
	Preset     string          `mapstructure:"preset"`
	Address    types.Config    `mapstructure:"address"`
	Clock      timesync.Config `mapstructure:"clock"`
	API        APIConfig       `mapstructure:"api"`
	Metrics    MetricsConfig   `mapstructure:"metrics"`
	Vault      VaultConfig     `mapstructure:"vault"`
	LOGGING    LoggerConfig    `mapstructure:"logging"`
}

// DataDir returns the absolute path to use for the node's data.
func (cfg *Config) DataDir() string {
	dir, err := filepath.Abs(cfg.DataDirParent)
	if err != nil {
		return cfg.DataDirParent
	}
	return dir
}

// DatabasePath returns the path of the state database in the data directory.
func (cfg *Config) DatabasePath() string {
	return filepath.Join(cfg.DataDir(), dbFile)
}

// Validate checks that values in the config are consistent.
func (cfg *Config) Validate() error {
	if err := cfg.Clock.Validate(); err != nil {
		return fmt.Errorf("clock: %w", err)
	}
	if cfg.DatabaseConnections < 1 {
		return fmt.Errorf("main: db-connections must be positive, got %d", cfg.DatabaseConnections)
	}
	if cfg.Vault.CacheSize < 0 {
		return fmt.Errorf("vault: cache-size must not be negative, got %d", cfg.Vault.CacheSize)
	}
	if cfg.Vault.EventsBuffer < 1 {
		return fmt.Errorf("vault: events-buffer must be positive, got %d", cfg.Vault.EventsBuffer)
	}
	switch cfg.Vault.IDScheme {
	case UUIDScheme, DerivedScheme:
	default:
		return fmt.Errorf("vault: unknown id-scheme %q", cfg.Vault.IDScheme)
	}
	if cfg.Metrics.PushURL != "" && cfg.Metrics.PushPeriod <= 0 {
		return fmt.Errorf("metrics: push-period must be positive when push-url is set")
	}
	return nil
}

// BaseConfig defines the default configuration options for the vault app.
type BaseConfig struct {
	DataDirParent string `mapstructure:"data-folder"`
	FileLock      string `mapstructure:"file-lock"`

	DatabaseConnections     int  `mapstructure:"db-connections"`
	DatabaseLatencyMetering bool `mapstructure:"db-latency-metering"`
}

// APIConfig configures the HTTP API server.
type APIConfig struct {
	Listen             string   `mapstructure:"listen"`
	CORSAllowedOrigins []string `mapstructure:"cors-allowed-origins"`
}

// MetricsConfig configures exposure of prometheus metrics.
type MetricsConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Listen     string        `mapstructure:"listen"`
	PushURL    string        `mapstructure:"push-url"`
	PushPeriod time.Duration `mapstructure:"push-period"`
}

// VaultConfig configures the vault registry.
type VaultConfig struct {
	// CacheSize is a number of committed vault snapshots kept in memory. Zero disables the cache.
	CacheSize    int    `mapstructure:"cache-size"`
	IDScheme     string `mapstructure:"id-scheme"`
	EventsBuffer int    `mapstructure:"events-buffer"`
}

// DefaultConfig returns the default configuration for a vault node.
func DefaultConfig() Config {
	return Config{
		BaseConfig: defaultBaseConfig(),
		Address:    types.DefaultAddressConfig(),
		Clock:      timesync.DefaultConfig(),
		API: APIConfig{
			Listen:             "127.0.0.1:9070",
			CORSAllowedOrigins: []string{"*"},
		},
		Metrics: MetricsConfig{
			Listen:     "127.0.0.1:9071",
			PushPeriod: time.Minute,
		},
		Vault: VaultConfig{
			CacheSize:    1024,
			IDScheme:     UUIDScheme,
			EventsBuffer: 1000,
		},
		LOGGING: DefaultLoggingConfig(),
	}
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		DataDirParent:       defaultDataDir,
		FileLock:            filepath.Join(os.TempDir(), "go-vault.lock"),
		DatabaseConnections: 16,
	}
}

// LoadConfig reads the config file into vip. An empty path leaves vip untouched.
func LoadConfig(path string, vip *viper.Viper) error {
	if path == "" {
		return nil
	}
	vip.SetConfigFile(path)
	if err := vip.ReadInConfig(); err != nil {
		return fmt.Errorf("can't load config at %s: %w", path, err)
	}
	return nil
}
