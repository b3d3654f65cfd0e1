package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		vip := viper.New()
		require.NoError(t, LoadConfig("", vip))
		require.Empty(t, vip.AllKeys())
	})
	t.Run("missing file", func(t *testing.T) {
		require.Error(t, LoadConfig(filepath.Join(t.TempDir(), "missing.toml"), viper.New()))
	})
	t.Run("toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
[main]
data-folder = "/tmp/vaults"

[clock]
layer-duration = "10s"
`), 0o600))
		vip := viper.New()
		require.NoError(t, LoadConfig(path, vip))
		require.Equal(t, "/tmp/vaults", vip.GetString("main.data-folder"))
		require.Equal(t, 10*time.Second, vip.GetDuration("clock.layer-duration"))
	})
}

func TestDefaultConfigIsValid(t *testing.T) {
	conf := DefaultConfig()
	require.NoError(t, conf.Validate())
	require.Equal(t, filepath.Join(conf.DataDir(), "state.sql"), conf.DatabasePath())
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		desc   string
		modify func(*Config)
	}{
		{"layer duration", func(c *Config) { c.Clock.LayerDuration = 0 }},
		{"connections", func(c *Config) { c.DatabaseConnections = 0 }},
		{"cache size", func(c *Config) { c.Vault.CacheSize = -1 }},
		{"events buffer", func(c *Config) { c.Vault.EventsBuffer = 0 }},
		{"id scheme", func(c *Config) { c.Vault.IDScheme = "sequential" }},
		{"push period", func(c *Config) {
			c.Metrics.PushURL = "http://localhost:9091"
			c.Metrics.PushPeriod = 0
		}},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			conf := DefaultConfig()
			tc.modify(&conf)
			require.Error(t, conf.Validate())
		})
	}
}

func TestLoggerLevel(t *testing.T) {
	conf := DefaultLoggingConfig()
	conf.VaultLoggerLevel = "debug"
	conf.APILoggerLevel = ""
	require.Equal(t, "debug", conf.Level("vault"))
	require.Equal(t, "warn", conf.Level("sql"))
	require.Equal(t, "info", conf.Level("api"))
	require.Equal(t, "info", conf.Level("unknown"))
}
