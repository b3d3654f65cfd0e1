package config

import (
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-vault/log"
)

const defaultLoggingLevel = zapcore.InfoLevel

// LoggerConfig holds the logging level for each module.
type LoggerConfig struct {
	Encoder            string `mapstructure:"log-encoder"`
	NodeLoggerLevel    string `mapstructure:"node"`
	VaultLoggerLevel   string `mapstructure:"vault"`
	DBLoggerLevel      string `mapstructure:"sql"`
	APILoggerLevel     string `mapstructure:"api"`
	ClockLoggerLevel   string `mapstructure:"clock"`
	EventsLoggerLevel  string `mapstructure:"events"`
	LedgerLoggerLevel  string `mapstructure:"ledger"`
	MetricsLoggerLevel string `mapstructure:"metrics"`
}

// DefaultLoggingConfig returns levels used when nothing is configured.
func DefaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		Encoder:            log.ConsoleEncoder,
		NodeLoggerLevel:    defaultLoggingLevel.String(),
		VaultLoggerLevel:   defaultLoggingLevel.String(),
		DBLoggerLevel:      zapcore.WarnLevel.String(),
		APILoggerLevel:     defaultLoggingLevel.String(),
		ClockLoggerLevel:   zapcore.WarnLevel.String(),
		EventsLoggerLevel:  defaultLoggingLevel.String(),
		LedgerLoggerLevel:  defaultLoggingLevel.String(),
		MetricsLoggerLevel: zapcore.WarnLevel.String(),
	}
}

// Level returns the configured level for a named module.
// Unknown modules and empty values fall back to info.
func (c *LoggerConfig) Level(module string) string {
	var lvl string
	switch module {
	case "node":
		lvl = c.NodeLoggerLevel
	case "vault":
		lvl = c.VaultLoggerLevel
	case "sql":
		lvl = c.DBLoggerLevel
	case "api":
		lvl = c.APILoggerLevel
	case "clock":
		lvl = c.ClockLoggerLevel
	case "events":
		lvl = c.EventsLoggerLevel
	case "ledger":
		lvl = c.LedgerLoggerLevel
	case "metrics":
		lvl = c.MetricsLoggerLevel
	}
	if lvl == "" {
		return defaultLoggingLevel.String()
	}
	return lvl
}
