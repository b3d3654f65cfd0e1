// Package cmd defines command line flags shared by vault commands.
package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/spacemeshos/go-vault/config"
	"github.com/spacemeshos/go-vault/config/presets"
)

// Version is set at build time.
var Version = "dev"

// AddFlags binds flags to the fields of conf and returns the pointer to the config file path.
func AddFlags(flagSet *pflag.FlagSet, conf *config.Config) (configPath *string) {
	configPath = flagSet.StringP("config", "c", "", "load configuration from file")
	flagSet.StringVarP(&conf.Preset, "preset", "p", conf.Preset,
		fmt.Sprintf("preset overwrites default values of the config. options %+s", presets.Options()))

	/** ======================== BaseConfig Flags ========================== **/
	flagSet.StringVarP(&conf.DataDirParent, "data-folder", "d",
		conf.DataDirParent, "specify data directory for vault state")
	flagSet.StringVar(&conf.FileLock, "filelock",
		conf.FileLock, "filesystem lock to prevent running more than one instance")
	flagSet.IntVar(&conf.DatabaseConnections, "db-connections",
		conf.DatabaseConnections, "number of pooled database connections")
	flagSet.BoolVar(&conf.DatabaseLatencyMetering, "db-latency-metering",
		conf.DatabaseLatencyMetering, "collect latency of every database query")

	/** ======================== Clock Flags ========================== **/
	flagSet.DurationVar(&conf.Clock.LayerDuration, "layer-duration",
		conf.Clock.LayerDuration, "duration of a single layer")

	/** ======================== API Flags ========================== **/
	flagSet.StringVar(&conf.API.Listen, "api-listen",
		conf.API.Listen, "address for the json http api")
	flagSet.StringSliceVar(&conf.API.CORSAllowedOrigins, "cors-allowed-origins",
		conf.API.CORSAllowedOrigins, "origins allowed to call the api from browsers")

	/** ======================== Metrics Flags ========================== **/
	flagSet.BoolVar(&conf.Metrics.Enabled, "metrics",
		conf.Metrics.Enabled, "serve prometheus metrics")
	flagSet.StringVar(&conf.Metrics.Listen, "metrics-listen",
		conf.Metrics.Listen, "address for the metrics server")
	flagSet.StringVar(&conf.Metrics.PushURL, "metrics-push",
		conf.Metrics.PushURL, "push metrics to url")
	flagSet.DurationVar(&conf.Metrics.PushPeriod, "metrics-push-period",
		conf.Metrics.PushPeriod, "push period")

	/** ======================== Vault Flags ========================== **/
	flagSet.IntVar(&conf.Vault.CacheSize, "vault-cache-size",
		conf.Vault.CacheSize, "number of vaults kept in memory")
	flagSet.StringVar(&conf.Vault.IDScheme, "vault-id-scheme",
		conf.Vault.IDScheme, "how vault identifiers are allocated (uuid, derived)")
	flagSet.IntVar(&conf.Vault.EventsBuffer, "events-buffer",
		conf.Vault.EventsBuffer, "number of recent events kept in memory")

	/** ======================== Logging Flags ========================== **/
	flagSet.StringVar(&conf.LOGGING.Encoder, "log-encoder",
		conf.LOGGING.Encoder, "log as plain text (console) or json")
	return configPath
}
