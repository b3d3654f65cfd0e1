package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-vault/cmd"
	"github.com/spacemeshos/go-vault/config"
	"github.com/spacemeshos/go-vault/config/presets"
	"github.com/spacemeshos/go-vault/log"
)

// GetCommand returns the root command with the node and the offline vault subcommands.
func GetCommand() *cobra.Command {
	conf := config.DefaultConfig()
	var configPath *string
	root := &cobra.Command{
		Use:   "vault",
		Short: "custodial vesting vaults",
	}
	configPath = cmd.AddFlags(root.PersistentFlags(), &conf)

	nodeCmd := &cobra.Command{
		Use:   "node",
		Short: "start node",
		RunE: func(c *cobra.Command, args []string) error {
			app, err := prepareApp(c, *configPath, &conf, os.Stdout)
			if err != nil {
				return err
			}
			defer app.Unlock()
			defer app.Cleanup()

			// Don't print usage on error from this point forward
			c.SilenceUsage = true

			// os.Interrupt for all systems, syscall.SIGTERM is mainly for docker.
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return app.Start(ctx)
		},
	}
	root.AddCommand(nodeCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprintln(c.OutOrStdout(), cmd.Version)
		},
	}
	root.AddCommand(versionCmd)

	addOfflineCommands(root, configPath, &conf)
	return root
}

// prepareApp loads the config, locks the data folder and initializes the app.
func prepareApp(c *cobra.Command, configPath string, conf *config.Config, out zapcore.WriteSyncer) (*App, error) {
	if err := configure(c, configPath, conf); err != nil {
		return nil, err
	}
	encoder, err := log.Encoder(conf.LOGGING.Encoder)
	if err != nil {
		return nil, log.ErrBadFlags(err)
	}
	app := New(
		WithConfig(conf),
		// this needs to be max level so that child logger can be current level or below.
		WithLog(log.NewWithWriter(zapcore.Lock(out), "", zap.NewAtomicLevelAt(zap.DebugLevel), encoder)),
	)
	if err := app.Lock(); err != nil {
		return nil, fmt.Errorf("getting exclusive file lock: %w", err)
	}
	if err := app.Initialize(); err != nil {
		app.Cleanup()
		app.Unlock()
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return app, nil
}

// configure loads config file and preset into conf, then applies values set on the command line again.
func configure(c *cobra.Command, configPath string, conf *config.Config) error {
	type override struct {
		flag  *pflag.Flag
		value string
		slice []string
	}
	var overrides []override
	c.Flags().Visit(func(f *pflag.Flag) {
		o := override{flag: f, value: f.Value.String()}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			o.slice = sv.GetSlice()
		}
		overrides = append(overrides, o)
	})

	if err := loadConfig(conf, conf.Preset, configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	for _, o := range overrides {
		var err error
		if sv, ok := o.flag.Value.(pflag.SliceValue); ok {
			err = sv.Replace(o.slice)
		} else {
			err = o.flag.Value.Set(o.value)
		}
		if err != nil {
			return log.ErrBadFlags(fmt.Errorf("flag %s: %w", o.flag.Name, err))
		}
	}
	return nil
}

// loadConfig loads config and preset (if provided) into the provided config.
// It first loads the preset and then overrides it with values from the config file.
func loadConfig(cfg *config.Config, preset, path string) error {
	v := viper.New()
	// read in config from file
	if err := config.LoadConfig(path, v); err != nil {
		return err
	}

	// override default config with preset if provided
	if len(preset) == 0 && v.IsSet("preset") {
		preset = v.GetString("preset")
	}
	if len(preset) > 0 {
		p, err := presets.Get(preset)
		if err != nil {
			return err
		}
		*cfg = p
	}

	// Unmarshall config file into config struct
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)

	opts := []viper.DecoderConfigOption{
		viper.DecodeHook(hook),
		WithZeroFields(),
		WithIgnoreUntagged(),
		WithErrorUnused(),
	}

	// load config if it was loaded to the viper
	if err := v.Unmarshal(cfg, opts...); err != nil {
		return log.ErrMalformedConfig(fmt.Errorf("unmarshal config: %w", err))
	}
	return nil
}

func WithZeroFields() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ZeroFields = true
	}
}

func WithIgnoreUntagged() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.IgnoreUntaggedFields = true
	}
}

func WithErrorUnused() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
	}
}
