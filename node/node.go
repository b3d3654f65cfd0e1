// Package node contains the main executable for the vault node.
package node

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-vault/api"
	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/config"
	"github.com/spacemeshos/go-vault/events"
	"github.com/spacemeshos/go-vault/ledger"
	"github.com/spacemeshos/go-vault/log"
	"github.com/spacemeshos/go-vault/metrics"
	"github.com/spacemeshos/go-vault/sql"
	"github.com/spacemeshos/go-vault/sql/vaults"
	"github.com/spacemeshos/go-vault/timesync"
	"github.com/spacemeshos/go-vault/vault"
)

// Option to modify an App instance.
type Option func(app *App)

// WithLog enables logger for an App.
// The logger must be created at the lowest level, child loggers are restricted by the config.
func WithLog(logger *zap.Logger) Option {
	return func(app *App) {
		app.log = logger
	}
}

// WithConfig overwrites default App config.
func WithConfig(conf *config.Config) Option {
	return func(app *App) {
		app.Config = conf
	}
}

// WithMetricsRegistry sets the registry for api request metrics and the source of served and pushed metrics.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(app *App) {
		app.registerer = reg
		app.gatherer = reg
	}
}

// New creates an instance of the vault app.
func New(opts ...Option) *App {
	defaultConfig := config.DefaultConfig()
	app := &App{
		Config:     &defaultConfig,
		log:        zap.NewNop(),
		gatherer:   prometheus.DefaultGatherer,
		registerer: prometheus.DefaultRegisterer,
		loggers:    make(map[string]zap.AtomicLevel),
		children:   make(map[string]*zap.Logger),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// App is the cli app singleton.
type App struct {
	Config *config.Config

	log        *zap.Logger
	loggers    map[string]zap.AtomicLevel
	children   map[string]*zap.Logger
	gatherer   prometheus.Gatherer
	registerer prometheus.Registerer
	fileLock   *flock.Flock

	db       *sql.Database
	clock    *timesync.NodeClock
	reporter *events.Reporter
	registry *vault.Registry
}

// Lock locks the app for exclusive use. It returns an error if the app is already locked.
func (app *App) Lock() error {
	lockDir := filepath.Dir(app.Config.FileLock)
	if _, err := os.Stat(lockDir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(lockDir, 0o700); err != nil {
			return fmt.Errorf("creating dir %s for lock %s: %w", lockDir, app.Config.FileLock, err)
		}
	}
	fl := flock.New(app.Config.FileLock)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("flock %s: %w", app.Config.FileLock, err)
	} else if !locked {
		return log.ErrLockDataDir(fl.Path())
	}
	app.fileLock = fl
	return nil
}

// Unlock unlocks the app. It is a no-op if the app is not locked.
func (app *App) Unlock() {
	if app.fileLock == nil {
		return
	}
	if err := app.fileLock.Unlock(); err != nil {
		app.log.Error("failed to unlock file",
			zap.String("path", app.fileLock.Path()),
			zap.Error(err),
		)
	}
	app.fileLock = nil
}

// addLogger returns a named child logger restricted to the level configured for the module.
func (app *App) addLogger(name string) (*zap.Logger, error) {
	lvl, err := log.ParseLevel(app.Config.LOGGING.Level(name))
	if err != nil {
		return nil, fmt.Errorf("logging for %s: %w", name, err)
	}
	app.loggers[name] = lvl
	return log.WithLevel(app.log.Named(name), lvl), nil
}

// SetLogLevel updates the log level of an existing logger.
func (app *App) SetLogLevel(name, level string) error {
	lvl, exist := app.loggers[name]
	if !exist {
		return fmt.Errorf("cannot find logger %v", name)
	}
	return lvl.UnmarshalText([]byte(level))
}

// Initialize opens the database and creates the vault registry with its collaborators.
func (app *App) Initialize() error {
	if err := app.Config.Validate(); err != nil {
		return log.ErrMalformedConfig(err)
	}
	types.SetNetworkHRP(app.Config.Address.NetworkHRP)
	if err := os.MkdirAll(app.Config.DataDir(), 0o700); err != nil {
		return log.ErrEnsureDataDir(app.Config.DataDir(), err)
	}

	loggers := app.children
	for _, name := range []string{"node", "sql", "clock", "events", "vault", "ledger", "api", "metrics"} {
		logger, err := app.addLogger(name)
		if err != nil {
			return log.ErrMalformedConfig(err)
		}
		loggers[name] = logger
	}

	db, err := sql.Open("file:"+app.Config.DatabasePath(),
		sql.WithConnections(app.Config.DatabaseConnections),
		sql.WithLatencyMetering(app.Config.DatabaseLatencyMetering),
		sql.WithLogger(loggers["sql"]),
	)
	if err != nil {
		return log.ErrOpenDatabase(app.Config.DatabasePath(), err)
	}
	app.db = db

	app.clock, err = timesync.NewClock(app.Config.Clock, timesync.WithLogger(loggers["clock"]))
	if err != nil {
		return err
	}
	app.reporter = events.NewReporter(
		events.WithLogger(loggers["events"]),
		events.WithBuffer(app.Config.Vault.EventsBuffer),
	)
	app.registry, err = vault.NewRegistry(app.db, app.clock,
		vault.WithLogger(loggers["vault"]),
		vault.WithTransfer(ledger.New(ledger.WithClock(app.clock), ledger.WithLogger(loggers["ledger"]))),
		vault.WithPublisher(app.reporter),
		app.idGenerator(),
		vault.WithCacheSize(app.Config.Vault.CacheSize),
	)
	if err != nil {
		return err
	}
	total, ended, err := vaults.Count(app.db)
	if err != nil {
		return err
	}
	loggers["node"].Info("vault node initialized",
		zap.String("data", app.Config.DataDir()),
		zap.String("preset", app.Config.Preset),
		zap.Time("genesis", app.clock.GenesisTime()),
		zap.Stringer("layer", app.clock.CurrentLayer()),
		zap.Int("vaults", total),
		zap.Int("ended", ended),
	)
	return nil
}

// idGenerator selects the identifier scheme. Derived identifiers continue from the persisted counter.
func (app *App) idGenerator() vault.Opt {
	switch app.Config.Vault.IDScheme {
	case config.DerivedScheme:
		return vault.WithIDGenerator(vault.NewDerivedGenerator(app.db))
	default:
		return vault.WithIDGenerator(vault.UUIDGenerator{})
	}
}

// Registry returns the initialized vault registry.
func (app *App) Registry() *vault.Registry {
	return app.registry
}

// Start serves the api, metrics and the clock until ctx is canceled or one of them fails.
func (app *App) Start(ctx context.Context) error {
	logger := app.children["node"]
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return app.clock.Run(ctx)
	})
	server := api.NewServer(app.Config.API.Listen, app.registry,
		api.WithLogger(app.children["api"]),
		api.WithEvents(app.reporter),
		api.WithCORSAllowedOrigins(app.Config.API.CORSAllowedOrigins),
		api.WithMetricsRegisterer(app.registerer),
	)
	eg.Go(func() error {
		return server.Run(ctx)
	})
	if app.Config.Metrics.Enabled {
		metricsLogger := app.children["metrics"]
		srv := metrics.NewServer(app.Config.Metrics.Listen, app.gatherer, metricsLogger)
		eg.Go(func() error {
			return srv.Run(ctx)
		})
		if app.Config.Metrics.PushURL != "" {
			eg.Go(func() error {
				return metrics.PushMetrics(ctx, metricsLogger,
					app.Config.Metrics.PushURL,
					app.Config.Metrics.PushPeriod,
					app.gatherer,
					app.Config.API.Listen,
				)
			})
		}
	}
	logger.Info("vault node started", zap.String("api", app.Config.API.Listen))
	return eg.Wait()
}

// Cleanup closes the database.
func (app *App) Cleanup() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.log.Error("failed to close database", zap.Error(err))
	}
	app.db = nil
}
