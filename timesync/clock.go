// Package timesync converts wall time into layers, the ticks of the vault clock.
package timesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/metrics"
)

var currentLayer = metrics.NewGauge("current_layer", "clock", "Last layer observed by the clock", []string{}).
	WithLabelValues()

// Config is the layer clock configuration.
type Config struct {
	GenesisTime   time.Time     `mapstructure:"genesis-time"`
	LayerDuration time.Duration `mapstructure:"layer-duration"`
}

// DefaultConfig returns the default clock configuration.
func DefaultConfig() Config {
	return Config{
		GenesisTime:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LayerDuration: 5 * time.Minute,
	}
}

// Validate checks that configuration can be used to create a clock.
func (c Config) Validate() error {
	if c.LayerDuration <= 0 {
		return fmt.Errorf("layer duration must be positive, got %s", c.LayerDuration)
	}
	if c.GenesisTime.IsZero() {
		return errors.New("genesis time is not set")
	}
	return nil
}

// Opt for configuring NodeClock.
type Opt func(*NodeClock)

// WithLogger sets logger for NodeClock.
func WithLogger(logger *zap.Logger) Opt {
	return func(c *NodeClock) {
		c.logger = logger
	}
}

// WithClock overwrites source of wall time.
func WithClock(clock clockwork.Clock) Opt {
	return func(c *NodeClock) {
		c.clock = clock
	}
}

// NodeClock is the monotonic layer clock shared by all vaults.
type NodeClock struct {
	logger   *zap.Logger
	clock    clockwork.Clock
	genesis  time.Time
	duration time.Duration

	mu   sync.Mutex
	last types.LayerID
}

// NewClock creates NodeClock from configuration.
func NewClock(cfg Config, opts ...Opt) (*NodeClock, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &NodeClock{
		logger:   zap.NewNop(),
		clock:    clockwork.NewRealClock(),
		genesis:  cfg.GenesisTime,
		duration: cfg.LayerDuration,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GenesisTime returns the time of layer 0.
func (c *NodeClock) GenesisTime() time.Time {
	return c.genesis
}

// TimeToLayer returns layer that contains t. Times before genesis map to layer 0.
func (c *NodeClock) TimeToLayer(t time.Time) types.LayerID {
	if t.Before(c.genesis) {
		return 0
	}
	return types.LayerID(uint32(t.Sub(c.genesis) / c.duration))
}

// LayerToTime returns the start time of the layer.
func (c *NodeClock) LayerToTime(layer types.LayerID) time.Time {
	return c.genesis.Add(time.Duration(layer) * c.duration)
}

// CurrentLayer returns the current layer. It never returns a layer lower than
// one it already returned, even if wall time moves backwards.
func (c *NodeClock) CurrentLayer() types.LayerID {
	layer := c.TimeToLayer(c.clock.Now())
	c.mu.Lock()
	defer c.mu.Unlock()
	if layer.Before(c.last) {
		c.logger.Warn("wall clock moved backwards",
			zap.Uint32("observed", layer.Uint32()),
			zap.Uint32("last", c.last.Uint32()),
		)
		return c.last
	}
	if layer.After(c.last) {
		currentLayer.Set(float64(layer))
	}
	c.last = layer
	return layer
}

// Run logs every new layer until ctx is canceled.
func (c *NodeClock) Run(ctx context.Context) error {
	c.logger.Info("layer clock started",
		zap.Time("genesis", c.genesis),
		zap.Duration("layer_duration", c.duration),
		zap.Uint32("layer", c.CurrentLayer().Uint32()),
	)
	for {
		next := c.LayerToTime(c.CurrentLayer().Add(1))
		select {
		case <-ctx.Done():
			return nil
		case <-c.clock.After(next.Sub(c.clock.Now())):
			c.logger.Debug("new layer", zap.Uint32("layer", c.CurrentLayer().Uint32()))
		}
	}
}
