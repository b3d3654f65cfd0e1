// Package ledger moves released funds to recipients by crediting their accounts.
package ledger

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/metrics"
	"github.com/spacemeshos/go-vault/sql"
	"github.com/spacemeshos/go-vault/sql/accounts"
)

// ErrInvalidTransfer is returned when transfer can't be credited to the recipient.
var ErrInvalidTransfer = errors.New("ledger: invalid transfer")

var transferred = metrics.NewCounter(
	"transferred_total",
	"ledger",
	"Total amount credited to recipients",
	[]string{"asset"},
)

type layerClock interface {
	CurrentLayer() types.LayerID
}

type zeroClock struct{}

func (zeroClock) CurrentLayer() types.LayerID { return 0 }

// Opt is for configuring Ledger.
type Opt func(*Ledger)

// WithLogger sets logger for Ledger.
func WithLogger(logger *zap.Logger) Opt {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock sets clock that is used to stamp updated accounts.
func WithClock(clock layerClock) Opt {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// Ledger credits accounts within the caller's database transaction.
type Ledger struct {
	logger *zap.Logger
	clock  layerClock
}

// New creates Ledger.
func New(opts ...Opt) *Ledger {
	l := &Ledger{
		logger: zap.NewNop(),
		clock:  zeroClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Transfer credits amount of the asset to the recipient.
// Changes are visible only if the transaction behind db is committed.
func (l *Ledger) Transfer(db sql.Executor, asset types.Asset, to types.Address, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: zero amount", ErrInvalidTransfer)
	}
	if to.IsEmpty() {
		return fmt.Errorf("%w: empty recipient", ErrInvalidTransfer)
	}
	if err := accounts.Credit(db, to, asset, amount, l.clock.CurrentLayer()); err != nil {
		if errors.Is(err, accounts.ErrOverflow) {
			return fmt.Errorf("%w: %w", ErrInvalidTransfer, err)
		}
		return err
	}
	l.logger.Debug("credited",
		zap.Stringer("asset", asset),
		zap.Stringer("to", to),
		zap.Uint64("amount", amount),
	)
	return nil
}

// Committed records the amount after the enclosing transaction is committed.
func (l *Ledger) Committed(asset types.Asset, amount uint64) {
	transferred.WithLabelValues(asset.String()).Add(float64(amount))
}
