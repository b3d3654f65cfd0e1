// Package vault implements custodial vaults that release locked funds to beneficiaries cycle by cycle.
package vault

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/events"
	"github.com/spacemeshos/go-vault/ledger"
	"github.com/spacemeshos/go-vault/sql"
	"github.com/spacemeshos/go-vault/sql/accounts"
	"github.com/spacemeshos/go-vault/sql/beneficiaries"
	"github.com/spacemeshos/go-vault/sql/vaults"
)

const (
	opCreate             = "create"
	opDeposit            = "deposit"
	opWithdraw           = "withdraw"
	opWithdrawEverything = "withdraw_everything"
	opLockSettings       = "lock_settings"
	opUpdateSettings     = "update_settings"
	opAddBeneficiary     = "add_beneficiary"
	opRemoveBeneficiary  = "remove_beneficiary"
)

// committer is implemented by transferers that track transfers once they are committed.
type committer interface {
	Committed(asset types.Asset, amount uint64)
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}

// Opt for configuring Registry.
type Opt func(*Registry)

// WithLogger sets logger for Registry.
func WithLogger(logger *zap.Logger) Opt {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithTransfer sets the collaborator that moves released funds.
// By default funds are credited to the ledger in the same database.
func WithTransfer(transfer transferer) Opt {
	return func(r *Registry) {
		r.transfer = transfer
	}
}

// WithPublisher sets the sink for committed events.
func WithPublisher(p publisher) Opt {
	return func(r *Registry) {
		r.publisher = p
	}
}

// WithIDGenerator sets generator of vault identifiers.
func WithIDGenerator(ids idGenerator) Opt {
	return func(r *Registry) {
		r.ids = ids
	}
}

// WithCacheSize sets the number of committed vaults kept in memory. Zero disables cache.
func WithCacheSize(size int) Opt {
	return func(r *Registry) {
		r.cacheSize = size
	}
}

// CreateParams are the arguments of Registry.Create.
type CreateParams struct {
	Frequency                uint32
	AmountPerCycle           uint64
	OwnerCanWithdrawAllFunds bool
	SettingsLocked           bool
	WithdrawableAmountStacks bool
	AcceptsAdditionalFunds   bool
	Beneficiaries            []types.Address
	Deposit                  uint64
	Asset                    types.Asset
	Creator                  types.Address
}

// Registry owns vault records and executes every vault operation atomically.
//
// Mutations of the same vault are serialized. Each mutation runs in a single
// immediate database transaction, together with the transfer of released funds.
// Events are published only after the transaction is committed.
type Registry struct {
	logger    *zap.Logger
	db        *sql.Database
	clock     layerClock
	transfer  transferer
	publisher publisher
	ids       idGenerator
	cacheSize int

	locks *vaultLocks
	cache *lru.Cache[types.VaultID, *types.Vault]
}

// NewRegistry creates Registry over db. Clock is the only source of layers.
func NewRegistry(db *sql.Database, clock layerClock, opts ...Opt) (*Registry, error) {
	r := &Registry{
		logger:    zap.NewNop(),
		db:        db,
		clock:     clock,
		publisher: nopPublisher{},
		ids:       UUIDGenerator{},
		cacheSize: 1024,
		locks:     newVaultLocks(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.transfer == nil {
		r.transfer = ledger.New(ledger.WithClock(clock), ledger.WithLogger(r.logger.Named("ledger")))
	}
	if r.cacheSize > 0 {
		cache, err := lru.New[types.VaultID, *types.Vault](r.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create vault cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

type mutation func(tx *sql.Tx, vault *types.Vault, layer types.LayerID) ([]events.Event, error)

// mutate applies fn to a copy of the stored vault and commits the copy if fn succeeds.
func (r *Registry) mutate(ctx context.Context, operation string, id types.VaultID, fn mutation) (*types.Vault, error) {
	unlock := r.locks.lock(id)
	defer unlock()

	layer := r.clock.CurrentLayer()
	var (
		updated   *types.Vault
		published []events.Event
	)
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := vaults.Get(tx, id)
		if errors.Is(err, sql.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		} else if err != nil {
			return err
		}
		scratch := current.Copy()
		evs, err := fn(tx, scratch, layer)
		if err != nil {
			return err
		}
		if err := vaults.Update(tx, scratch); err != nil {
			return err
		}
		if members := scratch.Beneficiaries.List(); !slices.Equal(members, current.Beneficiaries.List()) {
			if err := beneficiaries.Set(tx, id, members); err != nil {
				return err
			}
		}
		r.invalidate(id)
		updated = scratch
		published = evs
		return nil
	})
	r.finish(operation, id, layer, updated, published, err)
	return updated, err
}

func (r *Registry) invalidate(id types.VaultID) {
	if r.cache != nil {
		r.cache.Remove(id)
	}
}

// finish records the outcome of the operation. Must be called with the vault lock held.
func (r *Registry) finish(
	operation string,
	id types.VaultID,
	layer types.LayerID,
	updated *types.Vault,
	evs []events.Event,
	err error,
) {
	operations.WithLabelValues(operation, Category(err)).Inc()
	if err != nil {
		if Category(err) == "internal" {
			r.logger.Error("vault operation failed",
				zap.String("operation", operation),
				zap.Stringer("id", id),
				zap.Uint32("layer", layer.Uint32()),
				zap.Error(err),
			)
		} else {
			r.logger.Debug("vault operation rejected",
				zap.String("operation", operation),
				zap.Stringer("id", id),
				zap.Uint32("layer", layer.Uint32()),
				zap.Error(err),
			)
		}
		return
	}
	if r.cache != nil {
		r.cache.Add(id, updated.Copy())
	}
	r.logger.Info("vault updated",
		zap.String("operation", operation),
		zap.Stringer("id", id),
		zap.Uint32("layer", layer.Uint32()),
		zap.Uint64("balance", updated.Balance),
	)
	for _, ev := range evs {
		r.publisher.Publish(ev)
	}
}

func (r *Registry) transferTo(db sql.Executor, asset types.Asset, to types.Address, amount uint64) error {
	if err := r.transfer.Transfer(db, asset, to, amount); err != nil {
		return fmt.Errorf("%w: %d %s to %s: %w", ErrTransferFailed, amount, asset, to, err)
	}
	return nil
}

func (r *Registry) committed(asset types.Asset, amount uint64) {
	released.WithLabelValues(asset.String()).Add(float64(amount))
	if c, ok := r.transfer.(committer); ok {
		c.Committed(asset, amount)
	}
}

func validateCreate(params *CreateParams) error {
	switch {
	case params.Deposit == 0:
		return fmt.Errorf("%w: zero deposit", ErrInvalidArgument)
	case params.Frequency == 0:
		return fmt.Errorf("%w: zero frequency", ErrInvalidArgument)
	case params.AmountPerCycle == 0:
		return fmt.Errorf("%w: zero amount per cycle", ErrInvalidArgument)
	case params.AmountPerCycle > params.Deposit:
		return fmt.Errorf("%w: amount per cycle %d exceeds deposit %d",
			ErrInvalidArgument, params.AmountPerCycle, params.Deposit)
	case params.Asset.IsEmpty():
		return fmt.Errorf("%w: empty asset", ErrInvalidArgument)
	case params.Creator.IsEmpty():
		return fmt.Errorf("%w: empty creator", ErrInvalidArgument)
	}
	return nil
}

// Create stores a new vault funded with the deposit and returns its identifier.
func (r *Registry) Create(ctx context.Context, params CreateParams) (types.VaultID, error) {
	if err := validateCreate(&params); err != nil {
		r.finish(opCreate, types.EmptyVaultID, r.clock.CurrentLayer(), nil, nil, err)
		return types.VaultID{}, err
	}
	set, err := validateBeneficiaries(params.Creator, params.Beneficiaries)
	if err != nil {
		r.finish(opCreate, types.EmptyVaultID, r.clock.CurrentLayer(), nil, nil, err)
		return types.VaultID{}, err
	}
	id, err := r.ids.NewID(params.Creator)
	if err != nil {
		r.finish(opCreate, types.EmptyVaultID, r.clock.CurrentLayer(), nil, nil, err)
		return types.VaultID{}, err
	}

	unlock := r.locks.lock(id)
	defer unlock()
	layer := r.clock.CurrentLayer()
	lock := types.SettingsUnlocked
	if params.SettingsLocked {
		lock = types.SettingsLocked
	}
	vault := &types.Vault{
		ID:                       id,
		Owner:                    params.Creator,
		Asset:                    params.Asset,
		Frequency:                params.Frequency,
		AmountPerCycle:           params.AmountPerCycle,
		OwnerCanWithdrawAllFunds: params.OwnerCanWithdrawAllFunds,
		Settings: types.Settings{
			Lock:                     lock,
			WithdrawableAmountStacks: params.WithdrawableAmountStacks,
			AcceptsAdditionalFunds:   params.AcceptsAdditionalFunds,
		},
		Beneficiaries:     set,
		Balance:           params.Deposit,
		StartLayer:        layer,
		LastWithdrawLayer: layer,
	}
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := vaults.Add(tx, vault, layer); errors.Is(err, sql.ErrObjectExists) {
			return fmt.Errorf("%w: vault %s already exists", ErrInvalidState, id)
		} else if err != nil {
			return err
		}
		if err := beneficiaries.Set(tx, id, set.List()); err != nil {
			return err
		}
		r.invalidate(id)
		return nil
	})
	evs := make([]events.Event, 0, 1+set.Len())
	evs = append(evs, events.NewVaultCreated(id, layer, vault.Owner))
	for _, addr := range set.List() {
		evs = append(evs, events.NewBeneficiaryAdded(id, layer, addr))
	}
	r.finish(opCreate, id, layer, vault, evs, err)
	if err != nil {
		return types.VaultID{}, err
	}
	deposited.WithLabelValues(vault.Asset.String()).Add(float64(vault.Balance))
	return id, nil
}

// Deposit adds amount of the asset to the balance of the vault.
func (r *Registry) Deposit(ctx context.Context, id types.VaultID, amount uint64, asset types.Asset, sender types.Address) error {
	_, err := r.mutate(ctx, opDeposit, id, func(_ *sql.Tx, vault *types.Vault, layer types.LayerID) ([]events.Event, error) {
		if vault.Ended() {
			return nil, fmt.Errorf("%w: vault ended", ErrInvalidState)
		}
		if !vault.Settings.AcceptsAdditionalFunds {
			return nil, fmt.Errorf("%w: vault doesn't accept additional funds", ErrInvalidState)
		}
		if asset != vault.Asset {
			return nil, fmt.Errorf("%w: asset %s, vault holds %s", ErrInvalidArgument, asset, vault.Asset)
		}
		if amount == 0 {
			return nil, fmt.Errorf("%w: zero amount", ErrInvalidArgument)
		}
		balance, carry := bits.Add64(vault.Balance, amount, 0)
		if carry != 0 {
			return nil, fmt.Errorf("%w: balance %d + %d", ErrOverflow, vault.Balance, amount)
		}
		vault.Balance = balance
		return []events.Event{events.NewDeposited(id, layer, sender, amount)}, nil
	})
	if err == nil {
		deposited.WithLabelValues(asset.String()).Add(float64(amount))
	}
	return err
}

// Withdraw releases funds for completed cycles to the sender, who must be a beneficiary.
func (r *Registry) Withdraw(ctx context.Context, id types.VaultID, sender types.Address) (Release, error) {
	var release Release
	updated, err := r.mutate(ctx, opWithdraw, id, func(tx *sql.Tx, vault *types.Vault, layer types.LayerID) ([]events.Event, error) {
		if !vault.Beneficiaries.Contains(sender) {
			return nil, fmt.Errorf("%w: %s is not a beneficiary", ErrUnauthorized, sender)
		}
		if vault.Ended() {
			return nil, fmt.Errorf("%w: vault ended", ErrInvalidState)
		}
		rel, err := ComputeRelease(vault, layer)
		if err != nil {
			return nil, err
		}
		if err := rel.apply(vault); err != nil {
			return nil, err
		}
		if err := r.transferTo(tx, vault.Asset, sender, rel.Amount); err != nil {
			return nil, err
		}
		release = rel
		evs := []events.Event{events.NewWithdrawn(id, layer, events.Withdrawn{
			Beneficiary: sender,
			Amount:      rel.Amount,
			Cycles:      rel.Cycles,
			From:        rel.From,
			To:          rel.To,
		})}
		if rel.Ends {
			evs = append(evs, events.NewEnded(id, layer))
		}
		return evs, nil
	})
	if err != nil {
		return Release{}, err
	}
	r.committed(updated.Asset, release.Amount)
	if release.Ends {
		ended.Inc()
	}
	return release, nil
}

// WithdrawEverything transfers the whole balance to the owner and ends the vault.
func (r *Registry) WithdrawEverything(ctx context.Context, id types.VaultID, sender types.Address) (uint64, error) {
	var amount uint64
	updated, err := r.mutate(ctx, opWithdrawEverything, id,
		func(tx *sql.Tx, vault *types.Vault, layer types.LayerID) ([]events.Event, error) {
			if !vault.IsOwner(sender) {
				return nil, fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, sender)
			}
			if vault.Ended() {
				return nil, fmt.Errorf("%w: vault ended", ErrInvalidState)
			}
			if !vault.OwnerCanWithdrawAllFunds {
				return nil, fmt.Errorf("%w: withdrawal of all funds is not allowed", ErrInvalidState)
			}
			amount = vault.Balance
			from := vault.LastWithdrawLayer
			vault.Balance = 0
			if layer.After(vault.LastWithdrawLayer) {
				vault.LastWithdrawLayer = layer
			}
			if err := r.transferTo(tx, vault.Asset, sender, amount); err != nil {
				return nil, err
			}
			return []events.Event{
				events.NewWithdrawn(id, layer, events.Withdrawn{
					Beneficiary: sender,
					Amount:      amount,
					From:        from,
					To:          vault.LastWithdrawLayer,
				}),
				events.NewEnded(id, layer),
			}, nil
		})
	if err != nil {
		return 0, err
	}
	r.committed(updated.Asset, amount)
	ended.Inc()
	return amount, nil
}

// LockSettings freezes settings and owner changes of beneficiaries. Lock is permanent.
func (r *Registry) LockSettings(ctx context.Context, id types.VaultID, sender types.Address) error {
	_, err := r.mutate(ctx, opLockSettings, id, func(_ *sql.Tx, vault *types.Vault, layer types.LayerID) ([]events.Event, error) {
		if err := lockSettings(vault, sender); err != nil {
			return nil, err
		}
		return []events.Event{events.NewSettingsLocked(id, layer, vault.Owner)}, nil
	})
	return err
}

// UpdateSettings replaces both policy flags of the vault.
func (r *Registry) UpdateSettings(
	ctx context.Context,
	id types.VaultID,
	sender types.Address,
	stacks, accepts bool,
) error {
	_, err := r.mutate(ctx, opUpdateSettings, id, func(_ *sql.Tx, vault *types.Vault, layer types.LayerID) ([]events.Event, error) {
		old := vault.Settings
		if err := updateSettings(vault, sender, stacks, accepts); err != nil {
			return nil, err
		}
		return []events.Event{events.NewSettingsUpdated(id, layer, old, vault.Settings)}, nil
	})
	return err
}

// AddBeneficiary adds addr to the beneficiaries of the vault on behalf of the owner.
func (r *Registry) AddBeneficiary(ctx context.Context, id types.VaultID, sender, addr types.Address) error {
	_, err := r.mutate(ctx, opAddBeneficiary, id, func(_ *sql.Tx, vault *types.Vault, layer types.LayerID) ([]events.Event, error) {
		if err := addBeneficiary(vault, sender, addr); err != nil {
			return nil, err
		}
		return []events.Event{events.NewBeneficiaryAdded(id, layer, addr)}, nil
	})
	return err
}

// RemoveBeneficiary removes addr from the beneficiaries of the vault.
func (r *Registry) RemoveBeneficiary(ctx context.Context, id types.VaultID, sender, addr types.Address) error {
	_, err := r.mutate(ctx, opRemoveBeneficiary, id, func(_ *sql.Tx, vault *types.Vault, layer types.LayerID) ([]events.Event, error) {
		if err := removeBeneficiary(vault, sender, addr); err != nil {
			return nil, err
		}
		return []events.Event{events.NewBeneficiaryRemoved(id, layer, addr)}, nil
	})
	return err
}

// Get returns a copy of the last committed state of the vault.
func (r *Registry) Get(id types.VaultID) (*types.Vault, error) {
	if r.cache != nil {
		if vault, ok := r.cache.Get(id); ok {
			return vault.Copy(), nil
		}
	}
	vault, err := vaults.Get(r.db, id)
	if errors.Is(err, sql.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	} else if err != nil {
		return nil, err
	}
	return vault, nil
}

// IsBeneficiary is true if addr may withdraw from the vault.
func (r *Registry) IsBeneficiary(id types.VaultID, addr types.Address) (bool, error) {
	vault, err := r.Get(id)
	if err != nil {
		return false, err
	}
	return vault.Beneficiaries.Contains(addr), nil
}

// Releasable returns what withdraw would pay at the current layer, without changing the vault.
func (r *Registry) Releasable(id types.VaultID) (Release, error) {
	vault, err := r.Get(id)
	if err != nil {
		return Release{}, err
	}
	if vault.Ended() {
		return Release{}, fmt.Errorf("%w: vault ended", ErrInvalidState)
	}
	return ComputeRelease(vault, r.clock.CurrentLayer())
}

// ByOwner returns vaults created by owner.
func (r *Registry) ByOwner(owner types.Address) ([]*types.Vault, error) {
	return vaults.ByOwner(r.db, owner)
}

// ByBeneficiary returns vaults where addr is a beneficiary.
func (r *Registry) ByBeneficiary(ctx context.Context, addr types.Address) ([]*types.Vault, error) {
	tx, err := r.db.Tx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Release()
	ids, err := beneficiaries.ByAddress(tx, addr)
	if err != nil {
		return nil, err
	}
	return vaults.ByIDs(tx, ids)
}

// Snapshot returns every stored vault as of a single point in time.
func (r *Registry) Snapshot(ctx context.Context) ([]*types.Vault, error) {
	tx, err := r.db.Tx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Release()
	var rst []*types.Vault
	if err := vaults.IterateAll(tx, func(vault *types.Vault) bool {
		rst = append(rst, vault)
		return true
	}); err != nil {
		return nil, err
	}
	return rst, nil
}

// Balance returns funds released to the address in the asset.
func (r *Registry) Balance(addr types.Address, asset types.Asset) (uint64, error) {
	return accounts.Balance(r.db, addr, asset)
}

// Accounts returns every asset balance released to the address.
func (r *Registry) Accounts(addr types.Address) ([]accounts.Account, error) {
	return accounts.ByAddress(r.db, addr)
}
