package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/config"
	"github.com/spacemeshos/go-vault/vault"
)

type snapshot struct {
	Genesis time.Time      `json:"genesis"`
	Layer   types.LayerID  `json:"layer"`
	Vaults  []*types.Vault `json:"vaults"`
}

// offline runs fn against the data folder without starting servers.
// Logs go to stderr, results are written to the command output as json.
func offline(
	configPath *string,
	conf *config.Config,
	fn func(ctx context.Context, app *App, args []string) (any, error),
) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		app, err := prepareApp(c, *configPath, conf, os.Stderr)
		if err != nil {
			return err
		}
		defer app.Unlock()
		defer app.Cleanup()
		c.SilenceUsage = true

		rst, err := fn(c.Context(), app, args)
		if err != nil {
			return err
		}
		if rst == nil {
			return nil
		}
		enc := json.NewEncoder(c.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rst)
	}
}

func parseAddresses(raw ...string) ([]types.Address, error) {
	rst := make([]types.Address, 0, len(raw))
	for _, s := range raw {
		addr, err := types.StringToAddress(s)
		if err != nil {
			return nil, fmt.Errorf("parse address %q: %w", s, err)
		}
		rst = append(rst, addr)
	}
	return rst, nil
}

func addOfflineCommands(root *cobra.Command, configPath *string, conf *config.Config) {
	var (
		sender string
		asset  string
		amount uint64
	)
	senderFlag := func(c *cobra.Command) {
		c.Flags().StringVar(&sender, "sender", "", "address that signs the operation")
		_ = c.MarkFlagRequired("sender")
	}
	vaultArg := func(args []string) (types.VaultID, types.Address, error) {
		id, err := types.ParseVaultID(args[0])
		if err != nil {
			return id, types.Address{}, err
		}
		addrs, err := parseAddresses(sender)
		if err != nil {
			return id, types.Address{}, err
		}
		return id, addrs[0], nil
	}

	var (
		create       vault.CreateParams
		creator      string
		members      []string
		settingsLock bool
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "create a vault funded with the deposit",
		Args:  cobra.NoArgs,
		RunE: offline(configPath, conf, func(ctx context.Context, app *App, _ []string) (any, error) {
			if len(members) == 0 {
				members = []string{creator}
			}
			addrs, err := parseAddresses(append([]string{creator}, members...)...)
			if err != nil {
				return nil, err
			}
			params := create
			params.Creator = addrs[0]
			params.Beneficiaries = addrs[1:]
			params.SettingsLocked = settingsLock
			params.Deposit = amount
			if params.Asset, err = types.ParseAsset(asset); err != nil {
				return nil, err
			}
			id, err := app.Registry().Create(ctx, params)
			if err != nil {
				return nil, err
			}
			return map[string]types.VaultID{"id": id}, nil
		}),
	}
	createCmd.Flags().StringVar(&creator, "creator", "", "owner of the vault")
	_ = createCmd.MarkFlagRequired("creator")
	createCmd.Flags().StringSliceVar(&members, "beneficiaries", nil,
		"beneficiaries, the first one must be the creator (default [creator])")
	createCmd.Flags().Uint64Var(&amount, "deposit", 0, "initial balance")
	createCmd.Flags().StringVar(&asset, "asset", "SMH", "asset ticker")
	createCmd.Flags().Uint32Var(&create.Frequency, "frequency", 1, "layers in a single cycle")
	createCmd.Flags().Uint64Var(&create.AmountPerCycle, "amount-per-cycle", 0, "amount released every cycle")
	createCmd.Flags().BoolVar(&create.OwnerCanWithdrawAllFunds, "owner-can-withdraw-all", false,
		"allow owner to withdraw the whole balance at once")
	createCmd.Flags().BoolVar(&settingsLock, "settings-locked", false, "lock settings at creation")
	createCmd.Flags().BoolVar(&create.WithdrawableAmountStacks, "stacks", true,
		"skipped cycles accumulate instead of being forfeited")
	createCmd.Flags().BoolVar(&create.AcceptsAdditionalFunds, "accepts-funds", true, "allow deposits after creation")

	depositCmd := &cobra.Command{
		Use:   "deposit <vault>",
		Short: "add funds to the vault",
		Args:  cobra.ExactArgs(1),
		RunE: offline(configPath, conf, func(ctx context.Context, app *App, args []string) (any, error) {
			id, from, err := vaultArg(args)
			if err != nil {
				return nil, err
			}
			parsed, err := types.ParseAsset(asset)
			if err != nil {
				return nil, err
			}
			return nil, app.Registry().Deposit(ctx, id, amount, parsed, from)
		}),
	}
	senderFlag(depositCmd)
	depositCmd.Flags().Uint64Var(&amount, "amount", 0, "amount to deposit")
	depositCmd.Flags().StringVar(&asset, "asset", "SMH", "asset ticker")

	withdrawCmd := &cobra.Command{
		Use:   "withdraw <vault>",
		Short: "release completed cycles to the sender",
		Args:  cobra.ExactArgs(1),
		RunE: offline(configPath, conf, func(ctx context.Context, app *App, args []string) (any, error) {
			id, from, err := vaultArg(args)
			if err != nil {
				return nil, err
			}
			return app.Registry().Withdraw(ctx, id, from)
		}),
	}
	senderFlag(withdrawCmd)

	withdrawAllCmd := &cobra.Command{
		Use:   "withdraw-all <vault>",
		Short: "release the whole balance to the owner",
		Args:  cobra.ExactArgs(1),
		RunE: offline(configPath, conf, func(ctx context.Context, app *App, args []string) (any, error) {
			id, from, err := vaultArg(args)
			if err != nil {
				return nil, err
			}
			released, err := app.Registry().WithdrawEverything(ctx, id, from)
			if err != nil {
				return nil, err
			}
			return map[string]uint64{"amount": released}, nil
		}),
	}
	senderFlag(withdrawAllCmd)

	lockCmd := &cobra.Command{
		Use:   "lock-settings <vault>",
		Short: "lock settings and beneficiaries permanently",
		Args:  cobra.ExactArgs(1),
		RunE: offline(configPath, conf, func(ctx context.Context, app *App, args []string) (any, error) {
			id, from, err := vaultArg(args)
			if err != nil {
				return nil, err
			}
			return nil, app.Registry().LockSettings(ctx, id, from)
		}),
	}
	senderFlag(lockCmd)

	var stacks, accepts bool
	updateCmd := &cobra.Command{
		Use:   "update-settings <vault>",
		Short: "replace settings of the unlocked vault",
		Args:  cobra.ExactArgs(1),
		RunE: offline(configPath, conf, func(ctx context.Context, app *App, args []string) (any, error) {
			id, from, err := vaultArg(args)
			if err != nil {
				return nil, err
			}
			return nil, app.Registry().UpdateSettings(ctx, id, from, stacks, accepts)
		}),
	}
	senderFlag(updateCmd)
	updateCmd.Flags().BoolVar(&stacks, "stacks", false, "skipped cycles accumulate")
	updateCmd.Flags().BoolVar(&accepts, "accepts-funds", false, "allow deposits")

	beneficiaryCmd := func(use, short string,
		op func(r *vault.Registry, ctx context.Context, id types.VaultID, sender, addr types.Address) error,
	) *cobra.Command {
		c := &cobra.Command{
			Use:   use + " <vault> <address>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: offline(configPath, conf, func(ctx context.Context, app *App, args []string) (any, error) {
				id, from, err := vaultArg(args)
				if err != nil {
					return nil, err
				}
				addrs, err := parseAddresses(args[1])
				if err != nil {
					return nil, err
				}
				return nil, op(app.Registry(), ctx, id, from, addrs[0])
			}),
		}
		senderFlag(c)
		return c
	}

	showCmd := &cobra.Command{
		Use:   "show <vault>",
		Short: "print the vault",
		Args:  cobra.ExactArgs(1),
		RunE: offline(configPath, conf, func(_ context.Context, app *App, args []string) (any, error) {
			id, err := types.ParseVaultID(args[0])
			if err != nil {
				return nil, err
			}
			return app.Registry().Get(id)
		}),
	}

	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "write all vaults to a json file",
		Args:  cobra.ExactArgs(1),
		RunE: offline(configPath, conf, func(ctx context.Context, app *App, args []string) (any, error) {
			found, err := app.Registry().Snapshot(ctx)
			if err != nil {
				return nil, err
			}
			buf, err := json.MarshalIndent(snapshot{
				Genesis: app.clock.GenesisTime(),
				Layer:   app.clock.CurrentLayer(),
				Vaults:  found,
			}, "", "  ")
			if err != nil {
				return nil, err
			}
			if err := atomic.WriteFile(args[0], bytes.NewReader(buf)); err != nil {
				return nil, fmt.Errorf("write snapshot %s: %w", args[0], err)
			}
			return map[string]int{"vaults": len(found)}, nil
		}),
	}

	balanceCmd := &cobra.Command{
		Use:   "balance <address> <asset>",
		Short: "print funds released to the address",
		Args:  cobra.ExactArgs(2),
		RunE: offline(configPath, conf, func(_ context.Context, app *App, args []string) (any, error) {
			addrs, err := parseAddresses(args[0])
			if err != nil {
				return nil, err
			}
			parsed, err := types.ParseAsset(args[1])
			if err != nil {
				return nil, err
			}
			balance, err := app.Registry().Balance(addrs[0], parsed)
			if err != nil {
				return nil, err
			}
			return map[string]uint64{"balance": balance}, nil
		}),
	}

	root.AddCommand(
		createCmd,
		depositCmd,
		withdrawCmd,
		withdrawAllCmd,
		lockCmd,
		updateCmd,
		beneficiaryCmd("add-beneficiary", "add beneficiary to the unlocked vault", (*vault.Registry).AddBeneficiary),
		beneficiaryCmd("remove-beneficiary", "remove beneficiary from the vault", (*vault.Registry).RemoveBeneficiary),
		showCmd,
		exportCmd,
		balanceCmd,
	)
}
