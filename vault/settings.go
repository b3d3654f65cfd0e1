package vault

import (
	"fmt"

	"github.com/spacemeshos/go-vault/common/types"
)

func lockSettings(vault *types.Vault, sender types.Address) error {
	if !vault.IsOwner(sender) {
		return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, sender)
	}
	if vault.Settings.Locked() {
		return fmt.Errorf("%w: settings are already locked", ErrInvalidState)
	}
	vault.Settings.Lock = types.SettingsLocked
	return nil
}

// updateSettings replaces both flags. At least one of them must change.
func updateSettings(vault *types.Vault, sender types.Address, stacks, accepts bool) error {
	if !vault.IsOwner(sender) {
		return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, sender)
	}
	if vault.Settings.Locked() {
		return fmt.Errorf("%w: settings are locked", ErrInvalidState)
	}
	if vault.Settings.WithdrawableAmountStacks == stacks && vault.Settings.AcceptsAdditionalFunds == accepts {
		return fmt.Errorf("%w: settings are unchanged", ErrInvalidArgument)
	}
	vault.Settings.WithdrawableAmountStacks = stacks
	vault.Settings.AcceptsAdditionalFunds = accepts
	return nil
}
