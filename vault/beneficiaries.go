package vault

import (
	"fmt"

	"github.com/spacemeshos/go-vault/common/types"
)

// validateBeneficiaries checks the initial beneficiary list of the vault created by creator.
func validateBeneficiaries(creator types.Address, addresses []types.Address) (types.BeneficiarySet, error) {
	if len(addresses) == 0 || len(addresses) > types.MaxBeneficiaries {
		return types.BeneficiarySet{}, fmt.Errorf("%w: %d beneficiaries, expected 1-%d",
			ErrInvalidArgument, len(addresses), types.MaxBeneficiaries)
	}
	if addresses[0] != creator {
		return types.BeneficiarySet{}, fmt.Errorf("%w: first beneficiary %s is not the creator %s",
			ErrInvalidArgument, addresses[0], creator)
	}
	for _, addr := range addresses {
		if addr.IsEmpty() {
			return types.BeneficiarySet{}, fmt.Errorf("%w: empty beneficiary address", ErrInvalidArgument)
		}
	}
	set, err := types.NewBeneficiarySet(addresses...)
	if err != nil {
		return types.BeneficiarySet{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return set, nil
}

// addBeneficiary inserts addr into beneficiaries of the vault on behalf of sender.
//
// The bound is strict: count+1 must be below MaxBeneficiaries, so at most
// MaxBeneficiaries-1 members can be reached through this path. Creation accepts
// up to MaxBeneficiaries.
func addBeneficiary(vault *types.Vault, sender, addr types.Address) error {
	if !vault.IsOwner(sender) {
		return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, sender)
	}
	if vault.Settings.Locked() {
		return fmt.Errorf("%w: settings are locked", ErrInvalidState)
	}
	if vault.Beneficiaries.Len()+1 >= types.MaxBeneficiaries {
		return fmt.Errorf("%w: %d beneficiaries, can't add more", ErrInvalidArgument, vault.Beneficiaries.Len())
	}
	if vault.Beneficiaries.Contains(addr) {
		return fmt.Errorf("%w: %s is already a beneficiary", ErrInvalidArgument, addr)
	}
	if addr.IsEmpty() {
		return fmt.Errorf("%w: empty beneficiary address", ErrInvalidArgument)
	}
	if err := vault.Beneficiaries.Add(addr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}

// removeBeneficiary deletes addr from beneficiaries of the vault on behalf of sender.
// Beneficiary can always remove itself. Owner can remove others only while settings are unlocked.
func removeBeneficiary(vault *types.Vault, sender, addr types.Address) error {
	if vault.IsOwner(addr) {
		return fmt.Errorf("%w: owner can't be removed", ErrInvalidArgument)
	}
	if vault.Beneficiaries.Len() < 2 {
		return fmt.Errorf("%w: vault has a single beneficiary", ErrInvalidArgument)
	}
	if !vault.Beneficiaries.Contains(addr) {
		return fmt.Errorf("%w: %s is not a beneficiary", ErrInvalidArgument, addr)
	}
	if sender != addr {
		if !vault.IsOwner(sender) {
			return fmt.Errorf("%w: %s can't remove %s", ErrUnauthorized, sender, addr)
		}
		if vault.Settings.Locked() {
			return fmt.Errorf("%w: settings are locked", ErrInvalidState)
		}
	}
	if err := vault.Beneficiaries.Remove(addr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}
