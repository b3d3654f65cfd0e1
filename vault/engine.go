package vault

import (
	"fmt"
	"math/bits"

	"github.com/spacemeshos/go-vault/common/types"
)

// Release describes a single payout computed for the vault at some layer.
type Release struct {
	// Amount that is transferred to the beneficiary.
	Amount uint64 `json:"amount"`
	// Cycles that are paid. Equal to completed cycles if amounts stack, otherwise 1.
	Cycles uint64 `json:"cycles"`
	// Completed cycles since the last checkpoint, including forfeited ones.
	Completed uint64 `json:"completed"`
	// From is the checkpoint before the withdrawal.
	From types.LayerID `json:"from"`
	// To is the new checkpoint, From advanced by whole cycles.
	To types.LayerID `json:"to"`
	// Ends is true if the payout depletes the vault.
	Ends bool `json:"ends"`
}

// ComputeRelease returns payout that is releasable from the vault at layer now.
// Vault is not modified.
func ComputeRelease(vault *types.Vault, now types.LayerID) (Release, error) {
	if vault.Frequency == 0 {
		return Release{}, fmt.Errorf("%w: zero frequency", ErrInvalidState)
	}
	from := vault.LastWithdrawLayer
	if !now.After(from) {
		return Release{}, fmt.Errorf("%w: layer %s is not after checkpoint %s", ErrNoProgress, now, from)
	}
	elapsed := now.Difference(from)
	cycles := elapsed / vault.Frequency
	if cycles == 0 {
		return Release{}, fmt.Errorf("%w: %d of %d layers elapsed", ErrNoProgress, elapsed, vault.Frequency)
	}
	leftover := elapsed - cycles*vault.Frequency
	payout := uint64(cycles)
	if !vault.Settings.WithdrawableAmountStacks {
		payout = 1
	}
	hi, amount := bits.Mul64(vault.AmountPerCycle, payout)
	if hi != 0 {
		return Release{}, fmt.Errorf("%w: %d * %d cycles", ErrOverflow, vault.AmountPerCycle, payout)
	}
	rst := Release{
		Amount:    amount,
		Cycles:    payout,
		Completed: uint64(cycles),
		From:      from,
		To:        now.Sub(leftover),
	}
	if rst.Amount >= vault.Balance {
		rst.Amount = vault.Balance
		rst.Ends = true
	}
	return rst, nil
}

// apply release to the vault: decrease balance and advance the checkpoint.
func (r Release) apply(vault *types.Vault) error {
	balance, borrow := bits.Sub64(vault.Balance, r.Amount, 0)
	if borrow != 0 {
		return fmt.Errorf("%w: balance %d - %d", ErrOverflow, vault.Balance, r.Amount)
	}
	if r.To.Before(vault.LastWithdrawLayer) {
		return fmt.Errorf("%w: checkpoint %s moves back from %s", ErrInvalidState, r.To, vault.LastWithdrawLayer)
	}
	vault.Balance = balance
	vault.LastWithdrawLayer = r.To
	return nil
}
