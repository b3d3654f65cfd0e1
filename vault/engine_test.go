package vault

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-vault/common/types"
)

func TestComputeRelease(t *testing.T) {
	base := func(stacks bool, balance uint64) *types.Vault {
		return &types.Vault{
			Frequency:         100,
			AmountPerCycle:    50,
			Balance:           balance,
			Settings:          types.Settings{WithdrawableAmountStacks: stacks},
			StartLayer:        10,
			LastWithdrawLayer: 10,
		}
	}
	for _, tc := range []struct {
		desc   string
		vault  *types.Vault
		now    types.LayerID
		expect Release
		err    error
	}{
		{
			desc:   "stacking",
			vault:  base(true, 1000),
			now:    260,
			expect: Release{Amount: 100, Cycles: 2, Completed: 2, From: 10, To: 210},
		},
		{
			desc:   "non stacking forfeits cycles",
			vault:  base(false, 1000),
			now:    260,
			expect: Release{Amount: 50, Cycles: 1, Completed: 2, From: 10, To: 210},
		},
		{
			desc:   "exact cycle boundary",
			vault:  base(true, 1000),
			now:    110,
			expect: Release{Amount: 50, Cycles: 1, Completed: 1, From: 10, To: 110},
		},
		{
			desc:   "depletes",
			vault:  base(true, 40),
			now:    110,
			expect: Release{Amount: 40, Cycles: 1, Completed: 1, From: 10, To: 110, Ends: true},
		},
		{
			desc:   "pays exactly the balance",
			vault:  base(true, 100),
			now:    210,
			expect: Release{Amount: 100, Cycles: 2, Completed: 2, From: 10, To: 210, Ends: true},
		},
		{
			desc:  "no elapsed layers",
			vault: base(true, 1000),
			now:   10,
			err:   ErrNoProgress,
		},
		{
			desc:  "incomplete cycle",
			vault: base(true, 1000),
			now:   109,
			err:   ErrNoProgress,
		},
		{
			desc:  "clock behind checkpoint",
			vault: base(true, 1000),
			now:   5,
			err:   ErrNoProgress,
		},
		{
			desc: "overflow",
			vault: &types.Vault{
				Frequency:      1,
				AmountPerCycle: math.MaxUint64 / 2,
				Balance:        math.MaxUint64,
				Settings:       types.Settings{WithdrawableAmountStacks: true},
			},
			now: 3,
			err: ErrOverflow,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			before := *tc.vault
			rst, err := ComputeRelease(tc.vault, tc.now)
			require.Equal(t, before, *tc.vault, "vault must not be modified")
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, rst)
		})
	}
}

func TestReleaseApply(t *testing.T) {
	vault := &types.Vault{Balance: 100, LastWithdrawLayer: 10}
	require.NoError(t, Release{Amount: 40, From: 10, To: 30}.apply(vault))
	require.Equal(t, uint64(60), vault.Balance)
	require.Equal(t, types.LayerID(30), vault.LastWithdrawLayer)

	require.ErrorIs(t, Release{Amount: 61, To: 40}.apply(vault), ErrOverflow)
	require.ErrorIs(t, Release{Amount: 1, To: 20}.apply(vault), ErrInvalidState)
	require.Equal(t, uint64(60), vault.Balance)
}

func TestCheckpointPreservesPartialCycle(t *testing.T) {
	vault := &types.Vault{
		Frequency:      7,
		AmountPerCycle: 1,
		Balance:        math.MaxUint32,
		Settings:       types.Settings{WithdrawableAmountStacks: true},
	}
	var paid uint64
	for _, now := range []types.LayerID{3, 8, 9, 15, 22, 23, 50, 51, 70} {
		rel, err := ComputeRelease(vault, now)
		if err != nil {
			require.ErrorIs(t, err, ErrNoProgress)
			continue
		}
		require.NoError(t, rel.apply(vault))
		paid += rel.Amount
		require.Zero(t, vault.LastWithdrawLayer%7, "checkpoint advances by whole cycles")
		require.False(t, vault.LastWithdrawLayer.After(now))
	}
	// 70 / 7 cycles, regardless of when withdrawals happened
	require.Equal(t, uint64(10), paid)
}
