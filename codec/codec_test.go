package codec_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-vault/codec"
	"github.com/spacemeshos/go-vault/common/types"
)

func TestVaultRoundTrip(t *testing.T) {
	owner := types.GenerateAddress([]byte("owner"))
	other := types.GenerateAddress([]byte("other"))
	set, err := types.NewBeneficiarySet(owner, other)
	require.NoError(t, err)

	vault := types.Vault{
		ID:                       types.VaultID{1, 2, 3},
		Owner:                    owner,
		Asset:                    types.MustParseAsset("SMH"),
		Frequency:                100,
		AmountPerCycle:           50,
		OwnerCanWithdrawAllFunds: true,
		Settings: types.Settings{
			Lock:                     types.SettingsLocked,
			WithdrawableAmountStacks: true,
		},
		Beneficiaries:     set,
		Balance:           1 << 62,
		StartLayer:        7,
		LastWithdrawLayer: 207,
	}
	buf, err := codec.Encode(&vault)
	require.NoError(t, err)

	var decoded types.Vault
	require.NoError(t, codec.Decode(buf, &decoded))
	require.Empty(t, cmp.Diff(vault, decoded, cmp.AllowUnexported(types.BeneficiarySet{})))
}

func TestDecodeTrailing(t *testing.T) {
	vault := types.Vault{Frequency: 1}
	buf := append(codec.MustEncode(&vault), 0)
	require.ErrorContains(t, codec.Decode(buf, &types.Vault{}), "trailing")
}

func TestDecodeTooManyBeneficiaries(t *testing.T) {
	// count prefix larger than the capacity of the set
	buf := []byte{byte(types.MaxBeneficiaries+1) << 2}
	var set types.BeneficiarySet
	require.ErrorIs(t, codec.Decode(buf, &set), types.ErrBeneficiariesFull)
}
