package accounts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/sql"
)

func TestCredit(t *testing.T) {
	db := sql.InMemory()
	address := types.GenerateAddress([]byte{1})
	smh := types.MustParseAsset("SMH")
	other := types.MustParseAsset("USD")

	balance, err := Balance(db, address, smh)
	require.NoError(t, err)
	require.Zero(t, balance)

	require.NoError(t, Credit(db, address, smh, 100, 1))
	require.NoError(t, Credit(db, address, smh, 50, 2))
	require.NoError(t, Credit(db, address, other, 7, 3))

	balance, err = Balance(db, address, smh)
	require.NoError(t, err)
	require.Equal(t, uint64(150), balance)

	all, err := ByAddress(db, address)
	require.NoError(t, err)
	require.Equal(t, []Account{
		{Address: address, Asset: smh, Balance: 150, Layer: 2},
		{Address: address, Asset: other, Balance: 7, Layer: 3},
	}, all)
}

func TestCreditOverflow(t *testing.T) {
	db := sql.InMemory()
	address := types.GenerateAddress([]byte{1})
	smh := types.MustParseAsset("SMH")

	require.NoError(t, Credit(db, address, smh, math.MaxInt64, 1))
	require.NoError(t, Credit(db, address, smh, math.MaxInt64, 2))
	balance, err := Balance(db, address, smh)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64-1), balance)

	require.NoError(t, Credit(db, address, smh, 1, 3))
	require.ErrorIs(t, Credit(db, address, smh, 1, 4), ErrOverflow)

	balance, err = Balance(db, address, smh)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), balance)

	all, err := ByAddress(db, address)
	require.NoError(t, err)
	require.Equal(t, []Account{{Address: address, Asset: smh, Balance: math.MaxUint64, Layer: 3}}, all)
}
