package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/sql"
	"github.com/spacemeshos/go-vault/sql/accounts"
)

type fixedClock types.LayerID

func (c fixedClock) CurrentLayer() types.LayerID { return types.LayerID(c) }

func TestTransfer(t *testing.T) {
	db := sql.InMemory()
	l := New(WithLogger(zaptest.NewLogger(t)), WithClock(fixedClock(7)))
	to := types.GenerateAddress([]byte{1})
	smh := types.MustParseAsset("SMH")

	require.NoError(t, l.Transfer(db, smh, to, 10))
	require.NoError(t, l.Transfer(db, smh, to, 5))
	balance, err := accounts.Balance(db, to, smh)
	require.NoError(t, err)
	require.Equal(t, uint64(15), balance)
}

func TestTransferInvalid(t *testing.T) {
	db := sql.InMemory()
	l := New()
	smh := types.MustParseAsset("SMH")
	to := types.GenerateAddress([]byte{1})

	require.ErrorIs(t, l.Transfer(db, smh, to, 0), ErrInvalidTransfer)
	require.ErrorIs(t, l.Transfer(db, smh, types.Address{}, 1), ErrInvalidTransfer)

	require.NoError(t, l.Transfer(db, smh, to, math.MaxUint64))
	require.ErrorIs(t, l.Transfer(db, smh, to, 1), ErrInvalidTransfer)
}

func TestTransferRolledBack(t *testing.T) {
	db := sql.InMemory()
	l := New()
	smh := types.MustParseAsset("SMH")
	to := types.GenerateAddress([]byte{1})

	tx, err := db.TxImmediate(context.Background())
	require.NoError(t, err)
	require.NoError(t, l.Transfer(tx, smh, to, 10))
	require.NoError(t, tx.Release())

	balance, err := accounts.Balance(db, to, smh)
	require.NoError(t, err)
	require.Zero(t, balance)
}
