package accounts

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/sql"
)

// ErrOverflow is returned when credit would overflow the balance.
var ErrOverflow = errors.New("accounts: balance overflow")

// Account is a balance of a single asset held by address.
type Account struct {
	Address types.Address `json:"address"`
	Asset   types.Asset   `json:"asset"`
	Balance uint64        `json:"balance"`
	Layer   types.LayerID `json:"layer"`
}

// Balance of the address in the asset. Unknown accounts have zero balance.
// Balances are stored as the bit pattern of uint64 in a signed integer column.
func Balance(db sql.Executor, address types.Address, asset types.Asset) (uint64, error) {
	var balance uint64
	_, err := db.Exec("select balance from accounts where address = ?1 and asset = ?2;",
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, address.Bytes())
			stmt.BindBytes(2, asset[:])
		}, func(stmt *sql.Statement) bool {
			balance = uint64(stmt.ColumnInt64(0))
			return false
		})
	if err != nil {
		return 0, fmt.Errorf("balance of %s in %s: %w", address, asset, err)
	}
	return balance, nil
}

// Credit adds amount to the balance of the address in the asset.
func Credit(db sql.Executor, address types.Address, asset types.Asset, amount uint64, layer types.LayerID) error {
	current, err := Balance(db, address, asset)
	if err != nil {
		return err
	}
	updated, carry := bits.Add64(current, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s in %s: %d + %d", ErrOverflow, address, asset, current, amount)
	}
	if _, err := db.Exec(`insert into accounts (address, asset, balance, updated) values (?1, ?2, ?3, ?4)
		on conflict (address, asset) do update set balance = ?3, updated = ?4;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, address.Bytes())
			stmt.BindBytes(2, asset[:])
			stmt.BindInt64(3, int64(updated))
			stmt.BindInt64(4, int64(layer))
		}, nil); err != nil {
		return fmt.Errorf("credit %s in %s: %w", address, asset, err)
	}
	return nil
}

// ByAddress returns all non-empty accounts of the address.
func ByAddress(db sql.Executor, address types.Address) ([]Account, error) {
	var rst []Account
	_, err := db.Exec("select asset, balance, updated from accounts where address = ?1 order by asset;",
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, address.Bytes())
		}, func(stmt *sql.Statement) bool {
			account := Account{Address: address}
			stmt.ColumnBytes(0, account.Asset[:])
			account.Balance = uint64(stmt.ColumnInt64(1))
			account.Layer = types.LayerID(uint32(stmt.ColumnInt64(2)))
			rst = append(rst, account)
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("accounts of %s: %w", address, err)
	}
	return rst, nil
}
