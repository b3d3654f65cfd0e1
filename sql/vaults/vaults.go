package vaults

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/go-vault/codec"
	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/sql"
)

// Add inserts a new vault record. Returns sql.ErrObjectExists if id is already taken.
func Add(db sql.Executor, vault *types.Vault, created types.LayerID) error {
	state, err := codec.Encode(vault)
	if err != nil {
		return fmt.Errorf("encode vault %s: %w", vault.ID, err)
	}
	if _, err := db.Exec(`insert into vaults (id, owner, asset, balance, last_withdraw, created, state)
		values (?1, ?2, ?3, ?4, ?5, ?6, ?7);`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, vault.ID.Bytes())
			stmt.BindBytes(2, vault.Owner.Bytes())
			stmt.BindBytes(3, vault.Asset[:])
			stmt.BindInt64(4, int64(vault.Balance))
			stmt.BindInt64(5, int64(vault.LastWithdrawLayer))
			stmt.BindInt64(6, int64(created))
			stmt.BindBytes(7, state)
		}, nil); err != nil {
		return fmt.Errorf("insert vault %s: %w", vault.ID, err)
	}
	return nil
}

// Update overwrites mutable state of the existing vault record.
func Update(db sql.Executor, vault *types.Vault) error {
	state, err := codec.Encode(vault)
	if err != nil {
		return fmt.Errorf("encode vault %s: %w", vault.ID, err)
	}
	rows, err := db.Exec(`update vaults set balance = ?2, last_withdraw = ?3, state = ?4 where id = ?1 returning id;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, vault.ID.Bytes())
			stmt.BindInt64(2, int64(vault.Balance))
			stmt.BindInt64(3, int64(vault.LastWithdrawLayer))
			stmt.BindBytes(4, state)
		}, nil)
	if err != nil {
		return fmt.Errorf("update vault %s: %w", vault.ID, err)
	}
	if rows == 0 {
		return fmt.Errorf("update vault %s: %w", vault.ID, sql.ErrNotFound)
	}
	return nil
}

func decode(stmt *sql.Statement, col int) (*types.Vault, error) {
	var vault types.Vault
	if _, err := codec.DecodeFrom(stmt.ColumnReader(col), &vault); err != nil {
		return nil, err
	}
	return &vault, nil
}

// Get loads vault by id. Returns sql.ErrNotFound if vault doesn't exist.
func Get(db sql.Executor, id types.VaultID) (*types.Vault, error) {
	var (
		vault  *types.Vault
		decErr error
	)
	rows, err := db.Exec("select state from vaults where id = ?1;",
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, id.Bytes())
		}, func(stmt *sql.Statement) bool {
			vault, decErr = decode(stmt, 0)
			return false
		})
	if err != nil {
		return nil, fmt.Errorf("get vault %s: %w", id, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("get vault %s: %w", id, sql.ErrNotFound)
	}
	if decErr != nil {
		return nil, fmt.Errorf("decode vault %s: %w", id, decErr)
	}
	return vault, nil
}

func collect(db sql.Executor, query string, enc sql.Encoder) ([]*types.Vault, error) {
	var (
		rst    []*types.Vault
		decErr error
	)
	_, err := db.Exec(query, enc, func(stmt *sql.Statement) bool {
		var vault *types.Vault
		vault, decErr = decode(stmt, 0)
		if decErr != nil {
			return false
		}
		rst = append(rst, vault)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decErr != nil {
		return nil, decErr
	}
	return rst, nil
}

// ByOwner returns vaults created by owner in creation order.
func ByOwner(db sql.Executor, owner types.Address) ([]*types.Vault, error) {
	rst, err := collect(db, "select state from vaults where owner = ?1 order by created, id;",
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, owner.Bytes())
		})
	if err != nil {
		return nil, fmt.Errorf("vaults by owner %s: %w", owner, err)
	}
	return rst, nil
}

// ByIDs returns vaults with given ids, skipping unknown ids.
func ByIDs(db sql.Executor, ids []types.VaultID) ([]*types.Vault, error) {
	rst := make([]*types.Vault, 0, len(ids))
	for _, id := range ids {
		vault, err := Get(db, id)
		switch {
		case err == nil:
			rst = append(rst, vault)
		case errors.Is(err, sql.ErrNotFound):
		default:
			return nil, err
		}
	}
	return rst, nil
}

// IterateAll calls fn for every stored vault until fn returns false.
func IterateAll(db sql.Executor, fn func(*types.Vault) bool) error {
	var decErr error
	_, err := db.Exec("select state from vaults order by created, id;", nil,
		func(stmt *sql.Statement) bool {
			vault, err := decode(stmt, 0)
			if err != nil {
				decErr = err
				return false
			}
			return fn(vault)
		})
	if err != nil {
		return fmt.Errorf("iterate vaults: %w", err)
	}
	if decErr != nil {
		return fmt.Errorf("decode vault: %w", decErr)
	}
	return nil
}

// Count returns the number of vaults, and the number of those that ended.
func Count(db sql.Executor) (total, ended int, err error) {
	_, err = db.Exec("select count(*), coalesce(sum(balance = 0), 0) from vaults;", nil,
		func(stmt *sql.Statement) bool {
			total = stmt.ColumnInt(0)
			ended = stmt.ColumnInt(1)
			return false
		})
	if err != nil {
		return 0, 0, fmt.Errorf("count vaults: %w", err)
	}
	return total, ended, nil
}
