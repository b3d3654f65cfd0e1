package beneficiaries

import (
	"fmt"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/sql"
)

// Set replaces indexed members of the vault with members.
func Set(db sql.Executor, id types.VaultID, members []types.Address) error {
	if _, err := db.Exec("delete from vault_beneficiaries where vault = ?1;",
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, id.Bytes())
		}, nil); err != nil {
		return fmt.Errorf("clear beneficiaries of %s: %w", id, err)
	}
	for _, addr := range members {
		if _, err := db.Exec("insert into vault_beneficiaries (vault, address) values (?1, ?2);",
			func(stmt *sql.Statement) {
				stmt.BindBytes(1, id.Bytes())
				stmt.BindBytes(2, addr.Bytes())
			}, nil); err != nil {
			return fmt.Errorf("index beneficiary %s of %s: %w", addr, id, err)
		}
	}
	return nil
}

// ByAddress returns ids of the vaults where addr is a beneficiary.
func ByAddress(db sql.Executor, addr types.Address) ([]types.VaultID, error) {
	var rst []types.VaultID
	_, err := db.Exec(`select b.vault from vault_beneficiaries b
		inner join vaults v on v.id = b.vault
		where b.address = ?1 order by v.created, b.vault;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, addr.Bytes())
		}, func(stmt *sql.Statement) bool {
			var id types.VaultID
			stmt.ColumnBytes(0, id[:])
			rst = append(rst, id)
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("vaults by beneficiary %s: %w", addr, err)
	}
	return rst, nil
}
