package counters

import (
	"fmt"

	"github.com/spacemeshos/go-vault/sql"
)

// Next returns the current value of the named counter and increments it.
// Missing counters start from zero.
func Next(db sql.Executor, name string) (uint64, error) {
	var value uint64
	rows, err := db.Exec(`insert into counters (name, value) values (?1, 1)
		on conflict (name) do update set value = value + 1
		returning value - 1;`,
		func(stmt *sql.Statement) {
			stmt.BindText(1, name)
		}, func(stmt *sql.Statement) bool {
			value = uint64(stmt.ColumnInt64(0))
			return true
		})
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", name, err)
	}
	if rows == 0 {
		return 0, fmt.Errorf("next %s: %w", name, sql.ErrNotFound)
	}
	return value, nil
}
