package vault

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/sql"
	"github.com/spacemeshos/go-vault/sql/counters"
)

// UUIDGenerator allocates random version 4 identifiers.
type UUIDGenerator struct{}

// NewID returns random identifier. Creator is ignored.
func (UUIDGenerator) NewID(types.Address) (types.VaultID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return types.VaultID{}, fmt.Errorf("generate vault id: %w", err)
	}
	return types.VaultID(id), nil
}

// DerivedGenerator allocates identifiers as blake3(creator || counter).
// Counter is shared by all creators and persisted in the database, so values
// consumed by failed creates are never handed out again.
type DerivedGenerator struct {
	db sql.Executor
}

// NewDerivedGenerator creates generator that continues from the counter stored in db.
func NewDerivedGenerator(db sql.Executor) *DerivedGenerator {
	return &DerivedGenerator{db: db}
}

// NewID returns identifier derived from the creator and the next counter value.
func (g *DerivedGenerator) NewID(creator types.Address) (types.VaultID, error) {
	counter, err := counters.Next(g.db, derivedCounter)
	if err != nil {
		return types.VaultID{}, fmt.Errorf("derive vault id: %w", err)
	}
	return deriveID(creator, counter), nil
}

const derivedCounter = "vault_ids"

func deriveID(creator types.Address, counter uint64) types.VaultID {
	hasher := blake3.New()
	hasher.Write(creator.Bytes())
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], counter)
	hasher.Write(buf[:])

	var id types.VaultID
	copy(id[:], hasher.Sum(nil))
	return id
}
