package vault

import (
	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/events"
	"github.com/spacemeshos/go-vault/sql"
)

//go:generate mockgen -typed -package=vault -destination=./mocks.go -source=./interface.go

// layerClock is the monotonic source of layers.
type layerClock interface {
	CurrentLayer() types.LayerID
}

type idGenerator interface {
	NewID(creator types.Address) (types.VaultID, error)
}

// transferer moves funds to the recipient as part of the database transaction behind db.
type transferer interface {
	Transfer(db sql.Executor, asset types.Asset, to types.Address, amount uint64) error
}

type publisher interface {
	Publish(events.Event)
}
