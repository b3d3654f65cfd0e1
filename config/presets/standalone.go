package presets

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/config"
)

func init() {
	register("standalone", standalone())
	register("testnet", testnet())
}

// standalone runs everything on loopback with a temporary data folder and short layers.
func standalone() config.Config {
	conf := config.DefaultConfig()
	conf.Address = types.DefaultTestAddressConfig()

	conf.DataDirParent = filepath.Join(os.TempDir(), "go-vault")
	conf.FileLock = filepath.Join(conf.DataDirParent, "LOCK")
	conf.DatabaseConnections = 4

	conf.Clock.GenesisTime = time.Now().UTC().Truncate(time.Second)
	conf.Clock.LayerDuration = time.Second

	conf.Vault.IDScheme = config.DerivedScheme
	conf.Vault.CacheSize = 128

	conf.Metrics.Enabled = true
	conf.LOGGING.VaultLoggerLevel = "debug"
	return conf
}

func testnet() config.Config {
	conf := config.DefaultConfig()
	conf.Address = types.DefaultTestAddressConfig()

	conf.Clock.GenesisTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	conf.Clock.LayerDuration = 30 * time.Second

	conf.Metrics.Enabled = true
	conf.LOGGING.Encoder = "json"
	return conf
}
