package node

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-vault/cmd"
	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/config"
	"github.com/spacemeshos/go-vault/vault"
)

func writeConfig(tb testing.TB, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "config.toml")
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[main]
data-folder = "/tmp/vaults"

[clock]
genesis-time = "2025-01-01T00:00:00Z"
layer-duration = "10s"

[api]
cors-allowed-origins = "http://a.example,http://b.example"

[vault]
id-scheme = "derived"
`)
	conf := config.DefaultConfig()
	require.NoError(t, loadConfig(&conf, "", path))
	require.Equal(t, "/tmp/vaults", conf.DataDirParent)
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), conf.Clock.GenesisTime.UTC())
	require.Equal(t, 10*time.Second, conf.Clock.LayerDuration)
	require.Equal(t, []string{"http://a.example", "http://b.example"}, conf.API.CORSAllowedOrigins)
	require.Equal(t, config.DerivedScheme, conf.Vault.IDScheme)
	require.Equal(t, config.DefaultConfig().Vault.CacheSize, conf.Vault.CacheSize)
}

func TestLoadConfigPreset(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		path := writeConfig(t, `preset = "standalone"`)
		conf := config.DefaultConfig()
		require.NoError(t, loadConfig(&conf, "", path))
		require.Equal(t, "standalone", conf.Preset)
		require.Equal(t, time.Second, conf.Clock.LayerDuration)
		require.Equal(t, "stest", conf.Address.NetworkHRP)
	})
	t.Run("file overrides preset", func(t *testing.T) {
		path := writeConfig(t, `
[vault]
cache-size = 7
`)
		conf := config.DefaultConfig()
		require.NoError(t, loadConfig(&conf, "testnet", path))
		require.Equal(t, "testnet", conf.Preset)
		require.Equal(t, 7, conf.Vault.CacheSize)
	})
	t.Run("unknown", func(t *testing.T) {
		conf := config.DefaultConfig()
		require.Error(t, loadConfig(&conf, "mainnet", ""))
	})
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := writeConfig(t, `
[main]
data-folders = "/tmp/vaults"
`)
	conf := config.DefaultConfig()
	require.Error(t, loadConfig(&conf, "", path))
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
[api]
listen = "127.0.0.1:1"
cors-allowed-origins = ["http://a.example", "http://b.example"]

[metrics]
enabled = false
`)
	conf := config.DefaultConfig()
	c := &cobra.Command{Use: "test"}
	cmd.AddFlags(c.Flags(), &conf)
	require.NoError(t, c.ParseFlags([]string{
		"--api-listen", "127.0.0.1:2",
		"--cors-allowed-origins", "http://c.example",
		"--metrics",
	}))
	require.NoError(t, configure(c, path, &conf))
	require.Equal(t, "127.0.0.1:2", conf.API.Listen)
	require.Equal(t, []string{"http://c.example"}, conf.API.CORSAllowedOrigins)
	require.True(t, conf.Metrics.Enabled)
}

func TestAppLock(t *testing.T) {
	conf := config.DefaultConfig()
	conf.FileLock = filepath.Join(t.TempDir(), "nested", "LOCK")
	first := New(WithConfig(&conf), WithLog(zaptest.NewLogger(t)))
	second := New(WithConfig(&conf), WithLog(zaptest.NewLogger(t)))

	require.NoError(t, first.Lock())
	require.Error(t, second.Lock())
	first.Unlock()
	first.Unlock()
	require.NoError(t, second.Lock())
	second.Unlock()
}

func TestInitialize(t *testing.T) {
	conf := config.DefaultConfig()
	conf.DataDirParent = t.TempDir()
	conf.Vault.IDScheme = config.DerivedScheme
	app := New(WithConfig(&conf), WithLog(zaptest.NewLogger(t)))
	require.NoError(t, app.Initialize())
	t.Cleanup(app.Cleanup)
	require.FileExists(t, conf.DatabasePath())

	creator := types.GenerateAddress([]byte{1})
	id, err := app.Registry().Create(context.Background(), vault.CreateParams{
		Frequency:      10,
		AmountPerCycle: 1,
		Beneficiaries:  []types.Address{creator},
		Deposit:        10,
		Asset:          types.MustParseAsset("SMH"),
		Creator:        creator,
	})
	require.NoError(t, err)
	require.NotEqual(t, types.EmptyVaultID, id)

	require.NoError(t, app.SetLogLevel("vault", "debug"))
	require.Error(t, app.SetLogLevel("unknown", "debug"))
}

func TestInitializeInvalidConfig(t *testing.T) {
	conf := config.DefaultConfig()
	conf.DataDirParent = t.TempDir()
	conf.Vault.IDScheme = "sequential"
	app := New(WithConfig(&conf))
	require.Error(t, app.Initialize())
}

func TestStart(t *testing.T) {
	pushed := make(chan string, 1)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case pushed <- r.URL.Path:
		default:
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(gateway.Close)

	conf := config.DefaultConfig()
	conf.DataDirParent = t.TempDir()
	conf.API.Listen = "127.0.0.1:0"
	conf.Metrics.Enabled = true
	conf.Metrics.Listen = "127.0.0.1:0"
	conf.Metrics.PushURL = gateway.URL
	conf.Metrics.PushPeriod = 10 * time.Millisecond
	app := New(
		WithConfig(&conf),
		WithLog(zaptest.NewLogger(t)),
		WithMetricsRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, app.Initialize())
	t.Cleanup(app.Cleanup)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- app.Start(ctx) }()
	select {
	case path := <-pushed:
		require.Contains(t, path, "/metrics/job/go-vault/instance/")
	case <-time.After(5 * time.Second):
		require.FailNow(t, "metrics were not pushed")
	}
	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		require.FailNow(t, "node didn't stop")
	}
}

func run(tb testing.TB, dir string, args ...string) ([]byte, error) {
	tb.Helper()
	c := GetCommand()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(io.Discard)
	c.SetArgs(append([]string{
		"--data-folder", dir,
		"--filelock", filepath.Join(dir, "LOCK"),
	}, args...))
	err := c.Execute()
	return out.Bytes(), err
}

func TestOfflineCommands(t *testing.T) {
	dir := t.TempDir()
	owner := types.GenerateAddress([]byte{1}).String()
	bob := types.GenerateAddress([]byte{2}).String()

	out, err := run(t, dir, "create",
		"--creator", owner,
		"--beneficiaries", owner+","+bob,
		"--deposit", "1000",
		"--amount-per-cycle", "50",
		"--frequency", "10",
		"--owner-can-withdraw-all",
	)
	require.NoError(t, err)
	var created struct {
		ID types.VaultID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(out, &created))
	id := created.ID.String()

	_, err = run(t, dir, "deposit", id, "--sender", bob, "--amount", "5")
	require.NoError(t, err)

	out, err = run(t, dir, "show", id)
	require.NoError(t, err)
	var shown types.Vault
	require.NoError(t, json.Unmarshal(out, &shown))
	require.Equal(t, uint64(1005), shown.Balance)
	require.Equal(t, 2, shown.Beneficiaries.Len())

	_, err = run(t, dir, "withdraw", id, "--sender", bob)
	require.ErrorIs(t, err, vault.ErrNoProgress)

	_, err = run(t, dir, "withdraw-all", id, "--sender", bob)
	require.ErrorIs(t, err, vault.ErrUnauthorized)

	_, err = run(t, dir, "remove-beneficiary", id, bob, "--sender", bob)
	require.NoError(t, err)

	out, err = run(t, dir, "withdraw-all", id, "--sender", owner)
	require.NoError(t, err)
	require.JSONEq(t, `{"amount": 1005}`, string(out))

	out, err = run(t, dir, "balance", owner, "SMH")
	require.NoError(t, err)
	require.JSONEq(t, `{"balance": 1005}`, string(out))

	path := filepath.Join(dir, "export", "vaults.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	out, err = run(t, dir, "export", path)
	require.NoError(t, err)
	require.JSONEq(t, `{"vaults": 1}`, string(out))

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	var exported snapshot
	require.NoError(t, json.Unmarshal(buf, &exported))
	require.True(t, config.DefaultConfig().Clock.GenesisTime.Equal(exported.Genesis))
	require.Len(t, exported.Vaults, 1)
	require.True(t, exported.Vaults[0].Ended())
	require.Equal(t, 1, exported.Vaults[0].Beneficiaries.Len())
}

func TestOfflineCommandRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "show", "not-an-id")
	require.Error(t, err)

	_, err = run(t, dir, "create", "--creator", "sm1invalid", "--deposit", "1", "--amount-per-cycle", "1")
	require.Error(t, err)

	var missing types.VaultID
	_, err = run(t, dir, "show", missing.String())
	require.ErrorIs(t, err, vault.ErrNotFound)
}

func TestVersion(t *testing.T) {
	c := GetCommand()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{"version"})
	require.NoError(t, c.Execute())
	require.Equal(t, cmd.Version+"\n", out.String())
}
