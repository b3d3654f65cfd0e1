package timesync

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-vault/common/types"
)

func testClock(tb testing.TB, fake clockwork.Clock, genesis time.Time) *NodeClock {
	tb.Helper()
	clock, err := NewClock(Config{GenesisTime: genesis, LayerDuration: time.Minute},
		WithClock(fake),
		WithLogger(zaptest.NewLogger(tb)),
	)
	require.NoError(tb, err)
	return clock
}

func TestCurrentLayer(t *testing.T) {
	genesis := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clockwork.NewFakeClockAt(genesis.Add(-time.Hour))
	clock := testClock(t, fake, genesis)

	require.Equal(t, types.LayerID(0), clock.CurrentLayer())

	fake.Advance(time.Hour)
	require.Equal(t, types.LayerID(0), clock.CurrentLayer())

	fake.Advance(59 * time.Second)
	require.Equal(t, types.LayerID(0), clock.CurrentLayer())

	fake.Advance(time.Second)
	require.Equal(t, types.LayerID(1), clock.CurrentLayer())

	fake.Advance(250 * time.Minute)
	require.Equal(t, types.LayerID(251), clock.CurrentLayer())
	require.Equal(t, genesis.Add(251*time.Minute), clock.LayerToTime(251))
}

func TestCurrentLayerMonotonic(t *testing.T) {
	genesis := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clockwork.NewFakeClockAt(genesis.Add(10 * time.Minute))
	clock := testClock(t, fake, genesis)
	require.Equal(t, types.LayerID(10), clock.CurrentLayer())

	behind := testClock(t, clockwork.NewFakeClockAt(genesis.Add(5*time.Minute)), genesis)
	behind.last = clock.CurrentLayer()
	require.Equal(t, types.LayerID(10), behind.CurrentLayer())
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewClock(Config{GenesisTime: time.Now()})
	require.Error(t, err)
	_, err = NewClock(Config{LayerDuration: time.Second})
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	genesis := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clockwork.NewFakeClockAt(genesis)
	clock := testClock(t, fake, genesis)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- clock.Run(ctx)
	}()
	fake.BlockUntil(1)
	fake.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return clock.CurrentLayer() == 1
	}, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-errc)
}
