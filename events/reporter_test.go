package events

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spacemeshos/go-vault/common/types"
)

func TestRingBuffer(t *testing.T) {
	const cap = 10

	t.Run("empty", func(t *testing.T) {
		buffer := newRing[int](cap)
		require.Equal(t, cap, buffer.cap())
		buffer.iterate(func(val int) bool {
			require.Fail(t, "should not be called")
			return true
		})
	})

	t.Run("overwrite", func(t *testing.T) {
		buffer := newRing[int](cap)
		for i := 0; i < cap*2; i++ {
			buffer.insert(i)
		}
		expect := cap
		buffer.iterate(func(val int) bool {
			require.Equal(t, expect, val)
			expect++
			return true
		})
		require.Equal(t, cap*2, expect)
	})
	t.Run("partial", func(t *testing.T) {
		buffer := newRing[int](cap)
		for i := 0; i < cap/2; i++ {
			buffer.insert(i)
		}
		var values []int
		buffer.iterate(func(val int) bool {
			values = append(values, val)
			return true
		})
		require.Equal(t, []int{0, 1, 2, 3, 4}, values)
	})
	t.Run("terminate", func(t *testing.T) {
		buffer := newRing[int](cap)
		for i := 0; i < cap; i++ {
			buffer.insert(i)
		}
		expect := 0
		terminate := cap / 2
		buffer.iterate(func(val int) bool {
			require.Equal(t, expect, val)
			require.Less(t, val, terminate)
			expect++
			return expect < terminate
		})
		require.Equal(t, terminate, expect)
	})
}

func TestReporterRecent(t *testing.T) {
	r := NewReporter(WithBuffer(3), WithLogger(zaptest.NewLogger(t)))
	var id types.VaultID
	owner := types.GenerateAddress([]byte{1})
	for i := 0; i < 5; i++ {
		r.Publish(NewDeposited(id, types.LayerID(i), owner, uint64(i)))
	}

	recent := r.Recent(0)
	require.Len(t, recent, 3)
	for i, ev := range recent {
		require.Equal(t, TypeDeposited, ev.Type)
		require.Equal(t, types.LayerID(i+2), ev.Layer)
	}
	recent = r.Recent(1)
	require.Len(t, recent, 1)
	require.Equal(t, types.LayerID(4), recent[0].Layer)
}

func TestReporterSubscribe(t *testing.T) {
	r := NewReporter()
	var id types.VaultID
	owner := types.GenerateAddress([]byte{1})

	sub := r.Subscribe(1)
	r.Publish(NewVaultCreated(id, 1, owner))
	// subscriber is full, publishing doesn't block
	r.Publish(NewEnded(id, 2))

	ev := <-sub.Out()
	require.Equal(t, TypeVaultCreated, ev.Type)
	require.Equal(t, VaultCreated{Owner: owner}, ev.Details)
	select {
	case ev := <-sub.Out():
		require.Fail(t, "unexpected event", ev)
	default:
	}

	sub.Close()
	sub.Close()
	_, open := <-sub.Out()
	require.False(t, open)
	r.Publish(NewEnded(id, 3))
}

func TestReporterLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := NewReporter(WithLogger(zap.New(core)))
	var id types.VaultID
	r.Publish(NewWithdrawn(id, 250, Withdrawn{
		Beneficiary: types.GenerateAddress([]byte{1}),
		Amount:      100,
		Cycles:      2,
		From:        0,
		To:          200,
	}))

	entries := logs.FilterMessage(string(TypeWithdrawn)).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	details := fields["event"].(map[string]any)["details"].(map[string]any)
	require.Equal(t, uint64(100), details["amount"])
	require.Equal(t, uint32(200), details["to"])
}
