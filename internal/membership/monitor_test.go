package membership

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/slotmap/internal/logging"
	slotmaptest "github.com/arloliu/slotmap/testing"
	"github.com/arloliu/slotmap/types"
)

func startNode(t *testing.T, pub *Publisher, address string) {
	t.Helper()

	pub.SetAddress(address)
	require.NoError(t, pub.Start(t.Context()))
}

func TestMonitor_ClusterMembers(t *testing.T) {
	t.Run("empty bucket is empty membership", func(t *testing.T) {
		_, nc := slotmaptest.StartEmbeddedNATS(t)
		kv := slotmaptest.CreateJetStreamKV(t, nc, "mon-empty")

		nodes, err := NewMonitor(kv, "node", time.Second).ClusterMembers(t.Context())
		require.NoError(t, err)
		require.Empty(t, nodes)
	})

	t.Run("returns registered nodes sorted", func(t *testing.T) {
		ctx := t.Context()
		_, nc := slotmaptest.StartEmbeddedNATS(t)
		kv := slotmaptest.CreateJetStreamKV(t, nc, "mon-sorted")

		for _, addr := range []string{"10.0.0.3", "10.0.0.1", "10.0.0.2"} {
			pub := NewPublisher(kv, "node", time.Second)
			startNode(t, pub, addr)
			t.Cleanup(func() { _ = pub.Stop() })
		}

		_, err := kv.Put(ctx, "unrelated", []byte("x"))
		require.NoError(t, err)

		nodes, err := NewMonitor(kv, "node", time.Second).ClusterMembers(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, types.Addresses(nodes))
	})

	t.Run("skips malformed records", func(t *testing.T) {
		ctx := t.Context()
		_, nc := slotmaptest.StartEmbeddedNATS(t)
		kv := slotmaptest.CreateJetStreamKV(t, nc, "mon-malformed")

		_, err := kv.Put(ctx, Key("node", "10.0.0.9"), []byte("not json"))
		require.NoError(t, err)

		nodes, err := NewMonitor(kv, "node", time.Second, WithLogger(logging.NewTest(t))).ClusterMembers(ctx)
		require.NoError(t, err)
		require.Empty(t, nodes)
	})
}

func TestMonitor_Check(t *testing.T) {
	ctx := t.Context()
	_, nc := slotmaptest.StartEmbeddedNATS(t)
	kv := slotmaptest.CreateJetStreamKV(t, nc, "mon-check")

	var calls [][2][]string
	mon := NewMonitor(kv, "node", time.Second, WithOnChange(func(_ context.Context, prev, curr []types.Node) error {
		calls = append(calls, [2][]string{types.Addresses(prev), types.Addresses(curr)})
		return nil
	}))

	a := NewPublisher(kv, "node", time.Second)
	startNode(t, a, "10.0.0.1")

	changed, err := mon.Check(ctx)
	require.NoError(t, err)
	require.False(t, changed, "first check is the baseline")

	b := NewPublisher(kv, "node", time.Second)
	startNode(t, b, "10.0.0.2")
	t.Cleanup(func() { _ = b.Stop() })

	changed, err = mon.Check(ctx)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = mon.Check(ctx)
	require.NoError(t, err)
	require.False(t, changed)

	require.NoError(t, a.Stop())
	changed, err = mon.Check(ctx)
	require.NoError(t, err)
	require.True(t, changed)

	require.Equal(t, [][2][]string{
		{{"10.0.0.1"}, {"10.0.0.1", "10.0.0.2"}},
		{{"10.0.0.1", "10.0.0.2"}, {"10.0.0.2"}},
	}, calls)
	require.Equal(t, []string{"10.0.0.2"}, types.Addresses(mon.Last()))
}

func TestMonitor_WatchDetectsJoin(t *testing.T) {
	_, nc := slotmaptest.StartEmbeddedNATS(t)
	kv := slotmaptest.CreateJetStreamKV(t, nc, "mon-watch")

	var mu sync.Mutex
	var seen []string
	mon := NewMonitor(kv, "node", time.Minute,
		WithDebounce(20*time.Millisecond),
		WithLogger(logging.NewTest(t)),
		WithOnChange(func(_ context.Context, _, curr []types.Node) error {
			mu.Lock()
			defer mu.Unlock()
			seen = types.Addresses(curr)
			return nil
		}),
	)

	require.NoError(t, mon.Start(t.Context()))
	t.Cleanup(func() { _ = mon.Stop() })

	require.Eventually(t, func() bool {
		return mon.Last() != nil
	}, 2*time.Second, 10*time.Millisecond)

	pub := NewPublisher(kv, "node", time.Second)
	startNode(t, pub, "10.0.0.5")
	t.Cleanup(func() { _ = pub.Stop() })

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0] == "10.0.0.5"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestMonitor_Lifecycle(t *testing.T) {
	_, nc := slotmaptest.StartEmbeddedNATS(t)
	kv := slotmaptest.CreateJetStreamKV(t, nc, "mon-lifecycle")

	mon := NewMonitor(kv, "node", time.Second)
	require.ErrorIs(t, mon.Stop(), types.ErrMonitorNotStarted)

	require.NoError(t, mon.Start(t.Context()))
	require.ErrorIs(t, mon.Start(t.Context()), types.ErrMonitorAlreadyStarted)

	require.NoError(t, mon.Stop())
	require.NoError(t, mon.Stop())
	require.ErrorIs(t, mon.Start(t.Context()), types.ErrMonitorAlreadyStopped)
}
