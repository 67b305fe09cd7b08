package slotmap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/source"
	slotmaptest "github.com/arloliu/slotmap/testing"
	"github.com/arloliu/slotmap/types"
)

func testCoordinatorConfig(nodeID string) Config {
	cfg := TestConfig()
	cfg.NodeID = nodeID
	cfg.SlotCount = 8
	cfg.ReplicaCount = 1

	return cfg
}

func stopCoordinator(t *testing.T, c *Coordinator) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Stop(ctx)
	if err != nil && !errors.Is(err, ErrNotStarted) {
		t.Logf("stop %s: %v", c.NodeID(), err)
	}
}

func TestNewCoordinator(t *testing.T) {
	t.Run("requires connection", func(t *testing.T) {
		_, err := NewCoordinator(TestConfig(), nil)
		require.ErrorIs(t, err, ErrNATSConnectionRequired)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, nc := slotmaptest.StartEmbeddedNATS(t)

		cfg := TestConfig()
		cfg.SlotCount = -1
		_, err := NewCoordinator(cfg, nc)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("generates node id", func(t *testing.T) {
		_, nc := slotmaptest.StartEmbeddedNATS(t)

		c, err := NewCoordinator(TestConfig(), nc)
		require.NoError(t, err)
		require.NotEmpty(t, c.NodeID())
		require.Equal(t, StateInit, c.State())
		require.Nil(t, c.Table())
	})
}

func TestCoordinator_NotStarted(t *testing.T) {
	_, nc := slotmaptest.StartEmbeddedNATS(t)

	c, err := NewCoordinator(testCoordinatorConfig("meta-1"), nc)
	require.NoError(t, err)

	_, err = c.Rebalance(context.Background(), RebalanceFullReinit)
	require.ErrorIs(t, err, ErrNotStarted)

	_, err = c.Slot(0)
	require.ErrorIs(t, err, ErrNotStarted)

	_, _, err = c.Subscribe()
	require.ErrorIs(t, err, ErrNotStarted)

	require.ErrorIs(t, c.Stop(context.Background()), ErrNotStarted)
}

func TestCoordinator_LeaderBootstrapsTable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	_, nc := slotmaptest.StartEmbeddedNATS(t)

	var leaderEvents atomic.Int32
	hooks := &Hooks{
		OnLeadershipChanged: func(_ context.Context, isLeader bool) error {
			if isLeader {
				leaderEvents.Add(1)
			}
			return nil
		},
	}

	members := source.NewStaticAddresses("10.0.0.1:9600", "10.0.0.2:9600", "10.0.0.3:9600")
	c, err := NewCoordinator(testCoordinatorConfig("meta-1"), nc,
		WithMembershipProvider(members),
		WithHooks(hooks),
		WithLogger(logging.NewTest(t)),
	)
	require.NoError(t, err)

	require.NoError(t, c.Start(ctx))
	defer stopCoordinator(t, c)

	require.ErrorIs(t, c.Start(ctx), ErrAlreadyStarted)

	require.True(t, c.IsLeader())
	require.Equal(t, StateLeader, c.State())

	table := c.Table()
	require.NotNil(t, table)
	require.Equal(t, 8, table.Len())
	require.NoError(t, table.Validate(8, 1))
	require.Len(t, table.NodeSet(), 3)

	slot, err := c.Route("tenant-a/service-x")
	require.NoError(t, err)
	require.Equal(t, table.LeaderOf(slot.ID), slot.Leader)

	leader, err := c.CurrentLeader(ctx)
	require.NoError(t, err)
	require.Equal(t, "meta-1", leader)

	require.Eventually(t, func() bool { return leaderEvents.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestCoordinator_ManualRebalance(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	_, nc := slotmaptest.StartEmbeddedNATS(t)

	members := source.NewStaticAddresses("a:1", "b:1", "c:1")
	c, err := NewCoordinator(testCoordinatorConfig("meta-1"), nc, WithMembershipProvider(members))
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer stopCoordinator(t, c)

	first := c.Table()
	require.NotNil(t, first)

	outcome, err := c.Rebalance(ctx, RebalanceIncremental)
	require.NoError(t, err)
	require.Equal(t, OutcomeSkippedUnchanged, outcome)

	members.Update([]types.Node{{Address: "a:1"}, {Address: "b:1"}})
	outcome, err = c.Rebalance(ctx, RebalanceNodeRemoval)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)

	next := c.Table()
	require.Greater(t, next.Epoch, first.Epoch)
	require.NotContains(t, next.NodeSet(), "c:1")

	outcome, err = c.Rebalance(ctx, RebalanceFullReinit)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)

	_, err = c.Rebalance(ctx, RebalanceKind(42))
	require.ErrorIs(t, err, ErrUnknownTaskKind)
}

func TestCoordinator_ReplicaCountAboveMembership(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	_, nc := slotmaptest.StartEmbeddedNATS(t)

	var hookErr atomic.Value
	hooks := &Hooks{
		OnError: func(_ context.Context, err error) error {
			hookErr.Store(err)
			return nil
		},
	}

	// One node cannot hold a leader and a follower.
	members := source.NewStaticAddresses("a:1")
	c, err := NewCoordinator(testCoordinatorConfig("meta-1"), nc, WithMembershipProvider(members), WithHooks(hooks))
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer stopCoordinator(t, c)

	require.Nil(t, c.Table())
	require.Eventually(t, func() bool {
		err, ok := hookErr.Load().(error)
		return ok && errors.Is(err, ErrInvalidConfiguration)
	}, 2*time.Second, 20*time.Millisecond)

	_, err = c.Rebalance(ctx, RebalanceFullReinit)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestCoordinator_FollowerAppliesCommittedTable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, nc := slotmaptest.StartEmbeddedNATS(t)
	members := source.NewStaticAddresses("a:1", "b:1", "c:1")

	leader, err := NewCoordinator(testCoordinatorConfig("meta-1"), nc, WithMembershipProvider(members))
	require.NoError(t, err)
	require.NoError(t, leader.Start(ctx))
	defer stopCoordinator(t, leader)
	require.True(t, leader.IsLeader())

	follower, err := NewCoordinator(testCoordinatorConfig("meta-2"), nc, WithMembershipProvider(members))
	require.NoError(t, err)
	require.NoError(t, follower.Start(ctx))
	defer stopCoordinator(t, follower)

	require.False(t, follower.IsLeader())
	require.Equal(t, StateFollower, follower.State())
	require.NotNil(t, follower.Table())
	require.Equal(t, leader.Table().Epoch, follower.Table().Epoch)

	outcome, err := follower.Rebalance(ctx, RebalanceFullReinit)
	require.NoError(t, err)
	require.Equal(t, OutcomeSkippedNotLeader, outcome)

	updates, unsubscribe, err := follower.Subscribe()
	require.NoError(t, err)
	defer unsubscribe()
	<-updates // current table

	members.Update([]types.Node{{Address: "a:1"}, {Address: "b:1"}, {Address: "d:1"}})
	outcome, err = leader.Rebalance(ctx, RebalanceIncremental)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)

	select {
	case table := <-updates:
		require.Equal(t, leader.Table().Epoch, table.Epoch)
		require.NotContains(t, table.NodeSet(), "c:1")
	case <-ctx.Done():
		t.Fatal("follower never applied the new table")
	}
}

func TestCoordinator_Failover(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, nc := slotmaptest.StartEmbeddedNATS(t)
	members := source.NewStaticAddresses("a:1", "b:1", "c:1")

	first, err := NewCoordinator(testCoordinatorConfig("meta-1"), nc, WithMembershipProvider(members))
	require.NoError(t, err)
	require.NoError(t, first.Start(ctx))

	second, err := NewCoordinator(testCoordinatorConfig("meta-2"), nc, WithMembershipProvider(members))
	require.NoError(t, err)
	require.NoError(t, second.Start(ctx))
	defer stopCoordinator(t, second)

	epochBefore := second.Table().Epoch

	// Stopping releases the lease, so the follower wins the next round.
	stopCoordinator(t, first)
	require.NoError(t, <-second.WaitState(StateLeader, 5*time.Second))
	require.True(t, second.IsLeader())

	members.Update([]types.Node{{Address: "a:1"}, {Address: "b:1"}})
	outcome, err := second.Rebalance(ctx, RebalanceNodeRemoval)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)
	require.Greater(t, second.Table().Epoch, epochBefore)
}

func TestCoordinator_HeartbeatMembership(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, nc := slotmaptest.StartEmbeddedNATS(t)

	cfg := testCoordinatorConfig("meta-1")
	c, err := NewCoordinator(cfg, nc, WithLogger(logging.NewTest(t)))
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer stopCoordinator(t, c)

	// No data node registered yet: the bootstrap is skipped.
	require.True(t, c.IsLeader())
	require.Nil(t, c.Table())

	beats := make([]*NodeHeartbeat, 0, 3)
	for _, addr := range []string{"10.0.0.1:9600", "10.0.0.2:9600", "10.0.0.3:9600"} {
		hb, err := NewNodeHeartbeat(cfg, nc, addr)
		require.NoError(t, err)
		require.NoError(t, hb.Start(ctx))
		beats = append(beats, hb)
	}

	require.Eventually(t, func() bool {
		table := c.Table()
		return table != nil && len(table.NodeSet()) == 3
	}, 10*time.Second, 50*time.Millisecond)

	members, err := c.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 3)

	joined := c.Table().Epoch

	// Leaving deletes the heartbeat key; the monitor triggers node removal.
	require.NoError(t, beats[2].Stop())
	require.Eventually(t, func() bool {
		table := c.Table()
		_, stillThere := table.NodeSet()["10.0.0.3:9600"]
		return table.Epoch > joined && !stillThere
	}, 10*time.Second, 50*time.Millisecond)

	for _, hb := range beats[:2] {
		require.NoError(t, hb.Stop())
	}
}

func TestMembershipKind(t *testing.T) {
	a, b, c := types.Node{Address: "a"}, types.Node{Address: "b"}, types.Node{Address: "c"}

	require.Equal(t, RebalanceNodeRemoval, membershipKind([]types.Node{a, b, c}, []types.Node{a, b}))
	require.Equal(t, RebalanceIncremental, membershipKind([]types.Node{a, b}, []types.Node{a, b, c}))
	require.Equal(t, RebalanceIncremental, membershipKind([]types.Node{a, b}, []types.Node{a, c}))
	require.Equal(t, RebalanceNodeRemoval, membershipKind([]types.Node{a}, nil))
}

func TestIsValidTransition(t *testing.T) {
	require.True(t, isValidTransition(StateInit, StateElection))
	require.True(t, isValidTransition(StateElection, StateFollower))
	require.True(t, isValidTransition(StateFollower, StateLeader))
	require.True(t, isValidTransition(StateLeader, StateFollower))
	require.True(t, isValidTransition(StateLeader, StateShutdown))
	require.False(t, isValidTransition(StateInit, StateLeader))
	require.False(t, isValidTransition(StateShutdown, StateElection))
}

func TestCoordinator_OverwritesUndecodableTable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	_, nc := slotmaptest.StartEmbeddedNATS(t)
	cfg := testCoordinatorConfig("meta-1")

	js, err := jetstream.New(nc)
	require.NoError(t, err)
	kv, err := ensureKVBucket(ctx, js, cfg.KVBuckets.SlotTableBucket, 0)
	require.NoError(t, err)
	_, err = kv.Put(ctx, cfg.KVBuckets.SlotTablePrefix+".current", []byte("garbage"))
	require.NoError(t, err)

	members := source.NewStaticAddresses("10.0.0.1:9600", "10.0.0.2:9600")
	c, err := NewCoordinator(cfg, nc,
		WithMembershipProvider(members),
		WithLogger(logging.NewTest(t)),
	)
	require.NoError(t, err)

	require.NoError(t, c.Start(ctx))
	defer stopCoordinator(t, c)

	require.True(t, c.IsLeader())
	table := c.Table()
	require.NotNil(t, table)
	require.NoError(t, table.Validate(8, 1))

	stored, err := c.committer.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, table, stored)
}

// flakyAgent fails the first failures leadership requests.
type flakyAgent struct {
	failures atomic.Int32
	leader   atomic.Bool
}

func (a *flakyAgent) RequestLeadership(_ context.Context, _ string, _ int64) (bool, error) {
	if a.failures.Add(-1) >= 0 {
		return false, errors.New("election unavailable")
	}
	a.leader.Store(true)

	return true, nil
}

func (a *flakyAgent) RenewLeadership(_ context.Context) error { return nil }

func (a *flakyAgent) ReleaseLeadership(_ context.Context) error {
	a.leader.Store(false)
	return nil
}

func (a *flakyAgent) IsLeader(_ context.Context) (bool, error) { return a.leader.Load(), nil }

func TestCoordinator_StartCanBeRetried(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	_, nc := slotmaptest.StartEmbeddedNATS(t)

	agent := &flakyAgent{}
	agent.failures.Store(1)

	c, err := NewCoordinator(testCoordinatorConfig("meta-1"), nc,
		WithElectionAgent(agent),
		WithMembershipProvider(source.NewStaticAddresses("10.0.0.1:9600", "10.0.0.2:9600")),
		WithLogger(logging.NewTest(t)),
	)
	require.NoError(t, err)

	require.Error(t, c.Start(ctx))
	require.Equal(t, StateInit, c.State())
	require.Nil(t, c.Table())
	require.ErrorIs(t, c.Stop(ctx), ErrNotStarted)

	require.NoError(t, c.Start(ctx))
	defer stopCoordinator(t, c)

	require.True(t, c.IsLeader())
	require.NotNil(t, c.Table())
}
