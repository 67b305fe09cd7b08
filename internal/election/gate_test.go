package election

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/slotmap/internal/logging"
	slotmaptest "github.com/arloliu/slotmap/testing"
)

type fakeAgent struct {
	leader bool
	err    error
}

func (f *fakeAgent) RequestLeadership(context.Context, string, int64) (bool, error) {
	return f.leader, f.err
}

func (f *fakeAgent) RenewLeadership(context.Context) error { return f.err }

func (f *fakeAgent) ReleaseLeadership(context.Context) error { return f.err }

func (f *fakeAgent) IsLeader(context.Context) (bool, error) { return f.leader, f.err }

func TestGate_IsLeader(t *testing.T) {
	t.Run("passes through agent answer", func(t *testing.T) {
		agent := &fakeAgent{leader: true}
		gate := NewGate(agent, logging.NewTest(t))

		require.True(t, gate.IsLeader(t.Context()))

		agent.leader = false
		require.False(t, gate.IsLeader(t.Context()))
	})

	t.Run("store errors mean not leader", func(t *testing.T) {
		gate := NewGate(&fakeAgent{leader: true, err: errors.New("kv unavailable")}, nil)
		require.False(t, gate.IsLeader(t.Context()))
	})

	t.Run("follows a real election", func(t *testing.T) {
		ctx := t.Context()
		_, nc := slotmaptest.StartEmbeddedNATS(t)
		kv := slotmaptest.CreateJetStreamKV(t, nc, "gate-election")

		e := NewNATSElection(kv, "leader")
		gate := NewGate(e, logging.NewTest(t))
		require.False(t, gate.IsLeader(ctx))

		_, err := e.RequestLeadership(ctx, "meta-1", 30)
		require.NoError(t, err)
		require.True(t, gate.IsLeader(ctx))

		require.NoError(t, e.ReleaseLeadership(ctx))
		require.False(t, gate.IsLeader(ctx))
	})
}

func TestStaticGate(t *testing.T) {
	require.True(t, StaticGate(true).IsLeader(t.Context()))
	require.False(t, StaticGate(false).IsLeader(t.Context()))
}
