package slotmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/slotmap/internal/epoch"
	"github.com/arloliu/slotmap/internal/placement"
)

func TestEpochTime(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	gen := epoch.New(epoch.WithClock(func() time.Time { return at }))

	e := gen.NextEpoch()
	require.True(t, EpochTime(e).Equal(at))
	require.True(t, EpochTime(gen.NextEpoch()).Equal(at), "sequence bits do not shift the instant")

	eng, err := placement.New(4, 1)
	require.NoError(t, err)
	table, err := eng.Assign([]Node{{Address: "a:1"}, {Address: "b:1"}}, e)
	require.NoError(t, err)

	for _, id := range table.IDs() {
		slot, ok := table.Get(id)
		require.True(t, ok)
		require.True(t, EpochTime(slot.Epoch).Equal(at))
	}
}
