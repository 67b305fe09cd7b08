package slottable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/slotmap/internal/placement"
	"github.com/arloliu/slotmap/types"
)

const (
	testSlots    = 4
	testReplicas = 1
)

func nodes(addrs ...string) []types.Node {
	out := make([]types.Node, len(addrs))
	for i, a := range addrs {
		out[i] = types.Node{Address: a}
	}

	return out
}

// buildTable assigns testSlots slots over addrs at the given epoch.
func buildTable(t *testing.T, epoch int64, addrs ...string) *types.SlotTable {
	t.Helper()

	eng, err := placement.New(testSlots, testReplicas)
	require.NoError(t, err)

	table, err := eng.Assign(nodes(addrs...), epoch)
	require.NoError(t, err)

	return table
}

type flipGate struct{ leader bool }

func (g *flipGate) IsLeader(_ context.Context) bool { return g.leader }
