package source

import (
	"context"
	"sync"

	"github.com/arloliu/slotmap/types"
)

// Static implements a membership provider with a fixed list of data nodes.
type Static struct {
	mu    sync.RWMutex
	nodes []types.Node
	calls int
}

var _ types.MembershipProvider = (*Static)(nil)

// NewStatic creates a static membership provider.
//
// Useful for tests and for bootstrapping a cluster whose data nodes are
// known up front.
//
// Example:
//
//	members := source.NewStatic([]types.Node{{Address: "10.0.0.1"}, {Address: "10.0.0.2"}})
//	coord, err := slotmap.NewCoordinator(cfg, nc, slotmap.WithMembershipProvider(members))
func NewStatic(nodes []types.Node) *Static {
	return &Static{nodes: cloneNodes(nodes)}
}

// NewStaticAddresses is NewStatic for plain address strings.
func NewStaticAddresses(addresses ...string) *Static {
	nodes := make([]types.Node, len(addresses))
	for i, a := range addresses {
		nodes[i] = types.Node{Address: a}
	}

	return NewStatic(nodes)
}

// ClusterMembers returns a copy of the configured nodes. It never fails.
func (s *Static) ClusterMembers(_ context.Context) ([]types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	return cloneNodes(s.nodes), nil
}

// Update replaces the node list, simulating joins and departures.
func (s *Static) Update(nodes []types.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = cloneNodes(nodes)
}

// Calls returns how many times ClusterMembers was called.
func (s *Static) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.calls
}

func cloneNodes(nodes []types.Node) []types.Node {
	out := make([]types.Node, len(nodes))
	copy(out, nodes)

	return out
}
