package types

import "context"

// MembershipProvider supplies the data nodes eligible to own slots.
//
// Implementations can use:
//   - NATS KV heartbeats (internal/membership)
//   - Static lists (source.Static)
//   - Any external registry of live nodes
//
// An empty result is valid and means no node has registered. The order is
// provider-defined and may change between calls; placement only relies on the
// order within a single result.
type MembershipProvider interface {
	// ClusterMembers returns the current best-known live membership snapshot.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - []Node: Live nodes (possibly empty)
	//   - error: Discovery error (nil on success)
	ClusterMembers(ctx context.Context) ([]Node, error)
}
