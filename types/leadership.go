package types

import "context"

// LeadershipGate answers whether the local process currently holds cluster
// leadership.
//
// Leadership can flip between two calls. Absence of leadership is a normal
// outcome, not a fault, so implementations report internal failures as
// "not leader" instead of returning an error.
type LeadershipGate interface {
	// IsLeader reports whether this process is the leader right now.
	IsLeader(ctx context.Context) bool
}

// ElectionAgent runs the lease-based election that backs a LeadershipGate.
//
// The coordinator drives the agent from its election loop:
//   - Startup: RequestLeadership
//   - Every ElectionTimeout/3: RenewLeadership (leader) or RequestLeadership (follower)
//   - Shutdown: ReleaseLeadership
type ElectionAgent interface {
	// RequestLeadership attempts to acquire leadership, renewing it if already held.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - nodeID: Identity of the participant requesting leadership
	//   - leaseDuration: Lease duration in seconds
	//
	// Returns:
	//   - bool: true if leadership is held after the call
	//   - error: Election error (nil on success)
	RequestLeadership(ctx context.Context, nodeID string, leaseDuration int64) (bool, error)

	// RenewLeadership extends the current lease.
	//
	// Returns:
	//   - error: Non-nil if leadership is not held or was lost
	RenewLeadership(ctx context.Context) error

	// ReleaseLeadership gives up leadership so another participant can take over.
	ReleaseLeadership(ctx context.Context) error

	// IsLeader verifies leadership against the election store.
	IsLeader(ctx context.Context) (bool, error)
}
