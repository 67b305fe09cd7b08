package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations must be non-blocking and safe for concurrent use; they are
// called from coordinator, rebalance and membership goroutines.
type MetricsCollector interface {
	CoordinatorMetrics
	RebalanceMetrics
	TableMetrics
	MembershipMetrics
}

// CoordinatorMetrics defines metrics for coordinator-level events.
type CoordinatorMetrics interface {
	// RecordStateTransition records a coordinator state transition.
	RecordStateTransition(from, to State, duration float64)

	// RecordLeadershipChange records that leadership moved to nodeID
	// ("" when the local process lost it).
	RecordLeadershipChange(nodeID string)
}

// RebalanceMetrics defines metrics for rebalance task runs.
type RebalanceMetrics interface {
	// RecordRebalance records a finished task run.
	//
	// Parameters:
	//   - kind: Task kind ("full_reinit", "incremental", "node_removal")
	//   - outcome: Run outcome ("committed", "not_leader", "empty", "unchanged", "error")
	//   - duration: Run time in seconds
	RecordRebalance(kind, outcome string, duration float64)

	// RecordSlotsMoved records how many slots changed owners in a committed table.
	RecordSlotsMoved(kind string, moved int)
}

// TableMetrics defines metrics for slot table commits.
type TableMetrics interface {
	// RecordCommit records a commit attempt.
	//
	// Parameters:
	//   - success: true if the table became active
	//   - duration: Commit round-trip in seconds
	RecordCommit(success bool, duration float64)

	// RecordActiveTable records the epoch and slot count of the active table.
	RecordActiveTable(epoch int64, slots int)

	// RecordSubscriberDropped records a table notification dropped for a slow subscriber.
	RecordSubscriberDropped()
}

// MembershipMetrics defines metrics for data node membership.
type MembershipMetrics interface {
	// RecordMembers sets the current number of live data nodes.
	RecordMembers(count int)

	// RecordHeartbeat records a heartbeat publish from a data node.
	RecordHeartbeat(address string, success bool)
}
