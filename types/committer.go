package types

import "context"

// Committer is the durable, replicated store for the active slot table.
//
// The committer stands in for the consensus layer: it re-validates leadership
// at commit time, rejects tables whose epoch does not exceed the committed
// one, and makes the committed table visible to every participant.
type Committer interface {
	// Commit durably stores table as the cluster's active slot table.
	//
	// Commit is all-or-nothing: on error the previously committed table stays
	// active.
	//
	// Returns:
	//   - error: ErrCommitRejected (possibly wrapping ErrNotLeader or
	//     ErrStaleEpoch) or a transport error
	Commit(ctx context.Context, table *SlotTable) error

	// Load returns the committed table, or nil if none has been committed.
	Load(ctx context.Context) (*SlotTable, error)
}
