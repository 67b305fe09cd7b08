package types

import "context"

// Hooks defines callbacks for coordinator events.
//
// All hooks are optional and run in background goroutines so they never
// block the election or rebalance loops. The context passed to a hook is
// cancelled when the coordinator stops. Hook errors are logged only.
//
// Example:
//
//	hooks := &slotmap.Hooks{
//	    OnTableCommitted: func(ctx context.Context, prev, next *slotmap.SlotTable) error {
//	        for _, tr := range prev.Diff(next) {
//	            log.Printf("slot %d: %s -> %s", tr.SlotID, tr.FromLeader, tr.ToLeader)
//	        }
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnTableCommitted is called after a new slot table becomes active
	// locally, whether committed by this process or replicated from the leader.
	// prev is nil for the first table.
	OnTableCommitted func(ctx context.Context, prev, next *SlotTable) error

	// OnLeadershipChanged is called when the local process gains or loses leadership.
	OnLeadershipChanged func(ctx context.Context, isLeader bool) error

	// OnError is called when a background operation fails.
	OnError func(ctx context.Context, err error) error
}
