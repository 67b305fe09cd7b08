// Package rebalance runs the leader-only tasks that recompute and commit the
// slot table.
//
// Every task follows the same shape:
//
//	Entry   leadership gate; followers stop here without side effects
//	Gather  membership snapshot; an empty cluster stops here
//	Compute placement with a fresh epoch
//	Commit  Manager.Refresh; failures are returned, never retried
//
// The kinds differ only in Compute. KindFullReinit rebuilds every slot with
// round-robin striping. KindIncremental and KindNodeRemoval start from the
// active table and move only what membership changes require.
package rebalance
