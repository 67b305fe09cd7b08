// Package types provides the slot-table data model and the collaborator
// interfaces shared by the slotmap packages.
//
// Keeping these definitions in a leaf package lets internal packages depend on
// them without importing the root slotmap package.
//
// Key types:
//   - Node: a data-serving process identified by its network address
//   - Slot: one keyspace shard with a leader and an ordered follower list
//   - SlotTable: the versioned, complete slot assignment (partition map)
//   - LeadershipGate, MembershipProvider, EpochGenerator, Committer: collaborators
//   - Logger, MetricsCollector, Hooks: ambient interfaces
package types
