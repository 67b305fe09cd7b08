package slotmap

import (
	"time"

	"github.com/arloliu/slotmap/internal/epoch"
	"github.com/arloliu/slotmap/internal/rebalance"
	"github.com/arloliu/slotmap/types"
)

// Re-export types so callers only import the root package.
type (
	State     = types.State
	Node      = types.Node
	Slot      = types.Slot
	SlotTable = types.SlotTable
	Transfer  = types.Transfer
)

// Re-export interfaces from the types package.
type (
	LeadershipGate     = types.LeadershipGate
	ElectionAgent      = types.ElectionAgent
	MembershipProvider = types.MembershipProvider
	MetricsCollector   = types.MetricsCollector
	Logger             = types.Logger
	Hooks              = types.Hooks
)

// RebalanceKind selects how a rebalance computes the next table.
type RebalanceKind = rebalance.Kind

// RebalanceOutcome reports how a rebalance run ended.
type RebalanceOutcome = rebalance.Outcome

// Rebalance kinds.
const (
	RebalanceIncremental = rebalance.KindIncremental
	RebalanceFullReinit  = rebalance.KindFullReinit
	RebalanceNodeRemoval = rebalance.KindNodeRemoval
)

// Rebalance outcomes.
const (
	OutcomeFailed           = rebalance.OutcomeFailed
	OutcomeSkippedNotLeader = rebalance.OutcomeSkippedNotLeader
	OutcomeSkippedEmpty     = rebalance.OutcomeSkippedEmpty
	OutcomeSkippedUnchanged = rebalance.OutcomeSkippedUnchanged
	OutcomeCommitted        = rebalance.OutcomeCommitted
)

// Re-export State constants.
const (
	StateInit     = types.StateInit
	StateElection = types.StateElection
	StateFollower = types.StateFollower
	StateLeader   = types.StateLeader
	StateShutdown = types.StateShutdown
)

// ParseRebalanceKind parses a rebalance kind name such as "incremental",
// "full-reinit" or "node_removal".
func ParseRebalanceKind(s string) (RebalanceKind, error) {
	return rebalance.ParseKind(s)
}

// SlotForKey maps a key to its slot in a keyspace of slotCount slots.
func SlotForKey(key string, slotCount int) int {
	return types.SlotForKey(key, slotCount)
}

// EpochTime returns the wall-clock millisecond at which an epoch was
// generated. It applies to SlotTable.Epoch and Slot.Epoch alike.
func EpochTime(e int64) time.Time {
	return epoch.Time(e)
}
