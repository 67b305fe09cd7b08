package types

import (
	"errors"
	"strings"
)

// Sentinel errors for the slotmap packages.
//
// Check them with errors.Is. Components wrap external errors with context
// using fmt.Errorf("%s: %w", msg, err).

// Coordinator errors - public API errors returned by the root package.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNATSConnectionRequired is returned when the NATS connection is nil.
	ErrNATSConnectionRequired = errors.New("NATS connection is required")

	// ErrAlreadyStarted is returned when Start is called on a running coordinator.
	ErrAlreadyStarted = errors.New("coordinator already started")

	// ErrNotStarted is returned when an operation requires a started coordinator.
	ErrNotStarted = errors.New("coordinator not started")

	// ErrConnectivity indicates a NATS/KV connectivity issue.
	ErrConnectivity = errors.New("connectivity issue")
)

// Rebalance errors - conditions met while computing or committing a table.
var (
	// ErrNotLeader means the local process does not hold leadership.
	// Rebalance tasks treat it as a benign skip; committers return it wrapped
	// in ErrCommitRejected when leadership was lost before the write.
	ErrNotLeader = errors.New("not the leader")

	// ErrEmptyMembership means no data node is eligible to own slots.
	ErrEmptyMembership = errors.New("empty cluster membership")

	// ErrInvalidConfiguration means the slot or replica count cannot produce
	// valid slots for the current membership (e.g. replicaCount >= node count).
	ErrInvalidConfiguration = errors.New("invalid placement configuration")

	// ErrUnknownTaskKind is returned for an unrecognised rebalance task kind.
	ErrUnknownTaskKind = errors.New("unknown rebalance task kind")
)

// Slot table errors.
var (
	// ErrCommitRejected is returned when a slot table could not be committed.
	ErrCommitRejected = errors.New("slot table commit rejected")

	// ErrStaleEpoch means a table's epoch does not exceed the active epoch.
	ErrStaleEpoch = errors.New("stale slot table epoch")

	// ErrInvalidTable means a slot table does not cover its slot range.
	ErrInvalidTable = errors.New("invalid slot table")

	// ErrInvalidSlot means a slot violates its ownership invariants.
	ErrInvalidSlot = errors.New("invalid slot")

	// ErrNoTable is returned when no slot table has been committed yet.
	ErrNoTable = errors.New("no slot table committed")

	// ErrSlotNotFound is returned when a slot ID is outside the active table.
	ErrSlotNotFound = errors.New("slot not found")
)

// Membership errors.
var (
	// ErrMonitorAlreadyStarted is returned when Start is called on a running monitor.
	ErrMonitorAlreadyStarted = errors.New("membership monitor already started")

	// ErrMonitorAlreadyStopped is returned when Start is called on a stopped monitor.
	ErrMonitorAlreadyStopped = errors.New("membership monitor already stopped")

	// ErrMonitorNotStarted is returned when Stop is called before Start.
	ErrMonitorNotStarted = errors.New("membership monitor not started")

	// ErrNoKeysFound is returned when NATS KV returns no keys (expected condition).
	ErrNoKeysFound = errors.New("no keys found")
)

// IsNoKeysFoundError checks if an error indicates that no keys were found in NATS KV.
//
// NATS reports the condition as "nats: no keys found", either directly or
// wrapped by a caller.
//
// Parameters:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error indicates no keys were found
func IsNoKeysFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoKeysFound) {
		return true
	}

	return strings.Contains(err.Error(), "no keys found")
}
