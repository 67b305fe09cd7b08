package election

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/slotmap/internal/natsutil"
	"github.com/arloliu/slotmap/types"
)

// Common errors for election operations.
var (
	ErrLeadershipLost  = errors.New("leadership was lost")
	ErrInvalidDuration = errors.New("invalid lease duration")
)

// LeaderRecord is the value stored under the leader key.
type LeaderRecord struct {
	NodeID    string    `json:"nodeId"`
	RenewedAt time.Time `json:"renewedAt"`
}

// NATSElection implements types.ElectionAgent on a NATS KV bucket.
//
// All fields are protected by mu.
type NATSElection struct {
	kv       jetstream.KeyValue
	key      string
	mu       sync.RWMutex
	nodeID   string
	revision uint64
	isLeader bool
}

// Compile-time assertion that NATSElection implements ElectionAgent.
var _ types.ElectionAgent = (*NATSElection)(nil)

// NewNATSElection creates a new KV-backed election agent.
//
// Parameters:
//   - kv: KV bucket whose TTL is the lease duration
//   - key: Leader key name (e.g. "leader")
//
// Returns:
//   - *NATSElection: New election agent
func NewNATSElection(kv jetstream.KeyValue, key string) *NATSElection {
	return &NATSElection{kv: kv, key: key}
}

// RequestLeadership acquires leadership, or renews it if nodeID already holds it.
//
// The lease duration is enforced by the bucket TTL; leaseDuration only has
// to be positive.
func (e *NATSElection) RequestLeadership(ctx context.Context, nodeID string, leaseDuration int64) (bool, error) {
	if leaseDuration <= 0 {
		return false, ErrInvalidDuration
	}

	isLeader, current, _ := e.getLeaderState()
	if isLeader && current == nodeID {
		if err := e.RenewLeadership(ctx); err == nil {
			return true, nil
		}
		e.clearLeadership()
	}

	value, err := encodeRecord(nodeID)
	if err != nil {
		return false, err
	}

	revision, err := e.kv.Create(ctx, e.key, value)
	if err != nil {
		if natsutil.IsRevisionConflict(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to create leader key: %w", err)
	}

	e.setLeaderState(true, nodeID, revision)

	return true, nil
}

// RenewLeadership extends the lease by updating the key at the held revision.
//
// Returns:
//   - error: types.ErrNotLeader if not held, ErrLeadershipLost if the
//     revision moved on, nil on success
func (e *NATSElection) RenewLeadership(ctx context.Context) error {
	isLeader, nodeID, revision := e.getLeaderState()
	if !isLeader {
		return types.ErrNotLeader
	}

	value, err := encodeRecord(nodeID)
	if err != nil {
		return err
	}

	newRevision, err := e.kv.Update(ctx, e.key, value, revision)
	if err != nil {
		e.clearLeadership()

		return fmt.Errorf("%w: %w", ErrLeadershipLost, err)
	}

	e.mu.Lock()
	e.revision = newRevision
	e.mu.Unlock()

	return nil
}

// ReleaseLeadership deletes the leader key so another participant can win.
func (e *NATSElection) ReleaseLeadership(ctx context.Context) error {
	isLeader, _, _ := e.getLeaderState()
	if !isLeader {
		return types.ErrNotLeader
	}

	err := e.kv.Delete(ctx, e.key, jetstream.LastRevision(e.revisionSnapshot()))
	if err != nil && !natsutil.IsKeyNotFound(err) && !natsutil.IsRevisionConflict(err) {
		return fmt.Errorf("failed to delete leader key: %w", err)
	}

	e.setLeaderState(false, "", 0)

	return nil
}

// IsLeader verifies that the leader key still carries our revision.
func (e *NATSElection) IsLeader(ctx context.Context) (bool, error) {
	isLeader, _, revision := e.getLeaderState()
	if !isLeader {
		return false, nil
	}

	entry, err := e.kv.Get(ctx, e.key)
	if err != nil {
		if natsutil.IsKeyNotFound(err) {
			e.clearLeadership()

			return false, nil
		}

		return false, fmt.Errorf("failed to get leader key: %w", err)
	}

	if entry.Revision() != revision {
		e.clearLeadership()

		return false, nil
	}

	return true, nil
}

// NodeID returns the node ID this instance holds leadership for, or "".
func (e *NATSElection) NodeID() string {
	isLeader, nodeID, _ := e.getLeaderState()
	if !isLeader {
		return ""
	}

	return nodeID
}

// CurrentLeader reads the leader record from the bucket, whoever holds it.
//
// Returns:
//   - *LeaderRecord: Current leader, nil if the key is absent
//   - error: Read or decode error
func (e *NATSElection) CurrentLeader(ctx context.Context) (*LeaderRecord, error) {
	entry, err := e.kv.Get(ctx, e.key)
	if err != nil {
		if natsutil.IsKeyNotFound(err) {
			return nil, nil //nolint:nilnil // absence of a leader is not an error
		}

		return nil, fmt.Errorf("failed to get leader key: %w", err)
	}

	var rec LeaderRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode leader record: %w", err)
	}

	return &rec, nil
}

func encodeRecord(nodeID string) ([]byte, error) {
	value, err := json.Marshal(LeaderRecord{NodeID: nodeID, RenewedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode leader record: %w", err)
	}

	return value, nil
}

func (e *NATSElection) revisionSnapshot() uint64 {
	_, _, revision := e.getLeaderState()
	return revision
}

func (e *NATSElection) getLeaderState() (isLeader bool, nodeID string, revision uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.isLeader, e.nodeID, e.revision
}

func (e *NATSElection) setLeaderState(isLeader bool, nodeID string, revision uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isLeader = isLeader
	e.nodeID = nodeID
	e.revision = revision
}

func (e *NATSElection) clearLeadership() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isLeader = false
}
