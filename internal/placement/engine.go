package placement

import (
	"fmt"
	"slices"

	"github.com/arloliu/slotmap/types"
)

// Engine builds slot tables for a fixed slot count and replica count.
type Engine struct {
	slotCount    int
	replicaCount int
}

// New creates a placement engine.
//
// Parameters:
//   - slotCount: Number of slots in every table (must be > 0)
//   - replicaCount: Followers per slot (must be >= 0)
//
// Returns:
//   - *Engine: Engine instance
//   - error: ErrInvalidConfiguration if a count is out of range
func New(slotCount, replicaCount int) (*Engine, error) {
	if slotCount <= 0 {
		return nil, fmt.Errorf("%w: slot count must be > 0, got %d", types.ErrInvalidConfiguration, slotCount)
	}
	if replicaCount < 0 {
		return nil, fmt.Errorf("%w: replica count must be >= 0, got %d", types.ErrInvalidConfiguration, replicaCount)
	}

	return &Engine{slotCount: slotCount, replicaCount: replicaCount}, nil
}

// SlotCount returns the number of slots per table.
func (e *Engine) SlotCount() int {
	return e.slotCount
}

// ReplicaCount returns the number of followers per slot.
func (e *Engine) ReplicaCount() int {
	return e.replicaCount
}

// CheckMembership verifies that nodes can host a table.
//
// Returns:
//   - []types.Node: Nodes with empty and duplicate addresses removed
//   - error: ErrEmptyMembership or ErrInvalidConfiguration
func (e *Engine) CheckMembership(nodes []types.Node) ([]types.Node, error) {
	uniq := types.UniqueNodes(nodes)
	if len(uniq) == 0 {
		return nil, types.ErrEmptyMembership
	}

	if e.replicaCount >= len(uniq) {
		return nil, fmt.Errorf("%w: replica count %d needs at least %d nodes, have %d",
			types.ErrInvalidConfiguration, e.replicaCount, e.replicaCount+1, len(uniq))
	}

	return uniq, nil
}

// Assign builds a complete table by round-robin striping over nodes.
//
// Slot i is led by nodes[i mod N]. Followers are drawn from a second cursor
// that starts at the last node and advances once per follower drawn, skipping
// nodes already present in the slot.
//
// Parameters:
//   - nodes: Membership snapshot; only the order within this call matters
//   - epoch: Version stamped on the table and on every slot
//
// Returns:
//   - *types.SlotTable: Table covering [0, slotCount)
//   - error: ErrEmptyMembership or ErrInvalidConfiguration
func (e *Engine) Assign(nodes []types.Node, epoch int64) (*types.SlotTable, error) {
	uniq, err := e.CheckMembership(nodes)
	if err != nil {
		return nil, err
	}

	c := newCursors(len(uniq))
	slots := make(map[int]types.Slot, e.slotCount)

	for id := range e.slotCount {
		leader := uniq[c.nextLeader()].Address
		followers := make([]string, 0, e.replicaCount)
		for len(followers) < e.replicaCount {
			addr := uniq[c.nextFollower()].Address
			if addr == leader || slices.Contains(followers, addr) {
				continue
			}
			followers = append(followers, addr)
		}

		slots[id] = types.Slot{ID: id, Leader: leader, Followers: followers, Epoch: epoch}
	}

	return types.NewSlotTable(epoch, slots), nil
}

// cursors holds the two rotating indexes of one Assign call.
type cursors struct {
	n        int
	leader   int
	follower int
}

func newCursors(n int) *cursors {
	return &cursors{n: n, leader: 0, follower: n - 1}
}

func (c *cursors) nextLeader() int {
	i := c.leader
	c.leader = (c.leader + 1) % c.n

	return i
}

func (c *cursors) nextFollower() int {
	i := c.follower
	c.follower = (c.follower + 1) % c.n

	return i
}
