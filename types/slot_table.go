package types

import (
	"fmt"
	"maps"
	"slices"

	"github.com/zeebo/xxh3"
)

// SlotTable is the versioned assignment of every slot to its owners.
//
// A table only has cluster-wide effect after it has been committed through a
// Committer; tables built by the placement engine are plain values until then.
type SlotTable struct {
	// Epoch is the global version, strictly greater than any previously
	// committed table's epoch.
	Epoch int64 `json:"epoch"`

	// Slots maps slot ID to slot, covering exactly [0, slotCount).
	Slots map[int]Slot `json:"slots"`
}

// NewSlotTable wraps slots into a table stamped with epoch.
func NewSlotTable(epoch int64, slots map[int]Slot) *SlotTable {
	if slots == nil {
		slots = make(map[int]Slot)
	}

	return &SlotTable{Epoch: epoch, Slots: slots}
}

// Len returns the number of slots in the table.
func (t *SlotTable) Len() int {
	if t == nil {
		return 0
	}

	return len(t.Slots)
}

// Get returns the slot with the given ID.
func (t *SlotTable) Get(id int) (Slot, bool) {
	if t == nil {
		return Slot{}, false
	}
	s, ok := t.Slots[id]

	return s, ok
}

// LeaderOf returns the leader address of a slot, or "" if the slot is unknown.
func (t *SlotTable) LeaderOf(id int) string {
	s, _ := t.Get(id)
	return s.Leader
}

// FollowersOf returns a copy of the follower addresses of a slot.
func (t *SlotTable) FollowersOf(id int) []string {
	s, ok := t.Get(id)
	if !ok {
		return nil
	}

	return slices.Clone(s.Followers)
}

// IDs returns all slot IDs in ascending order.
func (t *SlotTable) IDs() []int {
	if t == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(t.Slots))
}

// Clone returns a deep copy of the table.
func (t *SlotTable) Clone() *SlotTable {
	if t == nil {
		return nil
	}

	slots := make(map[int]Slot, len(t.Slots))
	for id, s := range t.Slots {
		slots[id] = s.Clone()
	}

	return &SlotTable{Epoch: t.Epoch, Slots: slots}
}

// Validate checks that the table covers exactly [0, slotCount) and that every
// slot satisfies its invariants for replicaCount.
//
// Parameters:
//   - slotCount: Expected number of slots
//   - replicaCount: Expected followers per slot
//
// Returns:
//   - error: ErrInvalidTable or ErrInvalidSlot wrapped with detail, nil if valid
func (t *SlotTable) Validate(slotCount, replicaCount int) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidTable)
	}

	if t.Epoch <= 0 {
		return fmt.Errorf("%w: epoch must be positive, got %d", ErrInvalidTable, t.Epoch)
	}

	if len(t.Slots) != slotCount {
		return fmt.Errorf("%w: table has %d slots, want %d", ErrInvalidTable, len(t.Slots), slotCount)
	}

	for id := range slotCount {
		s, ok := t.Slots[id]
		if !ok {
			return fmt.Errorf("%w: slot %d missing", ErrInvalidTable, id)
		}
		if s.ID != id {
			return fmt.Errorf("%w: slot keyed %d carries id %d", ErrInvalidTable, id, s.ID)
		}
		if err := s.Validate(replicaCount); err != nil {
			return err
		}
	}

	return nil
}

// NodeSet returns every address referenced by the table.
func (t *SlotTable) NodeSet() map[string]struct{} {
	set := make(map[string]struct{})
	if t == nil {
		return set
	}

	for _, s := range t.Slots {
		set[s.Leader] = struct{}{}
		for _, f := range s.Followers {
			set[f] = struct{}{}
		}
	}

	return set
}

// LeaderCounts returns the number of slots led by each address.
func (t *SlotTable) LeaderCounts() map[string]int {
	counts := make(map[string]int)
	if t == nil {
		return counts
	}

	for _, s := range t.Slots {
		counts[s.Leader]++
	}

	return counts
}

// SlotsOf returns the IDs of slots led by addr, in ascending order.
func (t *SlotTable) SlotsOf(addr string) []int {
	var ids []int
	for _, id := range t.IDs() {
		if t.Slots[id].Leader == addr {
			ids = append(ids, id)
		}
	}

	return ids
}

// SlotForKey maps a data key to one of the table's slots.
func (t *SlotTable) SlotForKey(key string) int {
	return SlotForKey(key, t.Len())
}

// SlotForKey maps a data key onto [0, slotCount) using xxh3.
//
// Returns -1 when slotCount is not positive.
func SlotForKey(key string, slotCount int) int {
	if slotCount <= 0 {
		return -1
	}

	return int(xxh3.HashString(key) % uint64(slotCount)) //nolint:gosec // slotCount is positive and fits in int
}

// Transfer describes how ownership of one slot differs between two tables.
type Transfer struct {
	SlotID     int      `json:"slotId"`
	FromLeader string   `json:"fromLeader"`
	ToLeader   string   `json:"toLeader"`
	Added      []string `json:"added,omitempty"`
	Removed    []string `json:"removed,omitempty"`
}

// LeaderChanged reports whether the transfer moves slot leadership.
func (tr Transfer) LeaderChanged() bool {
	return tr.FromLeader != tr.ToLeader
}

// Diff lists the slots whose owners differ between t and next, ordered by slot ID.
//
// Added and Removed hold addresses that joined or left the slot's owner set
// (leader or follower). A nil receiver is treated as an empty table.
func (t *SlotTable) Diff(next *SlotTable) []Transfer {
	ids := make(map[int]struct{})
	if t != nil {
		for id := range t.Slots {
			ids[id] = struct{}{}
		}
	}
	if next != nil {
		for id := range next.Slots {
			ids[id] = struct{}{}
		}
	}

	var out []Transfer
	for _, id := range slices.Sorted(maps.Keys(ids)) {
		before, _ := t.Get(id)
		after, _ := next.Get(id)
		if before.Equal(after) {
			continue
		}

		out = append(out, Transfer{
			SlotID:     id,
			FromLeader: before.Leader,
			ToLeader:   after.Leader,
			Added:      missing(after.Nodes(), before),
			Removed:    missing(before.Nodes(), after),
		})
	}

	return out
}

// missing returns the non-empty addresses of addrs that slot s does not contain.
func missing(addrs []string, s Slot) []string {
	var out []string
	for _, a := range addrs {
		if a != "" && !s.Contains(a) {
			out = append(out, a)
		}
	}

	return out
}
