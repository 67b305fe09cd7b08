package placement

import (
	"slices"

	"github.com/arloliu/slotmap/types"
)

// Mode selects how far Reassign perturbs a previous table.
type Mode int

const (
	// ModeNodeRemoval only repairs slots that reference departed nodes.
	ModeNodeRemoval Mode = iota

	// ModeIncremental repairs departed nodes and then moves leadership from
	// over-loaded to under-loaded nodes until leader counts differ by at most one.
	ModeIncremental
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeNodeRemoval:
		return "node_removal"
	case ModeIncremental:
		return "incremental"
	default:
		return "unknown"
	}
}

// Reassign derives a new table from prev for the given membership.
//
// Repair rules, applied per slot in ID order:
//   - a departed leader is replaced by the first surviving follower, or by the
//     live node leading the fewest slots when no follower survives
//   - departed followers are dropped and the list is refilled with the live
//     nodes holding the fewest replicas that are not already in the slot
//   - slots absent from prev are placed the same way as a slot with no survivors
//
// Slots whose owners are unchanged keep their previous epoch; every other slot
// and the table itself carry epoch. A nil prev falls back to Assign.
//
// Parameters:
//   - prev: Previously committed table (may be nil)
//   - nodes: Current membership snapshot
//   - epoch: Version for the new table
//   - mode: ModeNodeRemoval or ModeIncremental
//
// Returns:
//   - *types.SlotTable: New table covering [0, slotCount)
//   - error: ErrEmptyMembership or ErrInvalidConfiguration
func (e *Engine) Reassign(prev *types.SlotTable, nodes []types.Node, epoch int64, mode Mode) (*types.SlotTable, error) {
	if prev == nil || prev.Len() == 0 {
		return e.Assign(nodes, epoch)
	}

	uniq, err := e.CheckMembership(nodes)
	if err != nil {
		return nil, err
	}

	l := newLoads(uniq)
	slots := make(map[int]types.Slot, e.slotCount)

	// pass 1: keep every surviving owner and record the load it carries
	for id := range e.slotCount {
		old, _ := prev.Get(id)
		s := types.Slot{ID: id, Followers: make([]string, 0, e.replicaCount)}

		for _, f := range old.Followers {
			if l.live(f) && f != old.Leader && !slices.Contains(s.Followers, f) {
				s.Followers = append(s.Followers, f)
			}
		}

		switch {
		case l.live(old.Leader):
			s.Leader = old.Leader
		case len(s.Followers) > 0:
			s.Leader = s.Followers[0]
			s.Followers = s.Followers[1:]
		}

		if len(s.Followers) > e.replicaCount {
			s.Followers = s.Followers[:e.replicaCount]
		}

		if s.Leader != "" {
			l.leaders[s.Leader]++
		}
		for _, f := range s.Followers {
			l.replicas[f]++
		}

		slots[id] = s
	}

	// pass 2: fill vacant leaders and short follower lists
	for id := range e.slotCount {
		s := slots[id]
		if s.Leader == "" {
			s.Leader = l.pickLeader(s)
			l.leaders[s.Leader]++
		}
		for len(s.Followers) < e.replicaCount {
			f := l.pickReplica(s)
			s.Followers = append(s.Followers, f)
			l.replicas[f]++
		}
		slots[id] = s
	}

	if mode == ModeIncremental {
		balanceLeaders(slots, l)
	}

	for id, s := range slots {
		if old, ok := prev.Get(id); ok && old.Equal(s) {
			s.Epoch = old.Epoch
		} else {
			s.Epoch = epoch
		}
		slots[id] = s
	}

	return types.NewSlotTable(epoch, slots), nil
}

// balanceLeaders moves leadership from the most-loaded to the least-loaded node
// until the spread is at most one. A slot where the under-loaded node is
// already a follower is preferred, since that swap moves no replica.
func balanceLeaders(slots map[int]types.Slot, l *loads) {
	ids := make([]int, 0, len(slots))
	for id := range slots {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for {
		over, under := l.extremes()
		if l.leaders[over]-l.leaders[under] <= 1 {
			return
		}

		id, swap := pickSlotToMove(slots, ids, over, under)
		s := slots[id]
		if swap {
			i := slices.Index(s.Followers, under)
			s.Followers[i] = over
			l.replicas[under]--
			l.replicas[over]++
		}
		s.Leader = under
		slots[id] = s

		l.leaders[over]--
		l.leaders[under]++
	}
}

// pickSlotToMove chooses a slot led by over to hand to under. The bool result
// reports whether under is already a follower of that slot.
func pickSlotToMove(slots map[int]types.Slot, ids []int, over, under string) (int, bool) {
	fallback := -1
	for _, id := range ids {
		s := slots[id]
		if s.Leader != over {
			continue
		}
		if slices.Contains(s.Followers, under) {
			return id, true
		}
		if fallback < 0 {
			fallback = id
		}
	}

	return fallback, false
}

// loads tracks per-node leader and replica counts during Reassign.
type loads struct {
	order    []string
	index    map[string]int
	leaders  map[string]int
	replicas map[string]int
}

func newLoads(nodes []types.Node) *loads {
	l := &loads{
		order:    types.Addresses(nodes),
		index:    make(map[string]int, len(nodes)),
		leaders:  make(map[string]int, len(nodes)),
		replicas: make(map[string]int, len(nodes)),
	}
	for i, addr := range l.order {
		l.index[addr] = i
	}

	return l
}

func (l *loads) live(addr string) bool {
	_, ok := l.index[addr]
	return ok
}

// pickLeader returns the live node not in s that leads the fewest slots.
func (l *loads) pickLeader(s types.Slot) string {
	return l.pick(s, func(addr string) (int, int) { return l.leaders[addr], l.replicas[addr] })
}

// pickReplica returns the live node not in s that holds the fewest replicas.
func (l *loads) pickReplica(s types.Slot) string {
	return l.pick(s, func(addr string) (int, int) { return l.replicas[addr], l.leaders[addr] })
}

// pick scans nodes in membership order and keeps the candidate with the lowest
// (primary, secondary) cost. The engine guarantees a candidate exists because
// replicaCount < len(nodes).
func (l *loads) pick(s types.Slot, cost func(string) (int, int)) string {
	best := ""
	bestP, bestS := 0, 0
	for _, addr := range l.order {
		if s.Contains(addr) {
			continue
		}
		p, sec := cost(addr)
		if best == "" || p < bestP || (p == bestP && sec < bestS) {
			best, bestP, bestS = addr, p, sec
		}
	}

	return best
}

// extremes returns the nodes leading the most and the fewest slots, ties
// broken by membership order.
func (l *loads) extremes() (over, under string) {
	for _, addr := range l.order {
		if over == "" || l.leaders[addr] > l.leaders[over] {
			over = addr
		}
		if under == "" || l.leaders[addr] < l.leaders[under] {
			under = addr
		}
	}

	return over, under
}
