package types

import (
	"fmt"
	"slices"
)

// Slot is one shard of keyspace ownership.
//
// Invariants (checked by Validate):
//   - Leader is non-empty
//   - Leader is not a follower
//   - Followers contain no duplicates
//   - len(Followers) equals the configured replica count
type Slot struct {
	// ID is the stable slot identifier in [0, slotCount).
	ID int `json:"id"`

	// Leader is the address of the primary owner.
	Leader string `json:"leader"`

	// Followers are the replica holders in placement order.
	Followers []string `json:"followers"`

	// Epoch records when this slot's ownership was last set. It is the
	// epoch of the table that set it (unix millis shifted left by the
	// sequence bits), so slotmap.EpochTime recovers the wall-clock instant.
	// Comparable across two observations of the same slot ID.
	Epoch int64 `json:"epoch"`
}

// Clone returns a deep copy of the slot.
func (s Slot) Clone() Slot {
	s.Followers = slices.Clone(s.Followers)
	if s.Followers == nil {
		s.Followers = []string{}
	}

	return s
}

// Nodes returns the leader followed by the followers.
func (s Slot) Nodes() []string {
	out := make([]string, 0, len(s.Followers)+1)
	out = append(out, s.Leader)

	return append(out, s.Followers...)
}

// Contains reports whether addr is the leader or one of the followers.
func (s Slot) Contains(addr string) bool {
	return s.Leader == addr || slices.Contains(s.Followers, addr)
}

// Equal reports whether two slots have the same owners, ignoring epochs.
func (s Slot) Equal(o Slot) bool {
	return s.ID == o.ID && s.Leader == o.Leader && slices.Equal(s.Followers, o.Followers)
}

// Validate checks the slot invariants for the given replica count.
//
// Parameters:
//   - replicaCount: Expected number of followers
//
// Returns:
//   - error: ErrInvalidSlot wrapped with the violated rule, nil if valid
func (s Slot) Validate(replicaCount int) error {
	if s.Leader == "" {
		return fmt.Errorf("%w: slot %d has no leader", ErrInvalidSlot, s.ID)
	}

	if len(s.Followers) != replicaCount {
		return fmt.Errorf("%w: slot %d has %d followers, want %d",
			ErrInvalidSlot, s.ID, len(s.Followers), replicaCount)
	}

	seen := make(map[string]struct{}, len(s.Followers))
	for _, f := range s.Followers {
		if f == s.Leader {
			return fmt.Errorf("%w: slot %d leader %s is also a follower", ErrInvalidSlot, s.ID, f)
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("%w: slot %d has duplicate follower %s", ErrInvalidSlot, s.ID, f)
		}
		seen[f] = struct{}{}
	}

	return nil
}
