package slottable

import (
	"context"
	"fmt"
	"sync"

	"github.com/arloliu/slotmap/types"
)

// MemoryCommitter keeps the committed table in process memory.
//
// It applies the same leadership and epoch checks as KVCommitter. FailNext
// injects a commit failure.
type MemoryCommitter struct {
	mu       sync.Mutex
	gate     types.LeadershipGate
	table    *types.SlotTable
	commits  int
	failNext error
}

var _ types.Committer = (*MemoryCommitter)(nil)

// NewMemoryCommitter creates an empty in-memory committer. gate may be nil.
func NewMemoryCommitter(gate types.LeadershipGate) *MemoryCommitter {
	return &MemoryCommitter{gate: gate}
}

// Commit stores a copy of table.
func (c *MemoryCommitter) Commit(ctx context.Context, table *types.SlotTable) error {
	if c.gate != nil && !c.gate.IsLeader(ctx) {
		return fmt.Errorf("%w: %w", types.ErrCommitRejected, types.ErrNotLeader)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.failNext; err != nil {
		c.failNext = nil
		return err
	}

	if c.table != nil && table.Epoch <= c.table.Epoch {
		return fmt.Errorf("%w: %w: epoch %d does not exceed committed epoch %d",
			types.ErrCommitRejected, types.ErrStaleEpoch, table.Epoch, c.table.Epoch)
	}

	c.table = table.Clone()
	c.commits++

	return nil
}

// Load returns a copy of the committed table, or nil.
func (c *MemoryCommitter) Load(_ context.Context) (*types.SlotTable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.table.Clone(), nil
}

// FailNext makes the next Commit return err without storing anything.
func (c *MemoryCommitter) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failNext = err
}

// Commits returns the number of successful commits.
func (c *MemoryCommitter) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.commits
}
