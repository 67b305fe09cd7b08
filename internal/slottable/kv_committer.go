package slottable

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/internal/natsutil"
	"github.com/arloliu/slotmap/types"
)

// KVCommitter stores the active slot table in a NATS JetStream KV bucket.
//
// The table lives under a single key, "<prefix>.current". Writes are
// compare-and-set on the key revision, and a table is only written if its
// epoch exceeds the stored epoch and the gate still reports leadership.
type KVCommitter struct {
	kv     jetstream.KeyValue
	key    string
	gate   types.LeadershipGate
	nodeID string
	logger types.Logger
	now    func() time.Time
}

var _ types.Committer = (*KVCommitter)(nil)

// KVOption configures a KVCommitter.
type KVOption func(*KVCommitter)

// WithGate re-checks leadership on every commit.
func WithGate(gate types.LeadershipGate) KVOption {
	return func(c *KVCommitter) {
		c.gate = gate
	}
}

// WithNodeID records the committing coordinator in the stored record.
func WithNodeID(nodeID string) KVOption {
	return func(c *KVCommitter) {
		c.nodeID = nodeID
	}
}

// WithCommitLogger sets the committer logger.
func WithCommitLogger(logger types.Logger) KVOption {
	return func(c *KVCommitter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewKVCommitter creates a committer over kv.
//
// Parameters:
//   - kv: Slot table KV bucket (no TTL)
//   - prefix: Key prefix (e.g. "slottable")
//   - opts: Optional settings
//
// Returns:
//   - *KVCommitter: Ready committer
func NewKVCommitter(kv jetstream.KeyValue, prefix string, opts ...KVOption) *KVCommitter {
	c := &KVCommitter{
		kv:     kv,
		key:    prefix + ".current",
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Key returns the KV key holding the table.
func (c *KVCommitter) Key() string {
	return c.key
}

// Commit stores table if its epoch exceeds the stored epoch.
//
// Returns:
//   - error: types.ErrCommitRejected wrapping types.ErrNotLeader,
//     types.ErrStaleEpoch or a lost revision race; transport errors wrapped
func (c *KVCommitter) Commit(ctx context.Context, table *types.SlotTable) error {
	if c.gate != nil && !c.gate.IsLeader(ctx) {
		return fmt.Errorf("%w: %w", types.ErrCommitRejected, types.ErrNotLeader)
	}

	data, err := encodeTable(table, c.nodeID, c.now())
	if err != nil {
		return err
	}

	entry, err := c.kv.Get(ctx, c.key)
	switch {
	case natsutil.IsKeyNotFound(err):
		return c.create(ctx, table, data)
	case err != nil:
		return fmt.Errorf("failed to read committed slot table: %w", err)
	}

	stored, _, err := decodeTable(entry.Value())
	if err != nil {
		c.logger.Warn("overwriting undecodable slot table", "key", c.key, "error", err)
	} else if table.Epoch <= stored.Epoch {
		return fmt.Errorf("%w: %w: epoch %d does not exceed committed epoch %d",
			types.ErrCommitRejected, types.ErrStaleEpoch, table.Epoch, stored.Epoch)
	}

	if _, err := c.kv.Update(ctx, c.key, data, entry.Revision()); err != nil {
		if natsutil.IsRevisionConflict(err) {
			return fmt.Errorf("%w: slot table changed concurrently: %w", types.ErrCommitRejected, err)
		}

		return fmt.Errorf("failed to update slot table: %w", err)
	}
	c.logger.Debug("slot table updated", "key", c.key, "epoch", table.Epoch, "revision", entry.Revision())

	return nil
}

func (c *KVCommitter) create(ctx context.Context, table *types.SlotTable, data []byte) error {
	if _, err := c.kv.Create(ctx, c.key, data); err != nil {
		if natsutil.IsRevisionConflict(err) {
			return fmt.Errorf("%w: concurrent first commit: %w", types.ErrCommitRejected, err)
		}

		return fmt.Errorf("failed to create slot table: %w", err)
	}
	c.logger.Debug("slot table created", "key", c.key, "epoch", table.Epoch)

	return nil
}

// Load returns the committed table, or nil if none exists.
//
// An undecodable record is reported as no table so that the next leader's
// full reinit overwrites it.
func (c *KVCommitter) Load(ctx context.Context) (*types.SlotTable, error) {
	entry, err := c.kv.Get(ctx, c.key)
	if err != nil {
		if natsutil.IsKeyNotFound(err) {
			return nil, nil //nolint:nilnil // no table committed yet
		}

		return nil, fmt.Errorf("failed to read committed slot table: %w", err)
	}

	table, _, err := decodeTable(entry.Value())
	if err != nil {
		c.logger.Warn("ignoring undecodable slot table", "key", c.key, "revision", entry.Revision(), "error", err)
		return nil, nil //nolint:nilnil // treated as no table
	}

	return table, nil
}

// HighestEpoch returns the committed epoch, or 0 if no table exists.
//
// A new leader raises its epoch generator to this value so its first table
// supersedes the previous leader's.
func (c *KVCommitter) HighestEpoch(ctx context.Context) (int64, error) {
	table, err := c.Load(ctx)
	if err != nil {
		return 0, err
	}
	if table == nil {
		return 0, nil
	}

	return table.Epoch, nil
}

// Watch streams every committed table, starting with the current one if any.
//
// The channel is closed when ctx is cancelled or the watch ends.
func (c *KVCommitter) Watch(ctx context.Context) (<-chan *types.SlotTable, error) {
	watcher, err := c.kv.Watch(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to watch slot table: %w", err)
	}

	out := make(chan *types.SlotTable, 1)
	go func() {
		defer close(out)
		defer func() {
			if err := watcher.Stop(); err != nil {
				c.logger.Debug("failed to stop slot table watcher", "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				if entry == nil || entry.Operation() != jetstream.KeyValuePut {
					continue
				}

				table, _, err := decodeTable(entry.Value())
				if err != nil {
					c.logger.Warn("skipping undecodable slot table", "revision", entry.Revision(), "error", err)
					continue
				}

				select {
				case out <- table:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
