package slottable

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/slotmap/internal/hooks"
	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/internal/metrics"
	"github.com/arloliu/slotmap/types"
)

const defaultSubscriberBuffer = 4

// Manager owns the locally active slot table.
//
// Reads (Active, Slot, LeaderOf) are lock-free. Writes (Refresh, Apply) are
// serialized, and the active table is replaced only after it is committed
// or, on followers, after it has been observed as committed.
type Manager struct {
	committer    types.Committer
	slotCount    int
	replicaCount int

	active atomic.Pointer[types.SlotTable]
	mu     sync.Mutex

	subscribers      *xsync.Map[uint64, *subscriber]
	nextSubscriberID atomic.Uint64

	hooks   *types.Hooks
	logger  types.Logger
	metrics types.MetricsCollector

	ctx    context.Context //nolint:containedctx // cancels hook goroutines on Close
	cancel context.CancelFunc
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger types.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(mc types.MetricsCollector) ManagerOption {
	return func(m *Manager) {
		if mc != nil {
			m.metrics = mc
		}
	}
}

// WithHooks sets the callbacks invoked when a table becomes active.
func WithHooks(h *types.Hooks) ManagerOption {
	return func(m *Manager) {
		m.hooks = hooks.Fill(h)
	}
}

// NewManager creates a manager for tables of slotCount slots with
// replicaCount followers each.
//
// Parameters:
//   - committer: Durable store used by Refresh
//   - slotCount: Number of slots every accepted table must cover
//   - replicaCount: Followers per slot every accepted table must have
//   - opts: Optional settings
//
// Returns:
//   - *Manager: Manager with no active table
func NewManager(committer types.Committer, slotCount, replicaCount int, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		committer:    committer,
		slotCount:    slotCount,
		replicaCount: replicaCount,
		subscribers:  xsync.NewMap[uint64, *subscriber](),
		hooks:        hooks.Fill(nil),
		logger:       logging.NewNop(),
		metrics:      metrics.NewNop(),
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Refresh commits table and makes it the active table.
//
// The operation is all-or-nothing. The table must cover the configured slot
// range and its epoch must exceed the active epoch; otherwise, or when the
// committer fails, the active table is unchanged.
//
// Returns:
//   - error: types.ErrCommitRejected wrapping the cause, nil on success
func (m *Manager) Refresh(ctx context.Context, table *types.SlotTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := table.Validate(m.slotCount, m.replicaCount); err != nil {
		return fmt.Errorf("%w: %w", types.ErrCommitRejected, err)
	}

	prev := m.active.Load()
	if prev != nil && table.Epoch <= prev.Epoch {
		return fmt.Errorf("%w: %w: epoch %d does not exceed active epoch %d",
			types.ErrCommitRejected, types.ErrStaleEpoch, table.Epoch, prev.Epoch)
	}

	next := table.Clone()

	start := time.Now()
	err := m.committer.Commit(ctx, next)
	m.metrics.RecordCommit(err == nil, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, types.ErrCommitRejected) {
			return err
		}

		return fmt.Errorf("%w: %w", types.ErrCommitRejected, err)
	}

	m.install(prev, next)
	m.logger.Info("slot table committed", "epoch", next.Epoch, "slots", next.Len())

	return nil
}

// Apply installs a table committed elsewhere (the follower path).
//
// Tables that fail validation or do not advance the active epoch are ignored.
//
// Returns:
//   - bool: true if the table became active
func (m *Manager) Apply(table *types.SlotTable) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := table.Validate(m.slotCount, m.replicaCount); err != nil {
		m.logger.Warn("ignoring invalid replicated slot table", "error", err)
		return false
	}

	prev := m.active.Load()
	if prev != nil && table.Epoch <= prev.Epoch {
		return false
	}

	m.install(prev, table.Clone())
	m.logger.Debug("replicated slot table applied", "epoch", table.Epoch)

	return true
}

// Sync loads the committed table from the committer and applies it.
//
// Returns:
//   - bool: true if a newer table became active
//   - error: Committer load error
func (m *Manager) Sync(ctx context.Context) (bool, error) {
	table, err := m.committer.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load committed slot table: %w", err)
	}
	if table == nil {
		return false, nil
	}

	return m.Apply(table), nil
}

// Follow applies every table received from updates until the channel closes
// or ctx is cancelled.
func (m *Manager) Follow(ctx context.Context, updates <-chan *types.SlotTable) {
	for {
		select {
		case <-ctx.Done():
			return
		case table, ok := <-updates:
			if !ok {
				return
			}
			if table != nil {
				m.Apply(table)
			}
		}
	}
}

// SlotCount returns the slot count every accepted table must cover.
func (m *Manager) SlotCount() int {
	return m.slotCount
}

// ReplicaCount returns the follower count every accepted slot must have.
func (m *Manager) ReplicaCount() int {
	return m.replicaCount
}

// Active returns the active table, or nil before the first commit.
// The returned table is shared and must not be modified.
func (m *Manager) Active() *types.SlotTable {
	return m.active.Load()
}

// Epoch returns the active epoch, or 0 if there is no active table.
func (m *Manager) Epoch() int64 {
	if t := m.active.Load(); t != nil {
		return t.Epoch
	}

	return 0
}

// Slot returns a copy of the slot with the given ID from the active table.
//
// Returns:
//   - types.Slot: The slot
//   - error: types.ErrNoTable or types.ErrSlotNotFound
func (m *Manager) Slot(id int) (types.Slot, error) {
	t := m.active.Load()
	if t == nil {
		return types.Slot{}, types.ErrNoTable
	}

	s, ok := t.Get(id)
	if !ok {
		return types.Slot{}, fmt.Errorf("%w: %d", types.ErrSlotNotFound, id)
	}

	return s.Clone(), nil
}

// LeaderOf returns the leader address of a slot in the active table.
func (m *Manager) LeaderOf(id int) (string, error) {
	s, err := m.Slot(id)
	if err != nil {
		return "", err
	}

	return s.Leader, nil
}

// Subscribe returns a channel that receives every table that becomes active.
//
// Delivery never blocks the manager: a subscriber that falls behind misses
// intermediate tables. Call the returned function to unsubscribe.
func (m *Manager) Subscribe() (<-chan *types.SlotTable, func()) {
	id := m.nextSubscriberID.Add(1)
	sub := &subscriber{ch: make(chan *types.SlotTable, defaultSubscriberBuffer)}

	// install runs under mu, so the snapshot below is never sent after a newer table.
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subscribers.Store(id, sub)

	if t := m.active.Load(); t != nil {
		sub.trySend(t)
	}

	return sub.ch, func() { m.removeSubscriber(id) }
}

// Close releases subscribers and cancels in-flight hook calls.
func (m *Manager) Close() {
	m.cancel()
	m.subscribers.Range(func(id uint64, _ *subscriber) bool {
		m.removeSubscriber(id)
		return true
	})
}

func (m *Manager) removeSubscriber(id uint64) {
	if sub, ok := m.subscribers.LoadAndDelete(id); ok {
		sub.close()
	}
}

// install swaps the active pointer and notifies observers. Caller holds mu.
func (m *Manager) install(prev, next *types.SlotTable) {
	m.active.Store(next)
	m.metrics.RecordActiveTable(next.Epoch, next.Len())

	m.subscribers.Range(func(_ uint64, sub *subscriber) bool {
		if !sub.trySend(next) {
			m.metrics.RecordSubscriberDropped()
		}
		return true
	})

	go func() {
		if err := m.hooks.OnTableCommitted(m.ctx, prev, next); err != nil {
			m.logger.Warn("OnTableCommitted hook failed", "epoch", next.Epoch, "error", err)
		}
	}()
}
