package membership

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/internal/natsutil"
	"github.com/arloliu/slotmap/types"
)

const defaultDebounce = 100 * time.Millisecond

// ChangeFunc is invoked when the set of live addresses changes.
// prev is the previously observed membership, curr the new one; both sorted.
type ChangeFunc func(ctx context.Context, prev, curr []types.Node) error

// Monitor discovers live data nodes from heartbeat keys.
//
// It provides hybrid change detection:
//   - Watcher (primary): KV Watch on "<prefix>.*", debounced
//   - Polling (fallback): KV scan every TTL/2
type Monitor struct {
	kv           jetstream.KeyValue
	prefix       string
	ttl          time.Duration
	debounce     time.Duration
	watchPattern string

	watcher   jetstream.KeyWatcher
	watcherMu sync.Mutex

	onChange ChangeFunc
	logger   types.Logger
	metrics  types.MetricsCollector

	checkMu sync.Mutex
	lastMu  sync.Mutex
	last    []types.Node
	primed  bool

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

var _ types.MembershipProvider = (*Monitor)(nil)

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithDebounce sets how long watcher events are coalesced before a check.
func WithDebounce(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.debounce = d
		}
	}
}

// WithLogger sets the monitor logger.
func WithLogger(logger types.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector that receives membership size.
func WithMetrics(metrics types.MetricsCollector) MonitorOption {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

// WithOnChange sets the membership change callback.
func WithOnChange(fn ChangeFunc) MonitorOption {
	return func(m *Monitor) {
		m.onChange = fn
	}
}

// NewMonitor creates a membership monitor.
//
// Parameters:
//   - kv: Heartbeat KV bucket
//   - prefix: Heartbeat key prefix (e.g. "node")
//   - ttl: Heartbeat TTL; the polling period is ttl/2
//   - opts: Optional settings
//
// Returns:
//   - *Monitor: New monitor; ClusterMembers works without Start
func NewMonitor(kv jetstream.KeyValue, prefix string, ttl time.Duration, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		kv:           kv,
		prefix:       prefix,
		ttl:          ttl,
		debounce:     defaultDebounce,
		watchPattern: fmt.Sprintf("%s.*", prefix),
		logger:       logging.NewNop(),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ClusterMembers returns the nodes with a live heartbeat, sorted by address.
//
// Returns:
//   - []types.Node: Live nodes, empty when none registered
//   - error: KV access error
func (m *Monitor) ClusterMembers(ctx context.Context) ([]types.Node, error) {
	keys, err := m.kv.Keys(ctx)
	if err != nil {
		if types.IsNoKeysFoundError(err) {
			m.recordMembers(0)
			return []types.Node{}, nil
		}

		return nil, fmt.Errorf("failed to list heartbeat keys: %w", err)
	}

	nodes := make([]types.Node, 0, len(keys))
	for _, key := range keys {
		address, ok := addressFromKey(m.prefix, key)
		if !ok {
			continue
		}

		entry, err := m.kv.Get(ctx, key)
		if err != nil {
			if natsutil.IsKeyNotFound(err) {
				// expired between Keys and Get
				continue
			}

			return nil, fmt.Errorf("failed to read heartbeat %s: %w", key, err)
		}

		rec, err := decodeRecord(entry.Value())
		if err != nil {
			m.logger.Warn("skipping malformed heartbeat", "key", key, "error", err)
			continue
		}
		if rec.Address != "" {
			address = rec.Address
		}

		nodes = append(nodes, types.Node{Address: address})
	}

	nodes = types.UniqueNodes(nodes)
	types.SortNodes(nodes)
	m.recordMembers(len(nodes))

	return nodes, nil
}

// Start begins watching and polling for membership changes.
//
// The first scan after Start establishes the baseline and does not invoke
// the change callback.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return types.ErrMonitorAlreadyStopped
	}
	if m.started {
		return types.ErrMonitorAlreadyStarted
	}

	m.started = true
	go m.run(ctx)

	return nil
}

// Stop stops the monitor and waits for its goroutines. Repeated calls are no-ops.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return types.ErrMonitorNotStarted
	}
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.mu.Unlock()

	close(m.stopCh)
	<-m.doneCh
	m.stopWatcher()

	return nil
}

// Check rescans membership and invokes the change callback if the set of
// live addresses differs from the previous scan.
//
// Returns:
//   - bool: true if a change was detected
//   - error: Scan or callback error
func (m *Monitor) Check(ctx context.Context) (bool, error) {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	curr, err := m.ClusterMembers(ctx)
	if err != nil {
		return false, err
	}

	m.lastMu.Lock()
	prev := m.last
	primed := m.primed
	changed := primed && !sameAddresses(prev, curr)
	m.last = curr
	m.primed = true
	m.lastMu.Unlock()

	if !changed {
		return false, nil
	}

	m.logger.Info("membership changed",
		"previous", types.Addresses(prev),
		"current", types.Addresses(curr),
	)

	if m.onChange != nil {
		if err := m.onChange(ctx, prev, curr); err != nil {
			return true, err
		}
	}

	return true, nil
}

// Last returns the membership observed by the most recent Check.
func (m *Monitor) Last() []types.Node {
	m.lastMu.Lock()
	defer m.lastMu.Unlock()

	return slices.Clone(m.last)
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.doneCh)

	if err := m.startWatcher(ctx); err != nil {
		m.logger.Warn("failed to start watcher, falling back to polling only", "error", err)
	}

	if _, err := m.Check(ctx); err != nil {
		m.logger.Warn("initial membership scan failed", "error", err)
	}

	interval := m.ttl / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.Check(ctx); err != nil {
				m.logger.Error("membership poll failed", "error", err)
			}
		case <-m.stopCh:
			m.stopWatcher()
			return
		case <-ctx.Done():
			m.stopWatcher()
			return
		}
	}
}

func (m *Monitor) startWatcher(ctx context.Context) error {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()

	if m.watcher != nil {
		return nil
	}

	watcher, err := m.kv.Watch(ctx, m.watchPattern, jetstream.UpdatesOnly())
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	m.watcher = watcher
	m.logger.Debug("membership watcher started", "pattern", m.watchPattern)

	go m.processWatcherEvents(ctx, watcher)

	return nil
}

func (m *Monitor) stopWatcher() {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()

	if m.watcher != nil {
		if err := m.watcher.Stop(); err != nil {
			m.logger.Warn("failed to stop watcher", "error", err)
		}
		m.watcher = nil
	}
}

func (m *Monitor) processWatcherEvents(ctx context.Context, watcher jetstream.KeyWatcher) {
	timer := time.NewTimer(m.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case entry, ok := <-watcher.Updates():
			if !ok {
				return
			}
			if entry == nil {
				continue
			}
			if !pending {
				pending = true
				timer.Reset(m.debounce)
			}
		case <-timer.C:
			if pending {
				pending = false
				if _, err := m.Check(ctx); err != nil {
					m.logger.Error("watcher-triggered membership check failed", "error", err)
				}
			}
		}
	}
}

func (m *Monitor) recordMembers(n int) {
	if m.metrics != nil {
		m.metrics.RecordMembers(n)
	}
}

func sameAddresses(a, b []types.Node) bool {
	return slices.Equal(types.Addresses(a), types.Addresses(b))
}
