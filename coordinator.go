package slotmap

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/slotmap/internal/election"
	"github.com/arloliu/slotmap/internal/epoch"
	"github.com/arloliu/slotmap/internal/hooks"
	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/internal/membership"
	"github.com/arloliu/slotmap/internal/metrics"
	"github.com/arloliu/slotmap/internal/natsutil"
	"github.com/arloliu/slotmap/internal/placement"
	"github.com/arloliu/slotmap/internal/rebalance"
	"github.com/arloliu/slotmap/internal/slottable"
	"github.com/arloliu/slotmap/types"
)

const bucketRetries = 5

// Coordinator runs one meta-plane participant.
//
// Every participant contends for leadership, follows the committed slot
// table and answers routing queries from it. The leader additionally:
//   - raises its epoch floor above the committed table
//   - bootstraps the table with a full reinit when none exists
//   - rebalances on membership changes (node-removal when nodes only left,
//     incremental when nodes joined)
//   - runs the scheduled rebalance every Rebalance.Interval
//
// Thread Safety:
//   - All public methods are safe for concurrent use
//   - Rebalances are serialized across kinds
//
// Lifecycle:
//   - Create with NewCoordinator()
//   - Call Start() to open buckets and join the election
//   - Read the table with Table(), Slot() or Route()
//   - Call Stop() for graceful shutdown
type Coordinator struct {
	cfg  Config
	conn *nats.Conn

	// Optional dependencies
	customAgent   ElectionAgent
	customGate    LeadershipGate
	customMembers MembershipProvider
	hooks         *Hooks
	metrics       MetricsCollector
	logger        Logger

	// Internal components, built by Start
	agent     ElectionAgent
	election  *election.NATSElection
	gate      LeadershipGate
	members   MembershipProvider
	monitor   *membership.Monitor
	committer *slottable.KVCommitter
	tables    *slottable.Manager
	epochs    *epoch.Generator
	engine    *placement.Engine
	tasks     map[RebalanceKind]*rebalance.Task

	// State management
	state      atomic.Int32 // State
	stateSince atomic.Int64 // unix nanos of the last transition
	isLeader   atomic.Bool

	rebalanceMu sync.Mutex

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewCoordinator creates a Coordinator.
//
// Returns a concrete *Coordinator; consumers define their own interfaces
// for testing if needed.
//
// Parameters:
//   - cfg: Configuration; zero fields are filled by SetDefaults
//   - conn: NATS connection for the KV buckets
//   - opts: Optional configuration (hooks, metrics, logger, election agent,
//     leadership gate, membership provider)
//
// Returns:
//   - *Coordinator: Initialized coordinator
//   - error: ErrNATSConnectionRequired or a wrapped ErrInvalidConfig
//
// Example:
//
//	cfg := slotmap.DefaultConfig()
//	cfg.NodeID = "meta-1"
//	coord, err := slotmap.NewCoordinator(cfg, nc)
//	if err != nil {
//	    return err
//	}
//	if err := coord.Start(ctx); err != nil {
//	    return err
//	}
//	defer coord.Stop(context.Background())
func NewCoordinator(cfg Config, conn *nats.Conn, opts ...Option) (*Coordinator, error) {
	if conn == nil {
		return nil, ErrNATSConnectionRequired
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}

	options := &coordinatorOptions{}
	for _, opt := range opts {
		opt(options)
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	cfg.ValidateWithWarnings(loggerInstance)

	c := &Coordinator{
		cfg:           cfg,
		conn:          conn,
		customAgent:   options.electionAgent,
		customGate:    options.gate,
		customMembers: options.members,
		hooks:         hooks.Fill(options.hooks),
		metrics:       metricsCollector,
		logger:        loggerInstance,
	}

	c.state.Store(int32(StateInit))
	c.stateSince.Store(time.Now().UnixNano())

	return c, nil
}

// Start opens the KV buckets, loads the committed table and joins the
// election.
//
// Start returns once the first election round finished. A participant that
// won it has also run its leader bootstrap.
//
// Parameters:
//   - ctx: Context for cancellation; StartupTimeout is applied on top
//
// A failed Start is rolled back and may be retried.
//
// Returns:
//   - error: ErrAlreadyStarted, or a bucket, load or election error
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()

		return ErrAlreadyStarted
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	if err := c.start(ctx); err != nil {
		c.abortStart(ctx)
		return err
	}

	return nil
}

func (c *Coordinator) start(ctx context.Context) error {
	startupCtx, cancel := context.WithTimeout(ctx, c.cfg.StartupTimeout)
	defer cancel()

	js, err := jetstream.New(c.conn)
	if err != nil {
		return fmt.Errorf("failed to create jetstream context: %w", err)
	}

	buckets := c.cfg.KVBuckets
	electionKV, err := ensureKVBucket(startupCtx, js, buckets.ElectionBucket, c.cfg.ElectionTimeout)
	if err != nil {
		return fmt.Errorf("failed to create election KV: %w", err)
	}

	heartbeatKV, err := ensureKVBucket(startupCtx, js, buckets.HeartbeatBucket, c.cfg.HeartbeatTTL)
	if err != nil {
		return fmt.Errorf("failed to create heartbeat KV: %w", err)
	}

	// No TTL: the committed table outlives every leader.
	tableKV, err := ensureKVBucket(startupCtx, js, buckets.SlotTableBucket, 0)
	if err != nil {
		return fmt.Errorf("failed to create slot table KV: %w", err)
	}

	if err := c.build(electionKV, heartbeatKV, tableKV); err != nil {
		return err
	}

	// Step 1: catch up with the committed table and follow later commits
	if _, err := c.tables.Sync(startupCtx); err != nil {
		return err
	}
	if err := c.followCommits(); err != nil {
		return err
	}

	// Step 2: watch membership (leader-side reactions are gated in the callback)
	if c.monitor != nil {
		if err := c.monitor.Start(c.ctx); err != nil {
			return fmt.Errorf("failed to start membership monitor: %w", err)
		}
	}

	// Step 3: first election round
	c.transitionState(c.State(), StateElection)
	if err := c.participateElection(startupCtx); err != nil {
		return fmt.Errorf("failed to participate in election: %w", err)
	}

	// Step 4: scheduled rebalance
	if c.cfg.Rebalance.Interval > 0 {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.runScheduler()
		}()
	}

	return nil
}

// abortStart undoes a partial Start and returns to StateInit.
func (c *Coordinator) abortStart(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()

	if c.monitor != nil {
		if err := c.monitor.Stop(); err != nil && !errors.Is(err, types.ErrMonitorNotStarted) {
			c.logger.Warn("failed to stop membership monitor", "error", err)
		}
	}

	if c.agent != nil && c.isLeader.Swap(false) {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.OperationTimeout)
		if err := c.agent.ReleaseLeadership(releaseCtx); err != nil {
			c.logger.Warn("failed to release leadership", "error", err)
		}
		cancel()
	}

	c.wg.Wait()

	if c.tables != nil {
		c.tables.Close()
	}

	c.agent, c.election, c.gate, c.members, c.monitor = nil, nil, nil, nil, nil
	c.committer, c.tables, c.engine, c.epochs, c.tasks = nil, nil, nil, nil, nil
	c.ctx, c.cancel = nil, nil
	c.state.Store(int32(StateInit))
	c.stateSince.Store(time.Now().UnixNano())
}

// Stop gracefully shuts down the coordinator.
//
// Leadership is released so another participant can take over without
// waiting for the lease to expire.
//
// Parameters:
//   - ctx: Context for shutdown timeout
//
// Returns:
//   - error: ErrNotStarted, release error or timeout
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.ctx == nil {
		c.mu.Unlock()

		return ErrNotStarted
	}

	currentState := c.State()
	if currentState == StateShutdown {
		c.mu.Unlock()

		return ErrNotStarted
	}

	c.transitionState(currentState, StateShutdown)
	c.cancel()
	c.mu.Unlock()

	var shutdownErr error

	// Step 1: stop membership reactions
	if c.monitor != nil {
		if err := c.monitor.Stop(); err != nil && !errors.Is(err, types.ErrMonitorNotStarted) {
			c.logger.Error("failed to stop membership monitor", "error", err)
			shutdownErr = fmt.Errorf("membership monitor stop failed: %w", err)
		}
	}

	// Step 2: release leadership
	if c.agent != nil && c.isLeader.Load() {
		if err := c.agent.ReleaseLeadership(ctx); err != nil {
			c.logger.Error("failed to release leadership", "error", err)
			if shutdownErr == nil {
				shutdownErr = fmt.Errorf("leadership release failed: %w", err)
			}
		}
		c.isLeader.Store(false)
	}

	// Step 3: wait for background goroutines
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Error("shutdown timeout exceeded, some goroutines may still be running")
		if shutdownErr == nil {
			return ctx.Err()
		}

		return fmt.Errorf("shutdown timeout: %w; additional error: %w", ctx.Err(), shutdownErr)
	}

	if c.tables != nil {
		c.tables.Close()
	}

	c.logger.Info("coordinator stopped", "node_id", c.cfg.NodeID)

	return shutdownErr
}

// NodeID returns the participant's election identity.
func (c *Coordinator) NodeID() string {
	return c.cfg.NodeID
}

// Config returns a copy of the effective configuration.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// IsLeader returns true while this participant holds leadership.
func (c *Coordinator) IsLeader() bool {
	return c.isLeader.Load()
}

// State returns the current participant state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// CurrentLeader returns the node ID stored under the leader key, or "" when
// nobody holds leadership.
//
// With a custom election agent only the local answer is known: the local
// node ID when leading, "" otherwise.
func (c *Coordinator) CurrentLeader(ctx context.Context) (string, error) {
	if c.election == nil {
		if c.IsLeader() {
			return c.cfg.NodeID, nil
		}

		return "", nil
	}

	rec, err := c.election.CurrentLeader(ctx)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", nil
	}

	return rec.NodeID, nil
}

// Table returns the active slot table, or nil before one was committed.
//
// The table is shared; callers must not modify it.
func (c *Coordinator) Table() *SlotTable {
	if c.tables == nil {
		return nil
	}

	return c.tables.Active()
}

// Slot returns one slot of the active table.
//
// Returns:
//   - Slot: The slot
//   - error: ErrNoTable, ErrSlotNotFound, or ErrNotStarted before Start
func (c *Coordinator) Slot(id int) (Slot, error) {
	if c.tables == nil {
		return Slot{}, ErrNotStarted
	}

	return c.tables.Slot(id)
}

// Route maps a registry key to its slot in the active table.
func (c *Coordinator) Route(key string) (Slot, error) {
	return c.Slot(SlotForKey(key, c.cfg.SlotCount))
}

// Subscribe returns a channel receiving every table that becomes active,
// starting with the current one. Call the returned function to unsubscribe.
//
// Slow subscribers miss intermediate tables rather than blocking commits.
func (c *Coordinator) Subscribe() (<-chan *SlotTable, func(), error) {
	if c.tables == nil {
		return nil, nil, ErrNotStarted
	}

	ch, cancel := c.tables.Subscribe()

	return ch, cancel, nil
}

// Members returns the live data nodes as seen by the membership provider.
func (c *Coordinator) Members(ctx context.Context) ([]Node, error) {
	if c.members == nil {
		return nil, ErrNotStarted
	}

	return c.members.ClusterMembers(ctx)
}

// Rebalance runs one rebalance of the given kind now.
//
// On a follower it returns OutcomeSkippedNotLeader and no error.
//
// Returns:
//   - RebalanceOutcome: How the run ended
//   - error: ErrNotStarted, ErrUnknownTaskKind, or the task error
func (c *Coordinator) Rebalance(ctx context.Context, kind RebalanceKind) (RebalanceOutcome, error) {
	state := c.State()
	if state == StateInit || state == StateShutdown {
		return OutcomeFailed, ErrNotStarted
	}

	return c.runTask(ctx, kind)
}

// WaitState waits for the coordinator to reach the expected state.
//
// The returned channel receives nil once the state is reached or
// context.DeadlineExceeded after timeout, then closes.
//
// Example:
//
//	if err := <-coord.WaitState(slotmap.StateLeader, 5*time.Second); err != nil {
//	    return fmt.Errorf("never became leader: %w", err)
//	}
func (c *Coordinator) WaitState(expectedState State, timeout time.Duration) <-chan error {
	ch := make(chan error, 1)

	go func() {
		defer close(ch)

		if c.State() == expectedState {
			ch <- nil
			return
		}

		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()

		timeoutTimer := time.NewTimer(timeout)
		defer timeoutTimer.Stop()

		for {
			select {
			case <-ticker.C:
				if c.State() == expectedState {
					ch <- nil
					return
				}
			case <-timeoutTimer.C:
				ch <- context.DeadlineExceeded
				return
			}
		}
	}()

	return ch
}

// build wires the components on top of the opened buckets.
func (c *Coordinator) build(electionKV, heartbeatKV, tableKV jetstream.KeyValue) error {
	c.agent = c.customAgent
	if c.agent == nil {
		c.election = election.NewNATSElection(electionKV, c.cfg.KVBuckets.LeaderKey)
		c.agent = c.election
	}

	c.gate = c.customGate
	if c.gate == nil {
		c.gate = election.NewGate(c.agent, c.logger)
	}

	c.members = c.customMembers
	if c.members == nil {
		monitorOpts := []membership.MonitorOption{
			membership.WithDebounce(c.cfg.Rebalance.MembershipDebounce),
			membership.WithLogger(c.logger),
			membership.WithMetrics(c.metrics),
		}
		if !c.cfg.Rebalance.DisableMembershipTrigger {
			monitorOpts = append(monitorOpts, membership.WithOnChange(c.onMembershipChange))
		}
		c.monitor = membership.NewMonitor(heartbeatKV, c.cfg.KVBuckets.HeartbeatPrefix, c.cfg.HeartbeatTTL, monitorOpts...)
		c.members = c.monitor
	}

	c.committer = slottable.NewKVCommitter(tableKV, c.cfg.KVBuckets.SlotTablePrefix,
		slottable.WithGate(c.gate),
		slottable.WithNodeID(c.cfg.NodeID),
		slottable.WithCommitLogger(c.logger),
	)

	c.tables = slottable.NewManager(c.committer, c.cfg.SlotCount, c.cfg.ReplicaCount,
		slottable.WithLogger(c.logger),
		slottable.WithMetrics(c.metrics),
		slottable.WithHooks(c.hooks),
	)

	engine, err := placement.New(c.cfg.SlotCount, c.cfg.ReplicaCount)
	if err != nil {
		return fmt.Errorf("failed to create placement engine: %w", err)
	}
	c.engine = engine
	c.epochs = epoch.New()

	deps := rebalance.Deps{
		Gate:    c.gate,
		Members: c.members,
		Epochs:  c.epochs,
		Engine:  c.engine,
		Tables:  c.tables,
		Logger:  c.logger,
		Metrics: c.metrics,
	}

	c.tasks = make(map[RebalanceKind]*rebalance.Task, 3)
	for _, kind := range []RebalanceKind{RebalanceFullReinit, RebalanceIncremental, RebalanceNodeRemoval} {
		task, err := rebalance.New(kind, deps)
		if err != nil {
			return fmt.Errorf("failed to create %s task: %w", kind, err)
		}
		c.tasks[kind] = task
	}

	return nil
}

// followCommits applies every table committed by any leader.
func (c *Coordinator) followCommits() error {
	updates, err := c.committer.Watch(c.ctx)
	if err != nil {
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.tables.Follow(c.ctx, updates)
	}()

	return nil
}

// ensureKVBucket creates or opens a KV bucket keeping only the latest value.
func ensureKVBucket(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	cfg := jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
	}
	if ttl > 0 {
		cfg.TTL = ttl
	}

	kv, err := natsutil.EnsureBucket(ctx, js, cfg, bucketRetries)
	if err != nil {
		if natsutil.IsConnectivityError(err) {
			err = fmt.Errorf("%w: %w", ErrConnectivity, err)
		}

		return nil, fmt.Errorf("failed to create/open KV bucket %s: %w", bucket, err)
	}

	return kv, nil
}

// participateElection runs the first election round and starts the loop.
func (c *Coordinator) participateElection(ctx context.Context) error {
	isLeader, err := c.agent.RequestLeadership(ctx, c.cfg.NodeID, c.leaseSeconds())
	if err != nil {
		return fmt.Errorf("failed to request leadership: %w", err)
	}

	if isLeader {
		c.becomeLeader(ctx)
	} else {
		c.transitionState(c.State(), StateFollower)
		c.logger.Info("participating as follower", "node_id", c.cfg.NodeID)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.monitorLeadership()
	}()

	return nil
}

// monitorLeadership renews the lease while leading and contends for it
// while following.
func (c *Coordinator) monitorLeadership() {
	ticker := time.NewTicker(c.cfg.ElectionTimeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if c.isLeader.Load() {
				if err := c.agent.RenewLeadership(c.ctx); err != nil {
					if c.ctx.Err() != nil {
						return
					}
					c.logger.Error("failed to renew leadership", "error", err)
					c.loseLeadership()
				}

				continue
			}

			isLeader, err := c.agent.RequestLeadership(c.ctx, c.cfg.NodeID, c.leaseSeconds())
			if err != nil {
				if c.ctx.Err() == nil {
					c.logger.Error("failed to request leadership", "error", err)
				}

				continue
			}
			if isLeader && c.ctx.Err() == nil {
				c.becomeLeader(c.ctx)
			}
		}
	}
}

// becomeLeader records the win and runs the leader bootstrap.
func (c *Coordinator) becomeLeader(ctx context.Context) {
	c.isLeader.Store(true)
	c.transitionState(c.State(), StateLeader)
	c.metrics.RecordLeadershipChange(c.cfg.NodeID)
	c.logger.Info("became leader", "node_id", c.cfg.NodeID)
	c.notifyLeadership(true)

	opCtx, cancel := context.WithTimeout(ctx, c.cfg.OperationTimeout)
	defer cancel()

	if err := c.bootstrapLeader(opCtx); err != nil {
		c.reportError("leader bootstrap failed", err)
	}
}

// bootstrapLeader continues above the committed epoch, then makes sure the
// table reflects the membership seen by the new leader.
func (c *Coordinator) bootstrapLeader(ctx context.Context) error {
	highest, err := c.committer.HighestEpoch(ctx)
	if err != nil {
		return fmt.Errorf("failed to read committed epoch: %w", err)
	}
	c.epochs.Observe(highest)

	if _, err := c.tables.Sync(ctx); err != nil {
		return err
	}

	kind := RebalanceIncremental
	if c.tables.Active() == nil {
		kind = RebalanceFullReinit
	}

	_, err = c.runTask(ctx, kind)

	return err
}

func (c *Coordinator) loseLeadership() {
	if !c.isLeader.CompareAndSwap(true, false) {
		return
	}

	c.transitionState(c.State(), StateFollower)
	c.logger.Info("lost leadership", "node_id", c.cfg.NodeID)
	c.notifyLeadership(false)
}

// onMembershipChange picks the task kind from the direction of the change.
func (c *Coordinator) onMembershipChange(ctx context.Context, prev, curr []types.Node) error {
	if !c.isLeader.Load() {
		return nil
	}

	kind := membershipKind(prev, curr)
	c.logger.Info("membership change triggers rebalance",
		"kind", kind.String(),
		"previous", len(prev),
		"current", len(curr),
	)

	opCtx, cancel := context.WithTimeout(ctx, c.cfg.OperationTimeout)
	defer cancel()

	if _, err := c.runTask(opCtx, kind); err != nil {
		c.reportError("membership rebalance failed", err)
	}

	return nil
}

// membershipKind returns node-removal when no address joined, incremental
// otherwise.
func membershipKind(prev, curr []types.Node) RebalanceKind {
	before := types.Addresses(prev)
	for _, n := range curr {
		if !slices.Contains(before, n.Address) {
			return RebalanceIncremental
		}
	}

	return RebalanceNodeRemoval
}

// runScheduler runs the periodic rebalance on the leader.
func (c *Coordinator) runScheduler() {
	ticker := time.NewTicker(c.cfg.Rebalance.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if !c.isLeader.Load() {
				continue
			}

			opCtx, cancel := context.WithTimeout(c.ctx, c.cfg.OperationTimeout)
			if _, err := c.runTask(opCtx, c.cfg.Rebalance.PeriodicKind); err != nil {
				c.reportError("scheduled rebalance failed", err)
			}
			cancel()
		}
	}
}

func (c *Coordinator) runTask(ctx context.Context, kind RebalanceKind) (RebalanceOutcome, error) {
	task, ok := c.tasks[kind]
	if !ok {
		return OutcomeFailed, fmt.Errorf("%w: %s", ErrUnknownTaskKind, kind)
	}

	c.rebalanceMu.Lock()
	defer c.rebalanceMu.Unlock()

	outcome, err := task.RunWithOutcome(ctx)
	if err != nil && errors.Is(err, ErrCommitRejected) && errors.Is(err, ErrNotLeader) {
		// Lease lost between the gate check and the write.
		c.loseLeadership()
	}

	return outcome, err
}

func (c *Coordinator) leaseSeconds() int64 {
	secs := int64(c.cfg.ElectionTimeout / time.Second)
	if secs < 1 {
		secs = 1
	}

	return secs
}

func (c *Coordinator) notifyLeadership(isLeader bool) {
	ctx := c.ctx
	go func() {
		if err := c.hooks.OnLeadershipChanged(ctx, isLeader); err != nil {
			c.logger.Error("leadership hook error", "is_leader", isLeader, "error", err)
		}
	}()
}

func (c *Coordinator) reportError(msg string, err error) {
	c.logger.Error(msg, "node_id", c.cfg.NodeID, "error", err)

	ctx := c.ctx
	go func() {
		if hookErr := c.hooks.OnError(ctx, err); hookErr != nil {
			c.logger.Error("error hook error", "error", hookErr)
		}
	}()
}

// transitionState moves to a new state if the transition is allowed.
func (c *Coordinator) transitionState(from, to State) {
	if from == to {
		return
	}
	if !isValidTransition(from, to) {
		c.logger.Error("invalid state transition attempted",
			"from", from.String(),
			"to", to.String(),
		)

		return
	}

	if !c.state.CompareAndSwap(int32(from), int32(to)) { //nolint:gosec // State values are a controlled enum
		return
	}

	now := time.Now().UnixNano()
	since := c.stateSince.Swap(now)
	c.metrics.RecordStateTransition(from, to, time.Duration(now-since).Seconds())

	c.logger.Info("state transition",
		"from", from.String(),
		"to", to.String(),
		"node_id", c.cfg.NodeID,
	)
}

var validTransitions = map[State][]State{
	StateInit:     {StateElection, StateShutdown},
	StateElection: {StateLeader, StateFollower, StateShutdown},
	StateFollower: {StateLeader, StateShutdown},
	StateLeader:   {StateFollower, StateShutdown},
	StateShutdown: {},
}

func isValidTransition(from, to State) bool {
	return slices.Contains(validTransitions[from], to)
}
