package rebalance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/internal/metrics"
	"github.com/arloliu/slotmap/internal/placement"
	"github.com/arloliu/slotmap/types"
)

// Outcome reports how a task run ended.
type Outcome int

const (
	// OutcomeFailed means the run returned an error.
	OutcomeFailed Outcome = iota

	// OutcomeSkippedNotLeader means the gate denied leadership.
	OutcomeSkippedNotLeader

	// OutcomeSkippedEmpty means no data node was registered.
	OutcomeSkippedEmpty

	// OutcomeSkippedUnchanged means a diff-based task found nothing to move.
	OutcomeSkippedUnchanged

	// OutcomeCommitted means a new table was committed.
	OutcomeCommitted
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkippedNotLeader:
		return "not_leader"
	case OutcomeSkippedEmpty:
		return "empty_membership"
	case OutcomeSkippedUnchanged:
		return "unchanged"
	case OutcomeCommitted:
		return "committed"
	default:
		return "failed"
	}
}

// TableStore is the slot table owner a task commits through.
// *slottable.Manager implements it.
type TableStore interface {
	Active() *types.SlotTable
	Refresh(ctx context.Context, table *types.SlotTable) error
}

// Deps are the collaborators of a task.
type Deps struct {
	Gate    types.LeadershipGate
	Members types.MembershipProvider
	Epochs  types.EpochGenerator
	Engine  *placement.Engine
	Tables  TableStore
	Logger  types.Logger
	Metrics types.MetricsCollector
}

// Task is one rebalance kind bound to its collaborators.
//
// Runs of the same Task are serialized; all placement state is local to a run.
type Task struct {
	kind Kind
	deps Deps
	mu   sync.Mutex
}

// New creates a task of the given kind.
//
// Returns:
//   - *Task: Ready task
//   - error: types.ErrUnknownTaskKind or an error naming a missing dependency
func New(kind Kind, deps Deps) (*Task, error) {
	if kind.String() == "unknown" {
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownTaskKind, int(kind))
	}

	switch {
	case deps.Gate == nil:
		return nil, errors.New("rebalance: leadership gate is required")
	case deps.Members == nil:
		return nil, errors.New("rebalance: membership provider is required")
	case deps.Epochs == nil:
		return nil, errors.New("rebalance: epoch generator is required")
	case deps.Engine == nil:
		return nil, errors.New("rebalance: placement engine is required")
	case deps.Tables == nil:
		return nil, errors.New("rebalance: table store is required")
	}

	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}

	return &Task{kind: kind, deps: deps}, nil
}

// Kind returns the task kind.
func (t *Task) Kind() Kind {
	return t.kind
}

// Run executes the task once.
//
// Not being leader and an empty membership are normal outcomes and return nil.
//
// Returns:
//   - error: Membership, placement or commit error (commit errors wrap
//     types.ErrCommitRejected)
func (t *Task) Run(ctx context.Context) error {
	_, err := t.RunWithOutcome(ctx)
	return err
}

// RunWithOutcome executes the task once and reports how it ended.
func (t *Task) RunWithOutcome(ctx context.Context) (Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	outcome, moved, err := t.run(ctx)
	t.deps.Metrics.RecordRebalance(t.kind.String(), outcome.String(), time.Since(start).Seconds())
	if outcome == OutcomeCommitted {
		t.deps.Metrics.RecordSlotsMoved(t.kind.String(), moved)
	}

	return outcome, err
}

func (t *Task) run(ctx context.Context) (Outcome, int, error) {
	log := t.deps.Logger

	if !t.deps.Gate.IsLeader(ctx) {
		log.Info("skipping rebalance: not the leader", "kind", t.kind)
		return OutcomeSkippedNotLeader, 0, nil
	}

	members, err := t.deps.Members.ClusterMembers(ctx)
	if err != nil {
		return OutcomeFailed, 0, fmt.Errorf("failed to read cluster membership: %w", err)
	}
	if len(types.UniqueNodes(members)) == 0 {
		log.Info("skipping rebalance: no data nodes registered", "kind", t.kind)
		return OutcomeSkippedEmpty, 0, nil
	}

	prev := t.deps.Tables.Active()
	next, err := t.compute(prev, members)
	if err != nil {
		return OutcomeFailed, 0, err
	}

	transfers := prev.Diff(next)
	if t.kind != KindFullReinit && prev != nil && len(transfers) == 0 {
		log.Debug("rebalance found nothing to move", "kind", t.kind, "epoch", prev.Epoch)
		return OutcomeSkippedUnchanged, 0, nil
	}

	if err := t.deps.Tables.Refresh(ctx, next); err != nil {
		return OutcomeFailed, 0, err
	}

	log.Info("rebalance committed",
		"kind", t.kind,
		"epoch", next.Epoch,
		"nodes", len(members),
		"slots_moved", len(transfers),
	)

	return OutcomeCommitted, len(transfers), nil
}

// compute builds the next table. The epoch is drawn only once membership is
// known to be usable.
func (t *Task) compute(prev *types.SlotTable, members []types.Node) (*types.SlotTable, error) {
	if _, err := t.deps.Engine.CheckMembership(members); err != nil {
		return nil, err
	}

	epoch := t.deps.Epochs.NextEpoch()

	if t.kind == KindFullReinit || prev == nil {
		return t.deps.Engine.Assign(members, epoch)
	}

	return t.deps.Engine.Reassign(prev, members, epoch, t.kind.mode())
}
