package slotmap

import (
	"log/slog"

	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Coordinator with optional dependencies.
type Option func(*coordinatorOptions)

type coordinatorOptions struct {
	electionAgent ElectionAgent
	gate          LeadershipGate
	members       MembershipProvider
	hooks         *Hooks
	metrics       MetricsCollector
	logger        Logger
}

// WithElectionAgent replaces the NATS KV election.
//
// Parameters:
//   - agent: ElectionAgent implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator
func WithElectionAgent(agent ElectionAgent) Option {
	return func(o *coordinatorOptions) {
		o.electionAgent = agent
	}
}

// WithLeadershipGate overrides the gate consulted by rebalance tasks and
// the slot table committer. The election loop still runs, but a task only
// commits when this gate reports leadership.
//
// Example:
//
//	coord, err := slotmap.NewCoordinator(cfg, nc,
//	    slotmap.WithLeadershipGate(myFencingGate))
func WithLeadershipGate(gate LeadershipGate) Option {
	return func(o *coordinatorOptions) {
		o.gate = gate
	}
}

// WithMembershipProvider replaces the heartbeat-backed membership.
//
// Membership-triggered rebalances need the heartbeat monitor and are
// disabled when a provider is set; scheduled and manual rebalances read
// this provider.
func WithMembershipProvider(provider MembershipProvider) Option {
	return func(o *coordinatorOptions) {
		o.members = provider
	}
}

// WithHooks sets lifecycle event hooks.
//
// Example:
//
//	hooks := &slotmap.Hooks{
//	    OnTableCommitted: func(ctx context.Context, prev, next *slotmap.SlotTable) error {
//	        return pushRoutes(next)
//	    },
//	}
//	coord, err := slotmap.NewCoordinator(cfg, nc, slotmap.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *coordinatorOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Example:
//
//	collector := slotmap.NewPrometheusMetrics(prometheus.DefaultRegisterer, "registry")
//	coord, err := slotmap.NewCoordinator(cfg, nc, slotmap.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *coordinatorOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
func WithLogger(logger Logger) Option {
	return func(o *coordinatorOptions) {
		o.logger = logger
	}
}

// NewPrometheusMetrics returns a MetricsCollector registering its collectors
// on reg under namespace. An empty namespace means "slotmap".
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}

// NewSlogLogger adapts a *slog.Logger to Logger. A nil logger uses slog.Default.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		return logging.NewSlogDefault()
	}

	return logging.NewSlog(logger)
}
