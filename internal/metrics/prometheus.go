package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/slotmap/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	stateTransitions  *prometheus.CounterVec
	stateDuration     *prometheus.HistogramVec
	leadershipChanges prometheus.Counter
	isLeader          prometheus.Gauge

	rebalanceRuns     *prometheus.CounterVec
	rebalanceDuration *prometheus.HistogramVec
	slotsMoved        *prometheus.CounterVec

	commits         *prometheus.CounterVec
	commitDuration  prometheus.Histogram
	activeEpoch     prometheus.Gauge
	activeSlots     prometheus.Gauge
	subscriberDrops prometheus.Counter

	members    prometheus.Gauge
	heartbeats *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace ("slotmap" if empty)
//
// Returns:
//   - *PrometheusCollector: Collector ready for use
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "slotmap"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "state_transitions_total",
			Help:      "Total coordinator state transitions by source and target state.",
		}, []string{"from", "to"})
		p.stateDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "state_duration_seconds",
			Help:      "Time spent in a state before leaving it.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"state"})
		p.leadershipChanges = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "leadership_changes_total",
			Help:      "Total leadership gains and losses observed locally.",
		})
		p.isLeader = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "is_leader",
			Help:      "1 if this process holds leadership, 0 otherwise.",
		})

		p.rebalanceRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "rebalance",
			Name:      "runs_total",
			Help:      "Total rebalance task runs by kind and outcome.",
		}, []string{"kind", "outcome"})
		p.rebalanceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "rebalance",
			Name:      "duration_seconds",
			Help:      "Rebalance task run time by kind.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		}, []string{"kind"})
		p.slotsMoved = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "rebalance",
			Name:      "slots_moved_total",
			Help:      "Slots whose owners changed in committed tables, by task kind.",
		}, []string{"kind"})

		p.commits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "table",
			Name:      "commits_total",
			Help:      "Slot table commit attempts by result.",
		}, []string{"result"})
		p.commitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "table",
			Name:      "commit_duration_seconds",
			Help:      "Slot table commit round-trip time.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		})
		p.activeEpoch = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "table",
			Name:      "active_epoch",
			Help:      "Epoch of the locally active slot table.",
		})
		p.activeSlots = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "table",
			Name:      "active_slots",
			Help:      "Number of slots in the locally active slot table.",
		})
		p.subscriberDrops = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "table",
			Name:      "subscriber_drops_total",
			Help:      "Table notifications dropped because a subscriber was slow.",
		})

		p.members = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "nodes",
			Help:      "Live data nodes eligible to own slots.",
		})
		p.heartbeats = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "heartbeats_total",
			Help:      "Data node heartbeat publishes by result.",
		}, []string{"result"})

		p.reg.MustRegister(
			p.stateTransitions,
			p.stateDuration,
			p.leadershipChanges,
			p.isLeader,
			p.rebalanceRuns,
			p.rebalanceDuration,
			p.slotsMoved,
			p.commits,
			p.commitDuration,
			p.activeEpoch,
			p.activeSlots,
			p.subscriberDrops,
			p.members,
			p.heartbeats,
		)
	})
}

// RecordStateTransition records a coordinator state transition.
func (p *PrometheusCollector) RecordStateTransition(from, to types.State, duration float64) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	p.stateDuration.WithLabelValues(from.String()).Observe(duration)
}

// RecordLeadershipChange records a leadership gain (nodeID set) or loss (nodeID empty).
func (p *PrometheusCollector) RecordLeadershipChange(nodeID string) {
	p.ensureRegistered()
	p.leadershipChanges.Inc()
	if nodeID == "" {
		p.isLeader.Set(0)
	} else {
		p.isLeader.Set(1)
	}
}

// RecordRebalance records a finished rebalance task run.
func (p *PrometheusCollector) RecordRebalance(kind, outcome string, duration float64) {
	p.ensureRegistered()
	p.rebalanceRuns.WithLabelValues(kind, outcome).Inc()
	p.rebalanceDuration.WithLabelValues(kind).Observe(duration)
}

// RecordSlotsMoved records the number of slots that changed owners.
func (p *PrometheusCollector) RecordSlotsMoved(kind string, moved int) {
	p.ensureRegistered()
	p.slotsMoved.WithLabelValues(kind).Add(float64(moved))
}

// RecordCommit records a slot table commit attempt.
func (p *PrometheusCollector) RecordCommit(success bool, duration float64) {
	p.ensureRegistered()
	result := "failure"
	if success {
		result = "success"
	}
	p.commits.WithLabelValues(result).Inc()
	p.commitDuration.Observe(duration)
}

// RecordActiveTable records the epoch and size of the active table.
func (p *PrometheusCollector) RecordActiveTable(epoch int64, slots int) {
	p.ensureRegistered()
	p.activeEpoch.Set(float64(epoch))
	p.activeSlots.Set(float64(slots))
}

// RecordSubscriberDropped records a dropped table notification.
func (p *PrometheusCollector) RecordSubscriberDropped() {
	p.ensureRegistered()
	p.subscriberDrops.Inc()
}

// RecordMembers records the live data node count.
func (p *PrometheusCollector) RecordMembers(count int) {
	p.ensureRegistered()
	p.members.Set(float64(count))
}

// RecordHeartbeat records a heartbeat publish result. The address is not used
// as a label to keep cardinality bounded.
func (p *PrometheusCollector) RecordHeartbeat(_ string, success bool) {
	p.ensureRegistered()
	p.heartbeats.WithLabelValues(strconv.FormatBool(success)).Inc()
}
