// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/arloliu/slotmap/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. It is the default collector when none is configured.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_, _ types.State, _ float64) {}

// RecordLeadershipChange discards the leadership change metric.
func (n *NopMetrics) RecordLeadershipChange(_ string) {}

// RecordRebalance discards the rebalance metric.
func (n *NopMetrics) RecordRebalance(_, _ string, _ float64) {}

// RecordSlotsMoved discards the moved-slots metric.
func (n *NopMetrics) RecordSlotsMoved(_ string, _ int) {}

// RecordCommit discards the commit metric.
func (n *NopMetrics) RecordCommit(_ bool, _ float64) {}

// RecordActiveTable discards the active table metric.
func (n *NopMetrics) RecordActiveTable(_ int64, _ int) {}

// RecordSubscriberDropped discards the dropped notification metric.
func (n *NopMetrics) RecordSubscriberDropped() {}

// RecordMembers discards the membership size metric.
func (n *NopMetrics) RecordMembers(_ int) {}

// RecordHeartbeat discards the heartbeat metric.
func (n *NopMetrics) RecordHeartbeat(_ string, _ bool) {}
