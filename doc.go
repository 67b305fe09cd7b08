// Package slotmap decides which data node leads each slot of a registry
// keyspace and which nodes replicate it, and publishes that decision as a
// versioned slot table.
//
// Meta participants share a NATS JetStream deployment. One of them wins a
// KV-backed election and becomes the only writer of the slot table; the
// others follow the committed table and answer routing queries from it.
// Data nodes announce themselves with heartbeats, and the leader rebalances
// when the set of live nodes changes.
//
// # Quick Start
//
// A meta participant:
//
//	import "github.com/arloliu/slotmap"
//
//	cfg := slotmap.DefaultConfig()
//	cfg.NodeID = "meta-1"
//
//	coord, err := slotmap.NewCoordinator(cfg, natsConn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := coord.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer coord.Stop(context.Background())
//
//	slot, err := coord.Route("tenant-a/orders")
//
// A data node:
//
//	hb, err := slotmap.NewNodeHeartbeat(cfg, natsConn, "10.0.0.7:9600")
//	if err := hb.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer hb.Stop()
//
// # Placement
//
// A full reinit stripes leaders round-robin across the sorted membership and
// picks followers with a second cursor running from the last node, so with
// enough nodes no node follows a slot it leads. Incremental and node-removal
// rebalances start from the active table and only touch slots that
// reference departed nodes, plus leadership moves onto joined nodes for
// incremental runs.
//
// # Versioning
//
// Every table carries an epoch built from wall-clock milliseconds and a
// sequence. Epochs only grow: a new leader continues above the committed
// epoch, and the KV store rejects a write whose epoch does not exceed the
// stored one.
//
// # Architecture
//
// Participants progress through a state machine:
//
//	INIT → ELECTION → LEADER | FOLLOWER → SHUTDOWN
//
// See the examples/ directory for complete working examples.
package slotmap
