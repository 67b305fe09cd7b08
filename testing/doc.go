// Package testing provides test helpers for slotmap and for programs embedding it.
//
// It starts an in-process NATS server with JetStream so coordinators, the
// membership monitor and the KV committer can be exercised without Docker.
//
//	import slotmaptest "github.com/arloliu/slotmap/testing"
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := slotmaptest.StartEmbeddedNATS(t)
//	    kv := slotmaptest.CreateJetStreamKV(t, nc, "slotmap-table")
//	    _ = kv
//	}
package testing
