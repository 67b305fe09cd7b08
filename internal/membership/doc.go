// Package membership tracks live data nodes through NATS KV heartbeats.
//
// Data nodes run a Publisher that writes a Record under
// "<prefix>.<token>" every heartbeat interval. The heartbeat bucket's TTL
// removes the key of a node that stops publishing, and Stop deletes it
// immediately on a clean shutdown.
//
// The meta leader runs a Monitor, which implements types.MembershipProvider
// by scanning those keys. The Monitor also watches the bucket (fast path,
// debounced) and polls it every TTL/2 (fallback), invoking a callback when
// the set of live addresses changes.
package membership
