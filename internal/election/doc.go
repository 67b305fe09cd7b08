// Package election provides lease-based leader election for meta coordinators.
//
// NATSElection stores a single leader key in a JetStream KV bucket whose TTL
// is the lease duration:
//   - RequestLeadership creates the key atomically; only one participant wins.
//   - RenewLeadership updates the key at the held revision, so a participant
//     whose lease expired and was taken over cannot renew.
//   - ReleaseLeadership deletes the key for immediate failover.
//
// Gate adapts an ElectionAgent to the types.LeadershipGate consumed by the
// rebalance tasks. Store failures are logged and answered as "not leader".
//
// Renew at roughly a third of the bucket TTL. A crashed leader is replaced
// once its key expires.
package election
