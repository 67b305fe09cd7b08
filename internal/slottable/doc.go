// Package slottable holds the active slot table and commits new ones.
//
// A Manager owns the locally active table. On the leader, Refresh validates a
// freshly computed table, commits it through a types.Committer and only then
// makes it active; a failed commit leaves the previous table in place. On
// followers, Apply and Follow install tables replicated by the leader.
//
// KVCommitter stores the table in a NATS JetStream KV bucket as a
// snappy-compressed JSON record and uses revision-checked writes so two
// coordinators that both believe they lead cannot interleave commits.
// MemoryCommitter is an in-process implementation for tests and
// single-process deployments.
package slottable
