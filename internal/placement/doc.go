// Package placement computes slot tables from a membership list.
//
// Two computations are provided:
//
//   - Assign: full round-robin striping. A leader cursor starts at the first
//     node and a follower cursor at the last node; both advance modulo the
//     node count on every use, spreading leadership and replicas evenly.
//   - Reassign: diff-based recomputation from a previous table. Only slots
//     that referenced a departed node are touched; ModeIncremental also moves
//     leadership onto under-loaded (typically newly joined) nodes.
//
// The engine holds no state between calls. Cursors live in the call frame, so
// concurrent computations never share or corrupt a round-robin sequence.
//
// Placement rules:
//   - replicaCount must be smaller than the number of distinct nodes,
//     otherwise ErrInvalidConfiguration is returned and no table is built.
//   - When the follower cursor lands on the slot leader or on a node already
//     chosen for the slot, that node is skipped and the cursor moves on.
//   - Every slot written by a computation carries the table epoch; slots left
//     untouched by Reassign keep their previous epoch.
package placement
