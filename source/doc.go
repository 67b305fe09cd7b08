// Package source provides built-in membership provider implementations.
//
//   - Static: Fixed list of data nodes, replaceable with Update
//
// The NATS heartbeat-backed provider lives in internal/membership and is
// wired by the coordinator. Custom providers satisfy types.MembershipProvider.
package source
