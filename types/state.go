package types

// State represents the coordinator lifecycle state.
//
// Normal progression:
//
//	StateInit → StateElection → StateFollower ⇄ StateLeader
//
// StateShutdown is terminal.
type State int

const (
	// StateInit is the initial state before any operations.
	StateInit State = iota

	// StateElection indicates the first election round is in progress.
	StateElection

	// StateFollower indicates the process replicates tables committed by another leader.
	StateFollower

	// StateLeader indicates the process computes and commits slot tables.
	StateLeader

	// StateShutdown indicates graceful shutdown is in progress.
	StateShutdown
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateElection:
		return "Election"
	case StateFollower:
		return "Follower"
	case StateLeader:
		return "Leader"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}
