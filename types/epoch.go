package types

// EpochGenerator produces version stamps for slot tables.
//
// Every value returned by NextEpoch is strictly greater than every value
// previously returned to any caller, including concurrent ones.
type EpochGenerator interface {
	// NextEpoch returns a new, strictly increasing epoch.
	NextEpoch() int64
}
