package slotmap

import "github.com/arloliu/slotmap/types"

// Sentinel errors returned by the Coordinator and its components.
//
// They are the same values as in the types package, so errors.Is matches
// either name.
var (
	ErrInvalidConfig          = types.ErrInvalidConfig
	ErrNATSConnectionRequired = types.ErrNATSConnectionRequired
	ErrAlreadyStarted         = types.ErrAlreadyStarted
	ErrNotStarted             = types.ErrNotStarted
	ErrConnectivity           = types.ErrConnectivity

	ErrNotLeader            = types.ErrNotLeader
	ErrEmptyMembership      = types.ErrEmptyMembership
	ErrInvalidConfiguration = types.ErrInvalidConfiguration
	ErrUnknownTaskKind      = types.ErrUnknownTaskKind

	ErrCommitRejected = types.ErrCommitRejected
	ErrStaleEpoch     = types.ErrStaleEpoch
	ErrInvalidTable   = types.ErrInvalidTable
	ErrNoTable        = types.ErrNoTable
	ErrSlotNotFound   = types.ErrSlotNotFound
)
