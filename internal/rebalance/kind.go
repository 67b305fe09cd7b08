package rebalance

import (
	"fmt"
	"strings"

	"github.com/arloliu/slotmap/internal/placement"
	"github.com/arloliu/slotmap/types"
)

// Kind selects the compute step of a task.
type Kind int

const (
	// KindIncremental repairs departed nodes and levels leadership onto
	// joined nodes. It is the zero value.
	KindIncremental Kind = iota

	// KindFullReinit rebuilds the whole table from the current membership.
	KindFullReinit

	// KindNodeRemoval only repairs slots owned by departed nodes.
	KindNodeRemoval
)

// String returns the kind name used in logs, metrics and configuration.
func (k Kind) String() string {
	switch k {
	case KindFullReinit:
		return "full_reinit"
	case KindIncremental:
		return "incremental"
	case KindNodeRemoval:
		return "node_removal"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name. Hyphens and case are ignored.
//
// Returns:
//   - Kind: Parsed kind
//   - error: types.ErrUnknownTaskKind for unrecognized names
func ParseKind(s string) (Kind, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "full_reinit", "full", "reinit":
		return KindFullReinit, nil
	case "incremental":
		return KindIncremental, nil
	case "node_removal", "removal":
		return KindNodeRemoval, nil
	default:
		return 0, fmt.Errorf("%w: %q", types.ErrUnknownTaskKind, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k.String() == "unknown" {
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownTaskKind, int(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so kinds can be set
// from YAML configuration.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed

	return nil
}

func (k Kind) mode() placement.Mode {
	if k == KindNodeRemoval {
		return placement.ModeNodeRemoval
	}

	return placement.ModeIncremental
}
