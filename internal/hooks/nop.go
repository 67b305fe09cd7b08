// Package hooks provides default hook implementations.
package hooks

import (
	"context"

	"github.com/arloliu/slotmap/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// Used when no custom hooks are provided so callers never nil-check a hook.
type NopHooks struct{}

// NewNop creates hooks whose callbacks do nothing.
func NewNop() types.Hooks {
	h := &NopHooks{}
	return types.Hooks{
		OnTableCommitted:    h.OnTableCommitted,
		OnLeadershipChanged: h.OnLeadershipChanged,
		OnError:             h.OnError,
	}
}

// Fill returns a copy of h with nil callbacks replaced by no-ops.
func Fill(h *types.Hooks) *types.Hooks {
	out := NewNop()
	if h == nil {
		return &out
	}
	if h.OnTableCommitted != nil {
		out.OnTableCommitted = h.OnTableCommitted
	}
	if h.OnLeadershipChanged != nil {
		out.OnLeadershipChanged = h.OnLeadershipChanged
	}
	if h.OnError != nil {
		out.OnError = h.OnError
	}

	return &out
}

// OnTableCommitted is a no-op implementation.
func (h *NopHooks) OnTableCommitted(_ context.Context, _, _ *types.SlotTable) error {
	return nil
}

// OnLeadershipChanged is a no-op implementation.
func (h *NopHooks) OnLeadershipChanged(_ context.Context, _ bool) error {
	return nil
}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(_ context.Context, _ error) error {
	return nil
}
