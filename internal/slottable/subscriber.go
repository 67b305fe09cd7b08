package slottable

import (
	"sync"

	"github.com/arloliu/slotmap/types"
)

// subscriber wraps a notification channel that may be closed concurrently.
type subscriber struct {
	ch     chan *types.SlotTable
	mu     sync.Mutex
	closed bool
}

// trySend delivers table without blocking and reports whether it was sent.
// A slow subscriber misses the update and gets the next one.
func (s *subscriber) trySend(table *types.SlotTable) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}

	select {
	case s.ch <- table:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
