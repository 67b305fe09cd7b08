package testing

import (
	"testing"

	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/types"
)

// NewTestLogger returns a logger that writes through t.Logf, so output only
// shows for failing or verbose tests.
func NewTestLogger(t testing.TB) types.Logger {
	return logging.NewTest(t)
}
