package election

import (
	"context"

	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/types"
)

// Gate adapts an ElectionAgent to types.LeadershipGate.
//
// Every call asks the agent, so a lease lost between two calls is noticed on
// the second one.
type Gate struct {
	agent  types.ElectionAgent
	logger types.Logger
}

var _ types.LeadershipGate = (*Gate)(nil)

// NewGate creates a leadership gate over agent. A nil logger discards output.
func NewGate(agent types.ElectionAgent, logger types.Logger) *Gate {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Gate{agent: agent, logger: logger}
}

// IsLeader reports whether the agent still holds leadership.
// Store errors are logged and reported as false.
func (g *Gate) IsLeader(ctx context.Context) bool {
	ok, err := g.agent.IsLeader(ctx)
	if err != nil {
		g.logger.Warn("leadership check failed, treating as follower", "error", err)
		return false
	}

	return ok
}

// StaticGate is a LeadershipGate with a fixed answer. It suits single-node
// deployments and tests.
type StaticGate bool

// IsLeader returns the fixed answer.
func (s StaticGate) IsLeader(context.Context) bool {
	return bool(s)
}
