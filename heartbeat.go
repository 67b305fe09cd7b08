package slotmap

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/internal/membership"
	"github.com/arloliu/slotmap/internal/metrics"
)

// NodeHeartbeat registers a data node in the membership read by the leader.
//
// A data node runs one NodeHeartbeat for its advertised address. The node
// joins the membership on Start and leaves it on Stop, or HeartbeatTTL
// after its process dies.
type NodeHeartbeat struct {
	cfg       Config
	conn      *nats.Conn
	address   string
	publisher *membership.Publisher
	logger    Logger
	metrics   MetricsCollector
}

// NewNodeHeartbeat creates a heartbeat for address. Only the logger and
// metrics options apply.
//
// Returns:
//   - *NodeHeartbeat: Heartbeat ready to Start
//   - error: ErrNATSConnectionRequired, ErrInvalidConfig, or an empty address
func NewNodeHeartbeat(cfg Config, conn *nats.Conn, address string, opts ...Option) (*NodeHeartbeat, error) {
	if conn == nil {
		return nil, ErrNATSConnectionRequired
	}
	if address == "" {
		return nil, fmt.Errorf("%w: node address is required", ErrInvalidConfig)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &coordinatorOptions{}
	for _, opt := range opts {
		opt(options)
	}

	h := &NodeHeartbeat{
		cfg:     cfg,
		conn:    conn,
		address: address,
		logger:  options.logger,
		metrics: options.metrics,
	}
	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	if h.metrics == nil {
		h.metrics = metrics.NewNop()
	}

	return h, nil
}

// Start opens the heartbeat bucket and publishes the first heartbeat.
func (h *NodeHeartbeat) Start(ctx context.Context) error {
	if h.publisher != nil {
		return ErrAlreadyStarted
	}

	js, err := jetstream.New(h.conn)
	if err != nil {
		return fmt.Errorf("failed to create jetstream context: %w", err)
	}

	kv, err := ensureKVBucket(ctx, js, h.cfg.KVBuckets.HeartbeatBucket, h.cfg.HeartbeatTTL)
	if err != nil {
		return err
	}

	pub := membership.NewPublisher(kv, h.cfg.KVBuckets.HeartbeatPrefix, h.cfg.HeartbeatInterval)
	pub.SetAddress(h.address)
	pub.SetLogger(h.logger)
	pub.SetMetrics(h.metrics)

	if err := pub.Start(ctx); err != nil {
		return err
	}
	h.publisher = pub

	h.logger.Info("node heartbeat started", "address", h.address)

	return nil
}

// Stop stops publishing and removes the node from the membership.
func (h *NodeHeartbeat) Stop() error {
	if h.publisher == nil {
		return ErrNotStarted
	}

	err := h.publisher.Stop()
	h.publisher = nil

	return err
}

// Address returns the registered address.
func (h *NodeHeartbeat) Address() string {
	return h.address
}
