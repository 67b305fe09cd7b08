package membership

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/types"
)

// Publisher errors.
var (
	ErrPublisherNotStarted     = errors.New("publisher not started")
	ErrPublisherAlreadyStarted = errors.New("publisher already started")
	ErrNoAddress               = errors.New("node address not set")
)

// Publisher registers a data node by publishing periodic heartbeats to NATS KV.
//
// The KV bucket should have a TTL of about 3x the interval so a node is
// dropped after three missed heartbeats.
type Publisher struct {
	kv       jetstream.KeyValue
	prefix   string
	address  string
	interval time.Duration
	metrics  types.MetricsCollector
	logger   types.Logger

	mu         sync.Mutex
	started    bool
	registered time.Time
	stopCh     chan struct{}
	doneCh     chan struct{}
	ticker     *time.Ticker
}

// NewPublisher creates a heartbeat publisher.
//
// Parameters:
//   - kv: Heartbeat KV bucket
//   - prefix: Key prefix (e.g. "node")
//   - interval: Heartbeat interval
//
// Returns:
//   - *Publisher: New publisher; call SetAddress then Start
//
// Example:
//
//	pub := membership.NewPublisher(kv, "node", 2*time.Second)
//	pub.SetAddress("10.0.0.7:9600")
//	if err := pub.Start(ctx); err != nil { /* handle */ }
//	defer pub.Stop()
func NewPublisher(kv jetstream.KeyValue, prefix string, interval time.Duration) *Publisher {
	return &Publisher{
		kv:       kv,
		prefix:   prefix,
		interval: interval,
		logger:   logging.NewNop(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetAddress sets the node address to register. Must be called before Start.
func (p *Publisher) SetAddress(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.address = address
}

// SetMetrics sets the metrics collector. Optional.
func (p *Publisher) SetMetrics(metrics types.MetricsCollector) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics = metrics
}

// SetLogger sets the logger. Optional.
func (p *Publisher) SetLogger(logger types.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if logger != nil {
		p.logger = logger
	}
}

// Start publishes the first heartbeat synchronously, then keeps publishing
// in the background until Stop.
//
// Returns:
//   - error: ErrPublisherAlreadyStarted, ErrNoAddress, or the first publish error
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPublisherAlreadyStarted
	}
	if p.address == "" {
		return ErrNoAddress
	}

	p.registered = time.Now().UTC()
	if err := p.publish(ctx); err != nil {
		return fmt.Errorf("failed to publish initial heartbeat: %w", err)
	}

	p.started = true
	p.ticker = time.NewTicker(p.interval)
	go p.publishLoop()

	return nil
}

// Stop stops publishing and deletes the heartbeat key so the node leaves the
// membership immediately instead of after the TTL.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrPublisherNotStarted
	}

	p.ticker.Stop()
	close(p.stopCh)
	p.started = false
	p.mu.Unlock()

	<-p.doneCh

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.kv.Delete(ctx, Key(p.prefix, p.address)); err != nil {
		return fmt.Errorf("stopped but failed to delete heartbeat: %w", err)
	}

	return nil
}

// Address returns the registered address.
func (p *Publisher) Address() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.address
}

// IsStarted reports whether the publisher is running.
func (p *Publisher) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.started
}

func (p *Publisher) publishLoop() {
	defer close(p.doneCh)

	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			p.mu.Lock()
			err := p.publish(ctx)
			metrics, logger, address := p.metrics, p.logger, p.address
			p.mu.Unlock()
			cancel()

			if err != nil {
				logger.Warn("heartbeat publish failed", "address", address, "error", err)
			}
			if metrics != nil {
				metrics.RecordHeartbeat(address, err == nil)
			}
		}
	}
}

// publish writes the heartbeat record. Caller holds mu.
func (p *Publisher) publish(ctx context.Context) error {
	value, err := encodeRecord(Record{
		Address:      p.address,
		RegisteredAt: p.registered,
		HeartbeatAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if _, err := p.kv.Put(ctx, Key(p.prefix, p.address), value); err != nil {
		return fmt.Errorf("failed to publish heartbeat for %s: %w", p.address, err)
	}

	return nil
}
