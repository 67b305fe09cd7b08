package slotmap

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// KVBucketConfig configures the NATS JetStream KV buckets and key names.
type KVBucketConfig struct {
	// ElectionBucket holds the leader key. Its TTL is Config.ElectionTimeout.
	ElectionBucket string `yaml:"electionBucket" validate:"required"`

	// HeartbeatBucket holds data node heartbeats. Its TTL is Config.HeartbeatTTL.
	HeartbeatBucket string `yaml:"heartbeatBucket" validate:"required"`

	// SlotTableBucket holds the committed slot table. It has no TTL.
	SlotTableBucket string `yaml:"slotTableBucket" validate:"required"`

	// LeaderKey is the key contended for in ElectionBucket.
	LeaderKey string `yaml:"leaderKey" validate:"required"`

	// HeartbeatPrefix prefixes every heartbeat key.
	HeartbeatPrefix string `yaml:"heartbeatPrefix" validate:"required"`

	// SlotTablePrefix prefixes the slot table key.
	SlotTablePrefix string `yaml:"slotTablePrefix" validate:"required"`
}

// RebalanceConfig controls when the leader recomputes the slot table.
type RebalanceConfig struct {
	// Interval is the period of the scheduled rebalance. 0 disables it.
	Interval time.Duration `yaml:"interval" validate:"gte=0"`

	// PeriodicKind is the task kind run on Interval.
	// Default: incremental (the zero value)
	PeriodicKind RebalanceKind `yaml:"periodicKind"`

	// MembershipDebounce coalesces heartbeat watch events before the
	// membership is rescanned.
	MembershipDebounce time.Duration `yaml:"membershipDebounce" validate:"gte=0"`

	// DisableMembershipTrigger stops membership changes from triggering
	// rebalances. Scheduled and manual rebalances still run.
	DisableMembershipTrigger bool `yaml:"disableMembershipTrigger"`
}

// Config is the configuration for the Coordinator.
//
// All duration fields accept Go duration strings like "30s", "5m", "1h".
type Config struct {
	// NodeID identifies this meta process in the election.
	// Empty means a random UUID is generated at construction.
	NodeID string `yaml:"nodeId"`

	// SlotCount is the number of slots the keyspace is split into.
	// Default: 256
	SlotCount int `yaml:"slotCount" validate:"gte=1,lte=65536"`

	// ReplicaCount is the number of followers per slot. SetDefaults treats 0
	// as unset, so leader-only tables need ReplicaCount 0 set after it runs.
	// Every rebalance fails
	// with ErrInvalidConfiguration while fewer than ReplicaCount+1 data nodes
	// are live.
	// Default: 2
	ReplicaCount int `yaml:"replicaCount" validate:"gte=0,ltefield=SlotCount"`

	// HeartbeatInterval is how often data nodes publish heartbeats.
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval" validate:"gt=0"`

	// HeartbeatTTL is how long a heartbeat stays valid. A node is dropped
	// from the membership once its last heartbeat is older than this.
	// Recommended: 3x HeartbeatInterval.
	HeartbeatTTL time.Duration `yaml:"heartbeatTtl" validate:"gt=0"`

	// ElectionTimeout is the leader lease. The leader renews every
	// ElectionTimeout/3 and a crashed leader is replaced after it expires.
	ElectionTimeout time.Duration `yaml:"electionTimeout" validate:"gt=0"`

	// OperationTimeout bounds a single KV operation.
	OperationTimeout time.Duration `yaml:"operationTimeout" validate:"gt=0"`

	// StartupTimeout bounds bucket creation and the first election round.
	StartupTimeout time.Duration `yaml:"startupTimeout" validate:"gt=0"`

	// ShutdownTimeout bounds leadership release and cleanup.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gt=0"`

	// Rebalance controls scheduled and membership-triggered rebalances.
	Rebalance RebalanceConfig `yaml:"rebalance"`

	// KVBuckets controls NATS JetStream KV bucket configuration.
	KVBuckets KVBucketConfig `yaml:"kvBuckets"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		SlotCount:         256,
		ReplicaCount:      2,
		HeartbeatInterval: 2 * time.Second,
		HeartbeatTTL:      6 * time.Second,
		ElectionTimeout:   15 * time.Second,
		OperationTimeout:  10 * time.Second,
		StartupTimeout:    30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		Rebalance: RebalanceConfig{
			Interval:           5 * time.Minute,
			PeriodicKind:       RebalanceIncremental,
			MembershipDebounce: 100 * time.Millisecond,
		},
		KVBuckets: KVBucketConfig{
			ElectionBucket:  "slotmap-election",
			HeartbeatBucket: "slotmap-heartbeat",
			SlotTableBucket: "slotmap-table",
			LeaderKey:       "leader",
			HeartbeatPrefix: "node",
			SlotTablePrefix: "slottable",
		},
	}
}

// SetDefaults fills zero-valued fields with production defaults.
//
// Rebalance.Interval is left alone since 0 disables the scheduled rebalance.
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.SlotCount == 0 {
		cfg.SlotCount = defaults.SlotCount
	}
	if cfg.ReplicaCount == 0 {
		cfg.ReplicaCount = defaults.ReplicaCount
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if cfg.HeartbeatTTL == 0 {
		cfg.HeartbeatTTL = 3 * cfg.HeartbeatInterval
	}
	if cfg.ElectionTimeout == 0 {
		cfg.ElectionTimeout = defaults.ElectionTimeout
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaults.StartupTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.Rebalance.MembershipDebounce == 0 {
		cfg.Rebalance.MembershipDebounce = defaults.Rebalance.MembershipDebounce
	}

	b := &cfg.KVBuckets
	if b.ElectionBucket == "" {
		b.ElectionBucket = defaults.KVBuckets.ElectionBucket
	}
	if b.HeartbeatBucket == "" {
		b.HeartbeatBucket = defaults.KVBuckets.HeartbeatBucket
	}
	if b.SlotTableBucket == "" {
		b.SlotTableBucket = defaults.KVBuckets.SlotTableBucket
	}
	if b.LeaderKey == "" {
		b.LeaderKey = defaults.KVBuckets.LeaderKey
	}
	if b.HeartbeatPrefix == "" {
		b.HeartbeatPrefix = defaults.KVBuckets.HeartbeatPrefix
	}
	if b.SlotTablePrefix == "" {
		b.SlotTablePrefix = defaults.KVBuckets.SlotTablePrefix
	}
}

// Validate checks configuration constraints.
//
// Field ranges are checked through struct tags, then the cross-field rules:
//   - HeartbeatTTL >= 2 * HeartbeatInterval (allow one missed heartbeat)
//   - ElectionTimeout > OperationTimeout (a renewal fits in the lease)
//   - PeriodicKind is a known kind
//   - bucket names are distinct
//
// Returns:
//   - error: ErrInvalidConfig wrapping the first violation, nil if valid
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, formatValidationError(err))
	}

	if cfg.HeartbeatTTL < 2*cfg.HeartbeatInterval {
		return fmt.Errorf("%w: HeartbeatTTL (%v) must be >= 2*HeartbeatInterval (%v) to allow one missed heartbeat",
			ErrInvalidConfig, cfg.HeartbeatTTL, cfg.HeartbeatInterval)
	}

	if cfg.ElectionTimeout <= cfg.OperationTimeout {
		return fmt.Errorf("%w: ElectionTimeout (%v) is too short for OperationTimeout (%v); renewals would outlive the lease",
			ErrInvalidConfig, cfg.ElectionTimeout, cfg.OperationTimeout)
	}

	if cfg.Rebalance.PeriodicKind.String() == "unknown" {
		return fmt.Errorf("%w: unknown Rebalance.PeriodicKind %d", ErrInvalidConfig, int(cfg.Rebalance.PeriodicKind))
	}

	b := cfg.KVBuckets
	if b.ElectionBucket == b.HeartbeatBucket || b.ElectionBucket == b.SlotTableBucket || b.HeartbeatBucket == b.SlotTableBucket {
		return fmt.Errorf("%w: KV bucket names must be distinct (election=%q heartbeat=%q table=%q)",
			ErrInvalidConfig, b.ElectionBucket, b.HeartbeatBucket, b.SlotTableBucket)
	}

	return nil
}

// ValidateWithWarnings logs warnings for legal but risky values.
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.ReplicaCount == 0 {
		logger.Warn("ReplicaCount is 0, slots have no followers and a node loss loses data")
	}

	if cfg.Rebalance.Interval > 0 && cfg.Rebalance.PeriodicKind == RebalanceFullReinit {
		logger.Warn(
			"periodic full reinit rebuilds every slot and may move most of them",
			"interval", cfg.Rebalance.Interval,
			"recommended", RebalanceIncremental.String(),
		)
	}

	if cfg.Rebalance.Interval > 0 && cfg.Rebalance.Interval < 10*time.Second {
		logger.Warn(
			"Rebalance.Interval is very short",
			"interval", cfg.Rebalance.Interval,
			"recommended", "1m or higher",
		)
	}

	if cfg.HeartbeatTTL < 3*cfg.HeartbeatInterval {
		logger.Warn(
			"HeartbeatTTL is below recommended 3x HeartbeatInterval",
			"heartbeatTTL", cfg.HeartbeatTTL,
			"recommended", 3*cfg.HeartbeatInterval,
		)
	}
}

// LoadConfig reads a YAML configuration file, applies defaults and validates it.
//
// Parameters:
//   - path: Path to the YAML file
//
// Returns:
//   - Config: Loaded configuration
//   - error: Read, parse or validation error
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig is LoadConfig for in-memory YAML. Zero-valued fields are
// filled by SetDefaults.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// TestConfig returns a configuration with timings suited to tests.
//
// Use DefaultConfig for production deployments.
//
// Example:
//
//	cfg := slotmap.TestConfig()
//	cfg.SlotCount = 8
//	coord, err := slotmap.NewCoordinator(cfg, nc)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.SlotCount = 16
	cfg.ReplicaCount = 1
	cfg.HeartbeatInterval = 200 * time.Millisecond
	cfg.HeartbeatTTL = 600 * time.Millisecond
	cfg.ElectionTimeout = 3 * time.Second
	cfg.OperationTimeout = 2 * time.Second
	cfg.StartupTimeout = 5 * time.Second
	cfg.ShutdownTimeout = 2 * time.Second
	cfg.Rebalance.Interval = 0
	cfg.Rebalance.MembershipDebounce = 20 * time.Millisecond

	return cfg
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", fe.Namespace(), fe.Tag()))
		}
	}

	return errors.New(strings.Join(msgs, "; "))
}
