package slotmap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/slotmap/internal/logging"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, 256, cfg.SlotCount)
	require.Equal(t, 2, cfg.ReplicaCount)
	require.Equal(t, 2*time.Second, cfg.HeartbeatInterval)
	require.Equal(t, 6*time.Second, cfg.HeartbeatTTL)
	require.Equal(t, 15*time.Second, cfg.ElectionTimeout)
	require.Equal(t, 10*time.Second, cfg.OperationTimeout)
	require.Equal(t, 5*time.Minute, cfg.Rebalance.Interval)
	require.Equal(t, RebalanceIncremental, cfg.Rebalance.PeriodicKind)
	require.Equal(t, "slotmap-table", cfg.KVBuckets.SlotTableBucket)
	require.NoError(t, cfg.Validate())
}

func TestSetDefaults(t *testing.T) {
	t.Run("applies defaults to empty config", func(t *testing.T) {
		cfg := Config{}
		SetDefaults(&cfg)

		require.Equal(t, 256, cfg.SlotCount)
		require.Equal(t, 2, cfg.ReplicaCount)
		require.Equal(t, 6*time.Second, cfg.HeartbeatTTL)
		require.Equal(t, "leader", cfg.KVBuckets.LeaderKey)
		require.Zero(t, cfg.Rebalance.Interval)
		require.NoError(t, cfg.Validate())
	})

	t.Run("derives heartbeat TTL from interval", func(t *testing.T) {
		cfg := Config{HeartbeatInterval: 5 * time.Second}
		SetDefaults(&cfg)

		require.Equal(t, 15*time.Second, cfg.HeartbeatTTL)
	})

	t.Run("preserves custom values", func(t *testing.T) {
		cfg := Config{
			NodeID:            "meta-1",
			SlotCount:         64,
			ReplicaCount:      1,
			HeartbeatInterval: time.Second,
			HeartbeatTTL:      4 * time.Second,
			KVBuckets:         KVBucketConfig{SlotTableBucket: "tables"},
		}
		SetDefaults(&cfg)

		require.Equal(t, "meta-1", cfg.NodeID)
		require.Equal(t, 64, cfg.SlotCount)
		require.Equal(t, 1, cfg.ReplicaCount)
		require.Equal(t, 4*time.Second, cfg.HeartbeatTTL)
		require.Equal(t, "tables", cfg.KVBuckets.SlotTableBucket)
		require.Equal(t, "slotmap-election", cfg.KVBuckets.ElectionBucket)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero slot count", func(c *Config) { c.SlotCount = 0 }},
		{"negative replicas", func(c *Config) { c.ReplicaCount = -1 }},
		{"replicas above slots", func(c *Config) { c.SlotCount = 2; c.ReplicaCount = 3 }},
		{"heartbeat ttl too short", func(c *Config) { c.HeartbeatTTL = c.HeartbeatInterval }},
		{"election shorter than operation", func(c *Config) { c.ElectionTimeout = c.OperationTimeout }},
		{"negative interval", func(c *Config) { c.Rebalance.Interval = -time.Second }},
		{"unknown periodic kind", func(c *Config) { c.Rebalance.PeriodicKind = RebalanceKind(9) }},
		{"missing bucket", func(c *Config) { c.KVBuckets.HeartbeatBucket = "" }},
		{"shared bucket", func(c *Config) { c.KVBuckets.HeartbeatBucket = c.KVBuckets.ElectionBucket }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfig_ValidateWithWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReplicaCount = 0
	cfg.Rebalance.Interval = time.Second
	cfg.Rebalance.PeriodicKind = RebalanceFullReinit

	// Warnings only; must not panic with the test logger.
	cfg.ValidateWithWarnings(logging.NewTest(t))
	require.NoError(t, cfg.Validate())
}

func TestConfig_YAML(t *testing.T) {
	yamlConfig := `
nodeId: meta-2
slotCount: 128
replicaCount: 1
heartbeatInterval: 3s
heartbeatTtl: 9s
electionTimeout: 12s
operationTimeout: 4s
startupTimeout: 45s
shutdownTimeout: 15s
rebalance:
  interval: 1m
  periodicKind: node-removal
  membershipDebounce: 250ms
kvBuckets:
  slotTableBucket: registry-table
`

	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(yamlConfig), &cfg))

	require.Equal(t, "meta-2", cfg.NodeID)
	require.Equal(t, 128, cfg.SlotCount)
	require.Equal(t, 3*time.Second, cfg.HeartbeatInterval)
	require.Equal(t, 12*time.Second, cfg.ElectionTimeout)
	require.Equal(t, time.Minute, cfg.Rebalance.Interval)
	require.Equal(t, RebalanceNodeRemoval, cfg.Rebalance.PeriodicKind)
	require.Equal(t, 250*time.Millisecond, cfg.Rebalance.MembershipDebounce)
	require.Equal(t, "registry-table", cfg.KVBuckets.SlotTableBucket)
}

func TestParseConfig(t *testing.T) {
	t.Run("fills defaults for partial yaml", func(t *testing.T) {
		cfg, err := ParseConfig([]byte("slotCount: 32\nheartbeatInterval: 5s\n"))
		require.NoError(t, err)

		require.Equal(t, 32, cfg.SlotCount)
		require.Equal(t, 15*time.Second, cfg.HeartbeatTTL)
		require.Equal(t, RebalanceIncremental, cfg.Rebalance.PeriodicKind)
		require.Equal(t, "slotmap-heartbeat", cfg.KVBuckets.HeartbeatBucket)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := ParseConfig([]byte("rebalance:\n  periodicKind: shuffle\n"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		_, err := ParseConfig([]byte("slotCount: -4\n"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slotmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodeId: meta-9\nreplicaCount: 1\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "meta-9", cfg.NodeID)
	require.Equal(t, 1, cfg.ReplicaCount)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()
	require.NoError(t, cfg.Validate())
	require.Less(t, cfg.ElectionTimeout, DefaultConfig().ElectionTimeout)
	require.Zero(t, cfg.Rebalance.Interval)
}
