package rebalance

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/slotmap/types"
)

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"full_reinit":   KindFullReinit,
		"Full-Reinit":   KindFullReinit,
		"incremental":   KindIncremental,
		"node_removal":  KindNodeRemoval,
		" node-removal": KindNodeRemoval,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
		require.Equal(t, want, mustParse(t, got.String()))
	}

	_, err := ParseKind("shuffle")
	require.ErrorIs(t, err, types.ErrUnknownTaskKind)
}

func mustParse(t *testing.T, s string) Kind {
	t.Helper()

	k, err := ParseKind(s)
	require.NoError(t, err)

	return k
}

func TestKind_YAML(t *testing.T) {
	var cfg struct {
		Kind Kind `yaml:"kind"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("kind: node_removal\n"), &cfg))
	require.Equal(t, KindNodeRemoval, cfg.Kind)

	require.Error(t, yaml.Unmarshal([]byte("kind: bogus\n"), &cfg))

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.Equal(t, "kind: node_removal\n", string(out))
}

func TestOutcome_String(t *testing.T) {
	require.Equal(t, "not_leader", OutcomeSkippedNotLeader.String())
	require.Equal(t, "empty_membership", OutcomeSkippedEmpty.String())
	require.Equal(t, "unchanged", OutcomeSkippedUnchanged.String())
	require.Equal(t, "committed", OutcomeCommitted.String())
	require.Equal(t, "failed", OutcomeFailed.String())
}
