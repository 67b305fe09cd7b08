package epoch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerator_StrictlyIncreasing(t *testing.T) {
	g := New()

	prev := g.NextEpoch()
	for range 10_000 {
		next := g.NextEpoch()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestGenerator_FrozenClock(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	g := New(WithClock(func() time.Time { return fixed }))

	first := g.NextEpoch()
	require.Equal(t, FromTime(fixed), first)
	require.Equal(t, first+1, g.NextEpoch())
	require.Equal(t, first+2, g.NextEpoch())
	require.Equal(t, fixed, Time(g.Last()))
}

func TestGenerator_ClockMovesBackwards(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	g := New(WithClock(func() time.Time { return now }))

	before := g.NextEpoch()
	now = now.Add(-time.Hour)
	after := g.NextEpoch()

	require.Greater(t, after, before)
}

func TestGenerator_Observe(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	g := New(WithClock(func() time.Time { return fixed }))

	floor := FromTime(fixed.Add(time.Minute))
	g.Observe(floor)
	require.Equal(t, floor+1, g.NextEpoch())

	// a lower floor never moves the generator back
	g.Observe(1)
	require.Equal(t, floor+2, g.NextEpoch())
}

func TestGenerator_ConcurrentCallersGetUniqueValues(t *testing.T) {
	g := New()

	const (
		goroutines = 8
		perG       = 2_000
	)

	results := make([][]int64, goroutines)
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vals := make([]int64, 0, perG)
			for range perG {
				vals = append(vals, g.NextEpoch())
			}
			results[i] = vals
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]struct{}, goroutines*perG)
	for _, vals := range results {
		for j := 1; j < len(vals); j++ {
			require.Greater(t, vals[j], vals[j-1], "values seen by one caller must increase")
		}
		for _, v := range vals {
			_, dup := seen[v]
			require.False(t, dup, "epoch %d issued twice", v)
			seen[v] = struct{}{}
		}
	}
}
