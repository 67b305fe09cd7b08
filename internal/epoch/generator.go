// Package epoch generates strictly increasing slot table versions.
//
// An epoch packs a wall-clock millisecond timestamp in the high bits and a
// 12-bit sequence in the low bits:
//
//	epoch = unixMillis<<12 | sequence
//
// so epochs stay roughly comparable with wall-clock time (see Time) while
// remaining unique under rapid or concurrent calls. When the clock stalls or
// moves backwards the generator keeps incrementing from the last value it
// issued.
package epoch

import (
	"sync/atomic"
	"time"

	"github.com/arloliu/slotmap/types"
)

// SequenceBits is the number of low bits reserved for the per-millisecond sequence.
const SequenceBits = 12

// Generator issues strictly increasing epochs. It is safe for concurrent use.
type Generator struct {
	last atomic.Int64
	now  func() time.Time
}

// Compile-time assertion that Generator implements EpochGenerator.
var _ types.EpochGenerator = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a new epoch generator.
//
// Returns:
//   - *Generator: Generator starting from the current wall-clock time
func New(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// NextEpoch returns an epoch strictly greater than every epoch previously
// returned by this generator or passed to Observe.
func (g *Generator) NextEpoch() int64 {
	candidate := FromTime(g.now())
	for {
		last := g.last.Load()
		next := candidate
		if next <= last {
			next = last + 1
		}
		if g.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// Observe raises the generator floor so later epochs exceed floor.
//
// A new leader calls Observe with the highest committed epoch before its
// first rebalance, which keeps versions increasing across leader changes even
// when the new leader's clock lags behind the old one.
func (g *Generator) Observe(floor int64) {
	for {
		last := g.last.Load()
		if floor <= last {
			return
		}
		if g.last.CompareAndSwap(last, floor) {
			return
		}
	}
}

// Last returns the most recently issued or observed epoch.
func (g *Generator) Last() int64 {
	return g.last.Load()
}

// FromTime returns the smallest epoch for the millisecond containing t.
func FromTime(t time.Time) int64 {
	return t.UnixMilli() << SequenceBits
}

// Time recovers the wall-clock millisecond encoded in an epoch.
func Time(e int64) time.Time {
	return time.UnixMilli(e >> SequenceBits)
}
