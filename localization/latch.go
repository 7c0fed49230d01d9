package localization

import (
	"go.uber.org/atomic"
)

// Latch holds the most recent value written to it. One goroutine writes and another reads; the
// reader always sees a complete value and the last write wins. Values from different latches are
// not aligned in time.
type Latch[T any] struct {
	latest atomic.Pointer[T]
	writes atomic.Uint64
}

// Store replaces the latched value.
func (l *Latch[T]) Store(v T) {
	l.latest.Store(&v)
	l.writes.Inc()
}

// Load returns the latched value and whether anything was ever stored.
func (l *Latch[T]) Load() (T, bool) {
	if p := l.latest.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Writes returns how many values have been stored.
func (l *Latch[T]) Writes() uint64 {
	return l.writes.Load()
}

// Inputs are the latched slots the input callbacks write and the tick reads.
type Inputs struct {
	Odometry         Latch[Odometry]
	GroundTruthPose  Latch[PoseStamped]
	GroundTruthTwist Latch[TwistStamped]
}
