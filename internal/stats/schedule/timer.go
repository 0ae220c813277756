package schedule

import "time"

// Timer decides when a sampling cycle is due. A zero interval disables
// sampling. A new timer is primed so the first Advance fires at once.
type Timer struct {
	interval time.Duration
	elapsed  time.Duration
}

func NewTimer(interval time.Duration) *Timer {
	return &Timer{interval: interval, elapsed: interval}
}

func (t *Timer) Interval() time.Duration { return t.interval }

// SetInterval changes the interval without resetting accumulated time.
func (t *Timer) SetInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.interval = d
}

// Advance adds dt and reports whether a cycle is due. A due cycle resets the
// accumulator. Nothing accumulates while sampling is disabled.
func (t *Timer) Advance(dt time.Duration) bool {
	if t.interval == 0 {
		return false
	}
	t.elapsed += dt
	if t.elapsed < t.interval {
		return false
	}
	t.elapsed = 0
	return true
}

// Prime makes the next Advance fire.
func (t *Timer) Prime() { t.elapsed = t.interval }
