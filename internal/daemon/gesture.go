package daemon

import "time"

// gesture tracks multi-press gestures on the scan button.
//
//	idle
//	  └─ press ───→ pressed(count=1)
//	pressed(n)
//	  └─ release ─→ waiting(n, deadline=now+timeout)
//	waiting(n)
//	  ├─ press ───→ pressed(n+1)    (another press before the deadline)
//	  └─ deadline → expire() yields n, back to idle
//
// The deadline is anchored to the most recent release, so each press/release
// pair extends the window. At most one window is open at a time, and a
// window never survives a device detach (the daemon resets it).
type gesture struct {
	timeout time.Duration

	phase    gesturePhase
	count    int
	deadline time.Time
}

type gesturePhase int

const (
	gestureIdle gesturePhase = iota
	gesturePressed
	gestureWaiting
)

func (g *gesture) press() {
	switch g.phase {
	case gestureIdle:
		g.phase, g.count = gesturePressed, 1
	case gestureWaiting:
		g.phase, g.count = gesturePressed, g.count+1
	case gesturePressed:
		// Double down without an up; the poller missed a release. Keep
		// the current count.
	}
}

func (g *gesture) release(now time.Time) {
	if g.phase == gesturePressed {
		g.phase = gestureWaiting
		g.deadline = now.Add(g.timeout)
		return
	}
	g.phase, g.count = gestureIdle, 0
}

// expire reports the press count once the window deadline has passed, and
// resets to idle. It returns ok=false while no window is due.
func (g *gesture) expire(now time.Time) (count int, ok bool) {
	if g.phase != gestureWaiting || now.Before(g.deadline) {
		return 0, false
	}
	count = g.count
	g.phase, g.count = gestureIdle, 0
	return count, true
}

// waiting reports whether a window is open and pending expiry; the poller
// tightens its interval while this holds so expiry is detected promptly.
func (g *gesture) waiting() bool { return g.phase == gestureWaiting }

// reset discards any in-progress gesture, returning the discarded press
// count (0 when idle) so the caller can log it.
func (g *gesture) reset() int {
	count := g.count
	g.phase, g.count = gestureIdle, 0
	return count
}
