// Package daemon drives the S1500 event loop: an outer device-presence
// watcher gating an inner status poller, edge detection over consecutive
// hardware snapshots, gesture aggregation of rapid button presses, and
// dispatch of events to an external handler with exclusive-USB handoff.
//
// The core is single-threaded cooperative: presence watching and status
// polling form one supervised loop with a nested sub-loop, and the gesture
// deadline is checked on each poll tick. The only entity holding the USB
// handle at any instant is either this loop or the handler child process
// after the loop has explicitly released it.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/s1500tools/s1500d/internal/protocol"
)

// Mode selects what happens to detected events. Exactly one mode is active
// per process lifetime, fixed at startup.
type Mode int

const (
	// ModeLogOnly logs events and runs no handler.
	ModeLogOnly Mode = iota
	// ModeLegacy runs the handler with the raw event name on every event.
	ModeLegacy
	// ModeConfig aggregates button presses into gestures and dispatches
	// resolved profiles; non-button events pass through unchanged.
	ModeConfig
)

// Conn is a claimed scanner handle as the loop sees it. *scanner.Device
// implements it; tests script a fake.
type Conn interface {
	HWStatus(ctx context.Context) (protocol.Snapshot, error)
	Close() error
}

// Opener enumerates and claims the device. It returns (nil, nil) while the
// device is absent; errors are logged and likewise treated as absence.
type Opener interface {
	Open(ctx context.Context) (Conn, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Conn, error)

func (f OpenerFunc) Open(ctx context.Context) (Conn, error) { return f(ctx) }

// Options carries the immutable per-run configuration of the loop.
type Options struct {
	Mode    Mode
	Handler string // handler script path; unused in ModeLogOnly

	// GestureTimeout is the debounce window measured from the most recent
	// button release; Profiles maps a press count to the profile name the
	// handler receives. Both apply to ModeConfig only.
	GestureTimeout time.Duration
	Profiles       map[int]string

	PollInterval      time.Duration // protocol-mandated ~100ms tick
	FastPollInterval  time.Duration // tick while a gesture window is open
	ReconnectInterval time.Duration // enumeration retry while absent
}

// maxTransientFailures bounds how many consecutive transfer timeouts are
// retried before the device is presumed detached.
const maxTransientFailures = 2

// Daemon is the event-detection engine. All mutable loop state lives in a
// loopState threaded through the tick body; Daemon itself is read-only
// after New.
type Daemon struct {
	opts Options
	open Opener
	run  Runner
	log  *slog.Logger

	// Clock and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(opts Options, open Opener, run Runner, logger *slog.Logger) *Daemon {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.FastPollInterval <= 0 {
		opts.FastPollInterval = 20 * time.Millisecond
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 2 * time.Second
	}
	if opts.GestureTimeout <= 0 {
		opts.GestureTimeout = 400 * time.Millisecond
	}
	return &Daemon{
		opts:  opts,
		open:  open,
		run:   run,
		log:   logger,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// loopState is the daemon's mutable state: current presence, the previous
// accepted snapshot (diff baseline), and the gesture counter.
type loopState struct {
	present bool
	prev    *protocol.Snapshot
	gesture gesture
}

// Run watches device presence and polls hardware status until ctx is
// cancelled. It never returns an error for protocol or presence faults;
// a disconnected scanner is normal operation.
func (d *Daemon) Run(ctx context.Context) error {
	st := &loopState{gesture: gesture{timeout: d.opts.GestureTimeout}}

	for ctx.Err() == nil {
		conn, err := d.open.Open(ctx)
		if err != nil {
			d.log.Warn("usb open failed", "error", err)
		}
		if conn == nil {
			if st.present {
				d.deviceLeft(ctx, st)
			}
			if d.sleep(ctx, d.opts.ReconnectInterval) != nil {
				break
			}
			continue
		}

		if !st.present {
			st.present = true
			d.log.Info(DeviceArrived.String())
			if d.opts.Mode != ModeLogOnly {
				// Handoff discipline applies to lifecycle events too: the
				// handle is released before the handler starts.
				_ = conn.Close()
				d.runHandler(ctx, DeviceArrived.String())
				continue // reclaim on the next pass
			}
		}

		d.pollLoop(ctx, conn, st)
		// pollLoop has closed the connection; whether the device truly
		// left is decided by the next open attempt, so a transient
		// transport hiccup does not fabricate a left/arrived pair.
	}
	return nil
}

// deviceLeft records a detach: the diff baseline and any open gesture
// window are discarded before the handler is notified.
func (d *Daemon) deviceLeft(ctx context.Context, st *loopState) {
	st.present = false
	st.prev = nil
	if n := st.gesture.reset(); n > 0 {
		d.log.Info("gesture discarded by detach", "presses", n)
	}
	d.log.Info(DeviceLeft.String())
	if d.opts.Mode != ModeLogOnly {
		d.runHandler(ctx, DeviceLeft.String())
	}
}

// pollLoop ticks GET_HW_STATUS while the device is present. It returns
// after closing conn, either because the device is presumed detached or
// because ctx was cancelled.
func (d *Daemon) pollLoop(ctx context.Context, conn Conn, st *loopState) {
	failures := 0

	for {
		if ctx.Err() != nil {
			_ = conn.Close()
			return
		}

		// Gesture deadline first, so an expired window resolves within
		// one tick of its deadline.
		if count, ok := st.gesture.expire(d.now()); ok {
			profile, mapped := d.opts.Profiles[count]
			if !mapped {
				d.log.Info("no profile mapped, ignoring", "presses", count)
			} else {
				d.log.Info("scan", "profile", profile, "presses", count)
				conn = d.handoff(ctx, conn, st, "scan", profile)
				if conn == nil {
					return
				}
			}
		}

		snap, err := conn.HWStatus(ctx)
		if err != nil {
			var merr *protocol.MalformedResponseError
			var terr interface{ Timeout() bool }
			switch {
			case ctx.Err() != nil:
				_ = conn.Close()
				return
			case errors.As(err, &merr):
				// Non-retryable but harmless: log and skip this cycle.
				d.log.Warn("malformed status response, skipping cycle", "error", err)
			case errors.As(err, &terr) && terr.Timeout() && failures < maxTransientFailures:
				failures++
				d.log.Debug("transient usb timeout, retrying", "attempt", failures)
				continue
			default:
				// Stall, repeated timeout, or hard transfer failure:
				// presume the device detached.
				d.log.Debug("poll failed, assuming device left", "error", err)
				_ = conn.Close()
				return
			}
		} else {
			failures = 0
			conn = d.accept(ctx, conn, st, snap)
			if conn == nil {
				return
			}
		}

		if !d.sleepPoll(ctx, st) {
			_ = conn.Close()
			return
		}
	}
}

// accept folds one decoded snapshot into the loop state: the first
// snapshot after arrival seeds the diff baseline without synthesizing
// events; later ones are diffed and may trigger a handler handoff.
func (d *Daemon) accept(ctx context.Context, conn Conn, st *loopState, snap protocol.Snapshot) Conn {
	if st.prev == nil {
		d.log.Info("initial state", "paper", snap.Paper, "button", snap.Button())
		st.prev = &snap
		return conn
	}

	args := d.apply(transitions(*st.prev, snap), st)
	st.prev = &snap
	if args == nil {
		return conn
	}
	return d.handoff(ctx, conn, st, args...)
}

// apply feeds edge events through the mode policy and returns handler
// arguments when a dispatch is due, or nil. At most one dispatch happens
// per tick; any events after it are logged rather than silently dropped.
func (d *Daemon) apply(evs []Event, st *loopState) []string {
	for i, ev := range evs {
		switch d.opts.Mode {
		case ModeConfig:
			switch ev {
			case ButtonDown:
				st.gesture.press()
				d.log.Debug("gesture press", "count", st.gesture.count)
			case ButtonUp:
				st.gesture.release(d.now())
				d.log.Debug("gesture release", "count", st.gesture.count)
			default:
				d.log.Info(ev.String())
				d.logCoalesced(evs[i+1:])
				return []string{ev.String()}
			}
		case ModeLegacy:
			d.log.Info(ev.String())
			d.logCoalesced(evs[i+1:])
			return []string{ev.String()}
		case ModeLogOnly:
			d.log.Info(ev.String())
		}
	}
	return nil
}

func (d *Daemon) logCoalesced(evs []Event) {
	for _, ev := range evs {
		d.log.Info(ev.String(), "dispatched", false, "reason", "handler already scheduled this tick")
	}
}

// handoff releases the USB handle, runs the handler to completion, then
// reclaims the device and re-seeds the diff baseline with a fresh
// snapshot. It returns nil when the device cannot be reclaimed, in which
// case the caller falls back to the absent state rather than failing.
func (d *Daemon) handoff(ctx context.Context, conn Conn, st *loopState, args ...string) Conn {
	_ = conn.Close()
	d.log.Debug("usb: released for handler")
	d.runHandler(ctx, args...)

	nc, err := d.open.Open(ctx)
	if err != nil || nc == nil {
		d.log.Debug("usb: reclaim failed after handler, device gone", "error", err)
		return nil
	}
	snap, err := nc.HWStatus(ctx)
	if err != nil {
		d.log.Debug("usb: baseline poll failed after handler", "error", err)
		_ = nc.Close()
		return nil
	}
	st.prev = &snap
	return nc
}

// sleepPoll waits for the next tick, using the tightened interval while a
// gesture window is pending so its deadline is hit promptly.
func (d *Daemon) sleepPoll(ctx context.Context, st *loopState) bool {
	interval := d.opts.PollInterval
	if d.opts.Mode == ModeConfig && st.gesture.waiting() {
		interval = d.opts.FastPollInterval
	}
	return d.sleep(ctx, interval) == nil
}

func sleepCtx(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
