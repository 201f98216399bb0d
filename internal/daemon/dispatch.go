package daemon

import (
	"context"
	"log/slog"
	"os/exec"
)

// Runner invokes the external handler. The handler receives the event (or
// "scan" plus a profile name) as positional string arguments; its exit
// status and output are logged best-effort and never affect correctness.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs the handler as a child process and blocks until it
// exits. By the handoff contract the daemon has already released the USB
// handle, so the child may claim exclusive device access.
type ExecRunner struct {
	Log *slog.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.Log.Debug("handler output", "handler", name, "output", string(out))
	}
	return err
}

// runHandler dispatches one handler invocation and logs the outcome.
func (d *Daemon) runHandler(ctx context.Context, args ...string) {
	d.log.Debug("exec", "handler", d.opts.Handler, "args", args)
	err := d.run.Run(ctx, d.opts.Handler, args...)
	switch e := err.(type) {
	case nil:
		d.log.Debug("handler ok")
	case *exec.ExitError:
		d.log.Warn("handler exited", "status", e.ExitCode())
	default:
		d.log.Error("handler failed", "error", err)
	}
}
