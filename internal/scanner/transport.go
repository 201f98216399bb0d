package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/s1500tools/s1500d/internal/protocol"
)

// Per-phase transfer deadlines. The status drain is short: the device has
// already produced the data phase, so the status envelope follows at once.
const (
	ioTimeout     = 1 * time.Second
	statusTimeout = 200 * time.Millisecond
)

// Phase identifies which leg of the 3-phase exchange failed.
type Phase string

const (
	PhaseCommand Phase = "command"
	PhaseData    Phase = "data"
	PhaseStatus  Phase = "status"
)

// TransportError is a bulk-transfer failure tagged with the phase at which
// it occurred.
type TransportError struct {
	Phase Phase
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("usb %s phase: %v", e.Phase, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a transfer timeout, which the
// caller may treat as transient and retry a bounded number of times.
// Stalls and disconnects are not timeouts and indicate a presumed detach.
func (e *TransportError) Timeout() bool {
	return errors.Is(e.Err, gousb.TransferTimedOut) ||
		errors.Is(e.Err, gousb.ErrorTimeout) ||
		errors.Is(e.Err, context.DeadlineExceeded)
}

// bulk is the slice of a claimed device the exchange needs. *Device
// implements it; tests substitute a scripted fake.
type bulk interface {
	writeBulk(ctx context.Context, p []byte) (int, error)
	readBulk(ctx context.Context, p []byte) (int, error)
}

// exchange performs one command -> data -> status transaction: write the
// 31-byte envelope, read the data phase, then drain the 13-byte status
// envelope and require its success marker.
func exchange(ctx context.Context, dev bulk, cdb []byte) ([]byte, error) {
	cmd, err := protocol.Envelope(cdb)
	if err != nil {
		return nil, err
	}

	wctx, cancel := context.WithTimeout(ctx, ioTimeout)
	n, err := dev.writeBulk(wctx, cmd)
	cancel()
	if err != nil {
		return nil, &TransportError{Phase: PhaseCommand, Err: err}
	}
	if n != len(cmd) {
		return nil, &TransportError{Phase: PhaseCommand, Err: fmt.Errorf("short write: %d of %d bytes", n, len(cmd))}
	}

	data := make([]byte, 64)
	rctx, cancel := context.WithTimeout(ctx, ioTimeout)
	n, err = dev.readBulk(rctx, data)
	cancel()
	if err != nil {
		return nil, &TransportError{Phase: PhaseData, Err: err}
	}
	data = data[:n]

	status := make([]byte, protocol.StatusPhaseLen)
	sctx, cancel := context.WithTimeout(ctx, statusTimeout)
	n, err = dev.readBulk(sctx, status)
	cancel()
	if err != nil {
		return nil, &TransportError{Phase: PhaseStatus, Err: err}
	}
	if n < 1 || status[0] != protocol.StatusCode {
		return nil, &TransportError{Phase: PhaseStatus, Err: fmt.Errorf("bad status envelope: % x", status[:n])}
	}

	return data, nil
}
