// Package scanner opens the ScanSnap S1500 over libusb and runs the
// 3-phase Fujitsu command exchange against its bulk endpoints.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/gousb"

	"github.com/s1500tools/s1500d/internal/protocol"
)

// S1500 identity: vendor-specific class (FF:FF:FF), two bulk endpoints on
// interface 0, no interrupt endpoints. Polling is the only event source.
const (
	VendorID  gousb.ID = 0x04C5
	ProductID gousb.ID = 0x11A2

	epOutNum = 2 // bulk OUT 0x02
	epInNum  = 1 // bulk IN 0x81
)

// USB owns the libusb context and opens scanner handles from it.
type USB struct {
	ctx *gousb.Context
	log *slog.Logger
}

func NewUSB(logger *slog.Logger) *USB {
	return &USB{ctx: gousb.NewContext(), log: logger}
}

func (u *USB) Close() error {
	return u.ctx.Close()
}

// Open claims the scanner and resolves its bulk endpoints. It returns
// (nil, nil) when no matching device is enumerated; absence is a normal
// state, not an error. Open errors (permissions, claim conflicts) are
// returned as-is.
func (u *USB) Open(ctx context.Context) (*Device, error) {
	dev, err := u.ctx.OpenDeviceWithVIDPID(VendorID, ProductID)
	if err != nil {
		return nil, fmt.Errorf("open %s:%s: %w", VendorID, ProductID, err)
	}
	if dev == nil {
		return nil, nil
	}

	// Not fatal everywhere; the claim below fails if a driver still holds
	// the interface.
	_ = dev.SetAutoDetach(true)

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("claim interface: %w", err)
	}

	out, err := intf.OutEndpoint(epOutNum)
	if err != nil {
		done()
		dev.Close()
		return nil, fmt.Errorf("bulk OUT endpoint: %w", err)
	}
	in, err := intf.InEndpoint(epInNum)
	if err != nil {
		done()
		dev.Close()
		return nil, fmt.Errorf("bulk IN endpoint: %w", err)
	}

	u.log.Debug("usb: claimed scanner", "vid", VendorID.String(), "pid", ProductID.String())
	return &Device{dev: dev, done: done, out: out, in: in, log: u.log}, nil
}

// Device is a claimed scanner handle. Exactly one process-wide owner may
// hold it at a time; Close releases the interface so an external tool
// (scanimage) can claim the device.
type Device struct {
	dev  *gousb.Device
	done func()
	out  *gousb.OutEndpoint
	in   *gousb.InEndpoint
	log  *slog.Logger
}

func (d *Device) writeBulk(ctx context.Context, p []byte) (int, error) {
	return d.out.WriteContext(ctx, p)
}

func (d *Device) readBulk(ctx context.Context, p []byte) (int, error) {
	return d.in.ReadContext(ctx, p)
}

// HWStatus sends GET_HW_STATUS and decodes the 12-byte response.
func (d *Device) HWStatus(ctx context.Context) (protocol.Snapshot, error) {
	raw, err := exchange(ctx, d, protocol.GetHWStatus)
	if err != nil {
		return protocol.Snapshot{}, err
	}
	d.log.Debug("usb: hw status", "raw", fmt.Sprintf("% x", raw))
	return protocol.DecodeStatus(raw, time.Now())
}

// Close releases the claimed interface and the device handle.
func (d *Device) Close() error {
	d.done()
	err := d.dev.Close()
	d.log.Debug("usb: released scanner")
	return err
}
