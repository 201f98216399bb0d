package protocol

import (
	"fmt"
	"time"
)

// Snapshot is the decoded hardware state from one GET_HW_STATUS response.
//
// The scan button reports on two distinct bits: bit 5 of byte 4 while it is
// physically held, and bit 0 for a momentary tap that stays asserted for
// roughly one poll interval. Button is the canonical OR of the two; reading
// only one bit misses either quick taps or sustained holds.
type Snapshot struct {
	Paper  bool // paper present in the hopper (byte 3 bit 7, inverted)
	Held   bool // scan button physically held (byte 4 bit 5)
	Tapped bool // momentary tap latch (byte 4 bit 0)

	// Diagnostics only; never turned into events.
	Virgin    bool // byte 4 bit 7
	CoverOpen bool // byte 3 bit 6

	ObservedAt time.Time
}

// Button reports whether the scan button is active in any form.
func (s Snapshot) Button() bool { return s.Held || s.Tapped }

// MalformedResponseError reports a GET_HW_STATUS payload of the wrong size.
type MalformedResponseError struct {
	Len int
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("protocol: hardware status payload is %d bytes, want %d", e.Len, HWStatusLen)
}

// DecodeStatus decodes a 12-byte GET_HW_STATUS payload observed at the
// given time. It is total for all 12-byte inputs; any other length is a
// *MalformedResponseError.
func DecodeStatus(buf []byte, at time.Time) (Snapshot, error) {
	if len(buf) != HWStatusLen {
		return Snapshot{}, &MalformedResponseError{Len: len(buf)}
	}
	return Snapshot{
		Paper:      buf[3]&0x80 == 0,
		Held:       buf[4]&0x20 != 0,
		Tapped:     buf[4]&0x01 != 0,
		Virgin:     buf[4]&0x80 != 0,
		CoverOpen:  buf[3]&0x40 != 0,
		ObservedAt: at,
	}, nil
}
