// Package protocol implements the Fujitsu vendor USB wire format used by
// the ScanSnap S1500: SCSI CDBs wrapped in a fixed 31-byte command
// envelope, and the 12-byte GET_HW_STATUS response payload.
//
// The exchange is 3-phase: command -> data -> status. The status phase is a
// 13-byte envelope whose first byte is 0x53 on success. All functions here
// are pure; the actual bulk transfers live in internal/scanner.
package protocol

import "fmt"

const (
	// CommandCode is the first byte of every outbound command envelope.
	CommandCode = 0x43

	// StatusCode is the first byte of the status-phase envelope on success.
	StatusCode = 0x53

	// EnvelopeLen is the fixed size of the outbound command envelope.
	EnvelopeLen = 31

	// StatusPhaseLen is the size of the inbound status-phase envelope.
	StatusPhaseLen = 13

	// HWStatusLen is the size of the GET_HW_STATUS data payload.
	HWStatusLen = 12

	// cdbOffset is where the SCSI CDB starts inside the envelope; bytes
	// 1..18 are zero padding.
	cdbOffset = 19

	// MaxCDBLen is the largest CDB the envelope can carry.
	MaxCDBLen = EnvelopeLen - cdbOffset
)

// GetHWStatus is the one CDB this daemon sends: opcode 0xC2 with an
// allocation length of 12 at CDB bytes 7-8.
var GetHWStatus = []byte{0xC2, 0, 0, 0, 0, 0, 0, 0, 0x0C, 0}

// Envelope wraps a SCSI CDB in the 31-byte Fujitsu command envelope.
// The CDB is copied to offset 19 and the remainder is zero-padded.
func Envelope(cdb []byte) ([]byte, error) {
	if len(cdb) > MaxCDBLen {
		return nil, fmt.Errorf("protocol: cdb is %d bytes, envelope fits at most %d", len(cdb), MaxCDBLen)
	}
	buf := make([]byte, EnvelopeLen)
	buf[0] = CommandCode
	copy(buf[cdbOffset:], cdb)
	return buf, nil
}
