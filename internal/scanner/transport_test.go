package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1500tools/s1500d/internal/protocol"
)

// fakeBulk scripts one exchange: it checks the written envelope and serves
// the data and status phases from canned buffers or errors.
type fakeBulk struct {
	t *testing.T

	writeN   int // bytes "accepted" by the write; defaults to full length
	writeErr error

	reads    [][]byte // consecutive read payloads (data phase, status phase)
	readErrs []error

	wrote []byte
	read  int
}

func (f *fakeBulk) writeBulk(_ context.Context, p []byte) (int, error) {
	f.wrote = append([]byte(nil), p...)
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	if f.writeN > 0 {
		return f.writeN, nil
	}
	return len(p), nil
}

func (f *fakeBulk) readBulk(_ context.Context, p []byte) (int, error) {
	i := f.read
	f.read++
	require.Less(f.t, i, len(f.reads), "unexpected extra read")
	if err := f.readErrs[i]; err != nil {
		return 0, err
	}
	return copy(p, f.reads[i]), nil
}

func goodStatus() []byte {
	s := make([]byte, protocol.StatusPhaseLen)
	s[0] = protocol.StatusCode
	return s
}

func TestExchangeHappyPath(t *testing.T) {
	payload := make([]byte, protocol.HWStatusLen)
	payload[3] = 0x80
	f := &fakeBulk{
		t:        t,
		reads:    [][]byte{payload, goodStatus()},
		readErrs: []error{nil, nil},
	}

	got, err := exchange(context.Background(), f, protocol.GetHWStatus)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// The written envelope is the wrapped CDB.
	require.Len(t, f.wrote, protocol.EnvelopeLen)
	assert.EqualValues(t, protocol.CommandCode, f.wrote[0])
	assert.Equal(t, protocol.GetHWStatus, f.wrote[19:29])
	assert.Equal(t, 2, f.read, "data and status phases must both be read")
}

func TestExchangeShortWrite(t *testing.T) {
	f := &fakeBulk{t: t, writeN: 7}

	_, err := exchange(context.Background(), f, protocol.GetHWStatus)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, PhaseCommand, terr.Phase)
	assert.False(t, terr.Timeout())
}

func TestExchangeWriteError(t *testing.T) {
	f := &fakeBulk{t: t, writeErr: errors.New("pipe stalled")}

	_, err := exchange(context.Background(), f, protocol.GetHWStatus)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, PhaseCommand, terr.Phase)
}

func TestExchangeDataPhaseError(t *testing.T) {
	f := &fakeBulk{
		t:        t,
		reads:    [][]byte{nil},
		readErrs: []error{errors.New("device gone")},
	}

	_, err := exchange(context.Background(), f, protocol.GetHWStatus)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, PhaseData, terr.Phase)
}

func TestExchangeDataPhaseTimeoutIsTransient(t *testing.T) {
	f := &fakeBulk{
		t:        t,
		reads:    [][]byte{nil},
		readErrs: []error{context.DeadlineExceeded},
	}

	_, err := exchange(context.Background(), f, protocol.GetHWStatus)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, PhaseData, terr.Phase)
	assert.True(t, terr.Timeout())
}

func TestExchangeStatusPhaseError(t *testing.T) {
	f := &fakeBulk{
		t:        t,
		reads:    [][]byte{make([]byte, protocol.HWStatusLen), nil},
		readErrs: []error{nil, errors.New("timeout")},
	}

	_, err := exchange(context.Background(), f, protocol.GetHWStatus)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, PhaseStatus, terr.Phase)
}

func TestExchangeBadStatusMarker(t *testing.T) {
	bad := goodStatus()
	bad[0] = 0x00
	f := &fakeBulk{
		t:        t,
		reads:    [][]byte{make([]byte, protocol.HWStatusLen), bad},
		readErrs: []error{nil, nil},
	}

	_, err := exchange(context.Background(), f, protocol.GetHWStatus)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, PhaseStatus, terr.Phase)
	assert.False(t, terr.Timeout())
}

func TestExchangeOversizeCDB(t *testing.T) {
	f := &fakeBulk{t: t}
	_, err := exchange(context.Background(), f, make([]byte, protocol.MaxCDBLen+1))
	require.Error(t, err)
	assert.Nil(t, f.wrote, "nothing may be written for an unencodable CDB")
}
