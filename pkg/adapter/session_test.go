/*
   McDino - PlayStation memory card adapter driver
   Copyright (c) 2021, Alexander Vollschwitz

   This file is part of McDino.

   McDino is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   McDino is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with McDino. If not, see <http://www.gnu.org/licenses/>.
*/

package adapter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/xelalexv/mcdino/internal/testing"
	"github.com/xelalexv/mcdino/pkg/protocol"
)

func openTestSession(t *testing.T, a *testutil.Adapter, opts ...Option) *Session {
	t.Helper()
	s, err := Open(a, append([]Option{WithSettle(0)}, opts...)...)
	require.NoError(t, err)
	require.Equal(t, StateReady, s.State())
	return s
}

func TestOpen(t *testing.T) {

	a := testutil.NewAdapter(16)
	s := openTestSession(t, a)

	assert.Equal(t, []byte{protocol.CmdGID, protocol.CmdGFV}, a.Commands())
	assert.Equal(t, "MCDINO", s.Firmware().ID)
	assert.Equal(t, 0, s.Firmware().Major())
	assert.Equal(t, 8, s.Firmware().Minor())
	assert.Equal(t, "MCDINO 0.8", s.Firmware().String())
	assert.True(t, s.VerifiesChecksums())
}

func TestOpenWrongIdentifier(t *testing.T) {

	a := testutil.NewAdapter(16)
	a.ID = []byte("WRONGID")

	s, err := Open(a, WithSettle(0))
	require.Error(t, err)
	assert.Nil(t, s)

	var he *HandshakeError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, []byte("WRONGI"), he.Got)
	assert.True(t, IsFatal(err))

	// nothing but the identify command was sent, and the channel got released
	assert.Equal(t, []byte{protocol.CmdGID}, a.Commands())
	assert.Empty(t, a.Reads)
	assert.True(t, a.Closed)
}

func TestOpenNoAnswer(t *testing.T) {

	a := testutil.NewAdapter(16)
	a.Silent = true

	_, err := Open(a, WithSettle(0))
	require.Error(t, err)

	var he *HandshakeError
	require.True(t, errors.As(err, &he))
	assert.Empty(t, he.Got)

	var te *TransportError
	assert.True(t, errors.As(err, &te))
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, a.Closed)
}

func TestCheckCard(t *testing.T) {

	a := testutil.NewAdapter(16)
	s := openTestSession(t, a)
	require.NoError(t, s.CheckCard())
	assert.Equal(t, []int{CardCheckFrame}, a.Reads)

	// checksum is not looked at
	a.BadSum[CardCheckFrame] = true
	require.NoError(t, s.CheckCard())

	a.ReadStatus[CardCheckFrame] = 0xff
	err := s.CheckCard()
	var cnr *CardNotReadyError
	require.True(t, errors.As(err, &cnr))
	assert.Equal(t, protocol.StatusBadSector, cnr.Status)
	assert.False(t, IsFatal(err))
	assert.Equal(t, StateReady, s.State())
}

func TestReadFrame(t *testing.T) {

	a := testutil.NewAdapter(1024)
	image := a.Fill(0x21)
	s := openTestSession(t, a)

	for _, ix := range []int{0, 1, 255, 256, 1023} {
		data, err := s.ReadFrame(ix)
		require.NoError(t, err)
		assert.Equal(t, image[ix*protocol.FrameSize:(ix+1)*protocol.FrameSize], data)
	}

	assert.Equal(t, []int{0, 1, 255, 256, 1023}, a.Reads)
	assert.Equal(t, StateReady, s.State())
}

func TestReadFrameStatus(t *testing.T) {

	tests := []struct {
		name        string
		setup       func(a *testutil.Adapter)
		verify      bool
		wantStatus  protocol.Status
		wantSumErr  bool
		recoverable bool
	}{
		{
			name:   "good",
			setup:  func(a *testutil.Adapter) {},
			verify: true,
		},
		{
			name:        "bad sector",
			setup:       func(a *testutil.Adapter) { a.ReadStatus[3] = 0xff },
			verify:      true,
			wantStatus:  protocol.StatusBadSector,
			recoverable: true,
		},
		{
			name:        "bad checksum reported by adapter",
			setup:       func(a *testutil.Adapter) { a.ReadStatus[3] = 'N' },
			verify:      true,
			wantStatus:  protocol.StatusBadChecksum,
			recoverable: true,
		},
		{
			name:        "unknown status",
			setup:       func(a *testutil.Adapter) { a.ReadStatus[3] = 0x42 },
			verify:      false,
			wantStatus:  protocol.Status(0x42),
			recoverable: true,
		},
		{
			name:        "checksum mismatch verified",
			setup:       func(a *testutil.Adapter) { a.BadSum[3] = true },
			verify:      true,
			wantSumErr:  true,
			recoverable: true,
		},
		{
			name:   "checksum mismatch ignored",
			setup:  func(a *testutil.Adapter) { a.BadSum[3] = true },
			verify: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			a := testutil.NewAdapter(8)
			a.Fill(1)
			tt.setup(a)
			s := openTestSession(t, a, WithChecksumVerification(tt.verify))

			data, err := s.ReadFrame(3)
			require.Len(t, data, protocol.FrameSize)
			assert.Equal(t, tt.recoverable, IsRecoverable(err))
			assert.False(t, IsFatal(err))

			var dse *DeviceStatusError
			var cme *ChecksumMismatchError

			switch {
			case tt.wantStatus != 0:
				require.True(t, errors.As(err, &dse))
				assert.Equal(t, tt.wantStatus, dse.Status)
				assert.Equal(t, 3, dse.Frame)
			case tt.wantSumErr:
				require.True(t, errors.As(err, &cme))
				assert.Equal(t, 3, cme.Frame)
				assert.Equal(t, cme.Want^0xff, cme.Got)
			default:
				require.NoError(t, err)
				assert.Equal(t, a.Frames[3], data)
			}

			assert.Equal(t, StateReady, s.State())
		})
	}
}

func TestReadFrameShortResponse(t *testing.T) {

	a := testutil.NewAdapter(8)
	a.Truncate[5] = 100
	s := openTestSession(t, a)

	data, err := s.ReadFrame(5)
	assert.Nil(t, data)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 5, te.Frame)
	assert.Equal(t, 100, te.Got)
	assert.Equal(t, protocol.ReadResponseLength, te.Want)
	assert.True(t, IsFatal(err))
	assert.False(t, IsRecoverable(err))

	// session is gone after a transport error
	assert.Equal(t, StateClosed, s.State())
	assert.True(t, a.Closed)
	_, err = s.ReadFrame(6)
	assert.True(t, errors.Is(err, ErrSessionClosed))
	assert.Equal(t, []int{5}, a.Reads)
}

func TestReadFrameInvalidIndex(t *testing.T) {
	a := testutil.NewAdapter(8)
	s := openTestSession(t, a)
	_, err := s.ReadFrame(-1)
	assert.Error(t, err)
	_, err = s.ReadFrame(0x10000)
	assert.Error(t, err)
	assert.Empty(t, a.Reads)
}

func TestWriteFrame(t *testing.T) {

	a := testutil.NewAdapter(8)
	s := openTestSession(t, a)

	payload := bytes.Repeat([]byte{0x5a}, protocol.FrameSize)
	require.NoError(t, s.WriteFrame(7, payload))
	assert.Equal(t, payload, a.Frames[7])

	a.WriteStatus[2] = 0xff
	err := s.WriteFrame(2, payload)
	var dse *DeviceStatusError
	require.True(t, errors.As(err, &dse))
	assert.Equal(t, "write", dse.Op)
	assert.Equal(t, protocol.StatusBadSector, dse.Status)
	assert.Equal(t, StateReady, s.State())

	assert.Panics(t, func() { s.WriteFrame(1, payload[1:]) })
}

func TestClose(t *testing.T) {
	a := testutil.NewAdapter(8)
	s := openTestSession(t, a)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, a.Closed)
	assert.Equal(t, StateClosed, s.State())
	assert.True(t, errors.Is(s.WriteFrame(0, make([]byte, 128)), ErrSessionClosed))
}

func TestCommandAndReceive(t *testing.T) {

	a := testutil.NewAdapter(8)
	a.Pocket = &testutil.Pocket{Info: make([]byte, 18)}
	s := openTestSession(t, a)

	head, err := s.Command(protocol.CmdPSInfo, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x5a, 0x12}, head)

	rest, err := s.Receive(18)
	require.NoError(t, err)
	assert.Len(t, rest, 18)

	_, err = s.Receive(1)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "receive", te.Op)
}
