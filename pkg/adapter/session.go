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
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mcdino/pkg/protocol"
)

// DefaultSettle is the time the adapter needs for rebooting after the serial
// port has been opened.
const DefaultSettle = 2 * time.Second

// CardCheckFrame is the frame read for checking whether a card is present.
// Frame 1 instead of the header frame, since the header is blank right after
// a format.
const CardCheckFrame = 1

// Channel is the byte stream to the adapter. Reads must not block longer than
// the channel's read timeout. A read returning no data is taken as timeout.
type Channel interface {
	io.ReadWriteCloser
}

//
type State int

const (
	StateClosed State = iota
	StateHandshaking
	StateReady
	StateBusy
)

//
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	default:
		return "<unknown>"
	}
}

// Firmware identifies the adapter firmware.
type Firmware struct {
	ID      string
	Version byte
}

//
func (f Firmware) Major() int {
	return int(f.Version>>4) & 0x0f
}

//
func (f Firmware) Minor() int {
	return int(f.Version) & 0x0f
}

//
func (f Firmware) String() string {
	return fmt.Sprintf("%s %d.%d", f.ID, f.Major(), f.Minor())
}

// Option configures a session.
type Option func(*Session)

// WithSettle sets the time to wait for the adapter reboot before the handshake.
func WithSettle(d time.Duration) Option {
	return func(s *Session) {
		s.settle = d
	}
}

// WithChecksumVerification turns verification of read checksums on or off.
func WithChecksumVerification(on bool) Option {
	return func(s *Session) {
		s.verify = on
	}
}

/*
	Session is the exclusive owner of a channel to a MemCARDuino adapter. All
	exchanges are strictly request followed by complete response. There is no
	pipelining, and no attempt to resync on a broken exchange. Any transport
	error closes the session.

	A session is not safe for concurrent use.
*/
type Session struct {
	port     Channel
	state    State
	firmware Firmware
	settle   time.Duration
	verify   bool
}

/*
	Open takes ownership of ch and performs the handshake with the adapter. On
	failure, the channel is closed and the error returned. A wrong identifier is
	reported as *HandshakeError, no further command is sent in that case.
*/
func Open(ch Channel, opts ...Option) (*Session, error) {

	s := &Session{
		port:   ch,
		state:  StateClosed,
		settle: DefaultSettle,
		verify: true,
	}

	for _, o := range opts {
		o(s)
	}

	if err := s.handshake(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

//
func (s *Session) handshake() error {

	s.state = StateHandshaking

	if s.settle > 0 {
		log.Debugf("waiting %v for adapter to settle", s.settle)
		time.Sleep(s.settle)
	}

	id, err := s.exchange("identify", -1, []byte{protocol.CmdGID},
		protocol.IdentifierLength)
	if err != nil {
		return &HandshakeError{Got: id, Err: err}
	}

	if !bytes.Equal(id, protocol.Identifier) {
		return &HandshakeError{Got: id}
	}

	ver, err := s.exchange("firmware version", -1, []byte{protocol.CmdGFV},
		protocol.VersionLength)
	if err != nil {
		return err
	}

	s.firmware = Firmware{ID: string(id), Version: ver[0]}
	s.state = StateReady

	log.Infof("connected to %s", s.firmware)
	return nil
}

//
func (s *Session) State() State {
	return s.state
}

//
func (s *Session) Firmware() Firmware {
	return s.firmware
}

// SetVerifyChecksums turns verification of read checksums on or off.
func (s *Session) SetVerifyChecksums(on bool) {
	s.verify = on
}

//
func (s *Session) VerifiesChecksums() bool {
	return s.verify
}

// Close releases the channel. It is safe to call Close more than once.
func (s *Session) Close() error {
	if s.port == nil {
		s.state = StateClosed
		return nil
	}
	port := s.port
	s.port = nil
	s.state = StateClosed
	log.Debug("closing adapter channel")
	return port.Close()
}

/*
	CheckCard reads the card check frame and returns *CardNotReadyError if the
	adapter does not report it as good. The checksum is not looked at.
*/
func (s *Session) CheckCard() error {

	resp, err := s.exchange("card check", CardCheckFrame,
		protocol.EncodeRead(CardCheckFrame), protocol.ReadResponseLength)
	if err != nil {
		return err
	}

	if status := protocol.Status(resp[protocol.FrameSize+1]); !status.IsGood() {
		return &CardNotReadyError{Status: status}
	}

	return nil
}

/*
	ReadFrame reads the frame at index. For a device reported failure or a
	checksum mismatch, the received payload is returned alongside the error.
*/
func (s *Session) ReadFrame(index int) ([]byte, error) {

	if err := checkIndex(index); err != nil {
		return nil, err
	}

	resp, err := s.exchange("read", index, protocol.EncodeRead(index),
		protocol.ReadResponseLength)
	if err != nil {
		return nil, err
	}

	payload := resp[:protocol.FrameSize]
	out := protocol.DecodeReadResponse(index, payload,
		resp[protocol.FrameSize], protocol.Status(resp[protocol.FrameSize+1]),
		s.verify)

	switch out.Kind {

	case protocol.OutcomeDeviceReported:
		log.WithFields(log.Fields{
			"frame": index, "status": out.Status}).Debug("read failed")
		return payload, &DeviceStatusError{
			Op: "read", Frame: index, Status: out.Status}

	case protocol.OutcomeChecksumMismatch:
		log.WithFields(log.Fields{
			"frame": index, "status": out}).Debug("read failed")
		return payload, &ChecksumMismatchError{
			Frame: index, Want: out.Want, Got: out.Got}
	}

	log.WithField("frame", index).Trace("read")
	return payload, nil
}

// WriteFrame writes payload to the frame at index. Payload must be exactly one
// frame in size, otherwise WriteFrame panics.
func (s *Session) WriteFrame(index int, payload []byte) error {

	if err := checkIndex(index); err != nil {
		return err
	}

	resp, err := s.exchange("write", index, protocol.EncodeWrite(index, payload),
		protocol.StatusLength)
	if err != nil {
		return err
	}

	if status := protocol.Status(resp[0]); !status.IsGood() {
		log.WithFields(log.Fields{
			"frame": index, "status": status}).Debug("write failed")
		return &DeviceStatusError{Op: "write", Frame: index, Status: status}
	}

	log.WithField("frame", index).Trace("write")
	return nil
}

/*
	Command sends cmd followed by args, and reads n response bytes. Use Receive
	for reading the remainder of a response whose length depends on what was
	read here.
*/
func (s *Session) Command(cmd byte, args []byte, n int) ([]byte, error) {
	req := make([]byte, 0, 1+len(args))
	req = append(req, cmd)
	req = append(req, args...)
	return s.exchange(fmt.Sprintf("command 0x%02x", cmd), -1, req, n)
}

// Receive reads another n bytes of a response.
func (s *Session) Receive(n int) ([]byte, error) {
	return s.exchange("receive", -1, nil, n)
}

//
func checkIndex(index int) error {
	if index < 0 || index > protocol.MaxFrameIndex {
		return fmt.Errorf("invalid frame index: %d", index)
	}
	return nil
}

/*
	exchange sends req, if any, and reads exactly n bytes of response. When
	that fails, the session is closed and a *TransportError returned, together
	with what was received so far.
*/
func (s *Session) exchange(op string, frame int, req []byte,
	n int) ([]byte, error) {

	if s.state == StateClosed || s.port == nil {
		return nil, ErrSessionClosed
	}

	prev := s.state
	if prev == StateReady {
		s.state = StateBusy
	}

	if len(req) > 0 {
		if err := s.send(req); err != nil {
			return nil, s.fail(&TransportError{Op: op, Frame: frame, Err: err})
		}
	}

	resp := make([]byte, n)
	if got, err := s.receive(resp); err != nil {
		return resp[:got], s.fail(&TransportError{
			Op: op, Frame: frame, Want: n, Got: got, Err: err})
	}

	s.state = prev
	return resp, nil
}

//
func (s *Session) send(data []byte) error {
	n, err := s.port.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	return err
}

//
func (s *Session) receive(data []byte) (int, error) {

	n := 0

	for n < len(data) {
		r, err := s.port.Read(data[n:])
		n += r
		if n == len(data) {
			break
		}
		if err != nil {
			if err == io.EOF {
				err = ErrTimeout
			}
			return n, err
		}
		if r == 0 {
			return n, ErrTimeout
		}
	}

	return n, nil
}

//
func (s *Session) fail(err error) error {
	log.Errorf("%v, closing session", err)
	if cerr := s.Close(); cerr != nil {
		log.Errorf("error closing channel: %v", cerr)
	}
	return err
}
