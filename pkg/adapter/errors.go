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
	"errors"
	"fmt"

	"github.com/xelalexv/mcdino/pkg/protocol"
)

//
var ErrSessionClosed = errors.New("adapter session closed")

// ErrTimeout is reported when the adapter does not send the expected number
// of bytes within the channel's read timeout.
var ErrTimeout = errors.New("read timed out")

// HandshakeError signals that the adapter did not identify itself properly.
type HandshakeError struct {
	Got []byte
	Err error
}

//
func (e *HandshakeError) Error() string {
	msg := fmt.Sprintf(
		"communication error, got \"%s\" as identifier (should be \"%s\")",
		e.Got, protocol.Identifier)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

//
func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// TransportError signals an I/O failure on the channel, usually a short read.
// Frame is -1 if the exchange was not about a particular frame.
type TransportError struct {
	Op    string
	Frame int
	Want  int
	Got   int
	Err   error
}

//
func (e *TransportError) Error() string {

	where := e.Op
	if e.Frame >= 0 {
		where = fmt.Sprintf("%s frame %d", e.Op, e.Frame)
	}

	if e.Want > 0 {
		return fmt.Sprintf("transport error on %s, received %d of %d bytes: %v",
			where, e.Got, e.Want, e.Err)
	}
	return fmt.Sprintf("transport error on %s: %v", where, e.Err)
}

//
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DeviceStatusError carries a non-good status the adapter returned for a frame.
type DeviceStatusError struct {
	Op     string
	Frame  int
	Status protocol.Status
}

//
func (e *DeviceStatusError) Error() string {
	return fmt.Sprintf("%s error at frame %d: %s", e.Op, e.Frame, e.Status)
}

// ChecksumMismatchError means the adapter sent a good status for a read, but
// the checksum it sent along does not match the payload.
type ChecksumMismatchError struct {
	Frame int
	Want  byte
	Got   byte
}

//
func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf(
		"checksum mismatch at frame %d, got 0x%02X should be 0x%02X",
		e.Frame, e.Got, e.Want)
}

// CardNotReadyError is returned by the card check when no card seems present.
type CardNotReadyError struct {
	Status protocol.Status
}

//
func (e *CardNotReadyError) Error() string {
	return fmt.Sprintf("read failure (%s), check connections", e.Status)
}

// IsFatal returns true for errors after which the session cannot be used
// anymore.
func IsFatal(err error) bool {

	if err == nil {
		return false
	}

	var he *HandshakeError
	var te *TransportError

	return errors.Is(err, ErrSessionClosed) ||
		errors.As(err, &he) || errors.As(err, &te)
}

// IsRecoverable returns true for errors that concern only a single frame.
// Operations may record them and carry on with the next frame.
func IsRecoverable(err error) bool {

	if err == nil || IsFatal(err) {
		return false
	}

	var dse *DeviceStatusError
	var cme *ChecksumMismatchError

	return errors.As(err, &dse) || errors.As(err, &cme)
}
