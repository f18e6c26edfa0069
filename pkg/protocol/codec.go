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

package protocol

import (
	"fmt"
)

/*
	Wire order

	Frame addresses always go out high byte first, for reads as well as for
	writes. The checksum is the XOR of address high byte, address low byte,
	and the 128 payload bytes, in that order. This is what MemCARDuino
	firmware computes on its side, both for the checksum it sends along with
	a read response, and for the one it expects at the end of a write request.
*/

// XOR folds all given bytes into a single byte.
func XOR(data ...[]byte) byte {
	var ret byte
	for _, d := range data {
		for _, b := range d {
			ret ^= b
		}
	}
	return ret
}

// Checksum calculates the checksum of a frame as exchanged with the adapter.
func Checksum(index int, payload []byte) byte {
	hi, lo := address(index)
	return XOR([]byte{hi, lo}, payload)
}

//
func address(index int) (byte, byte) {
	if index < 0 || index > MaxFrameIndex {
		panic(fmt.Sprintf("frame index out of range: %d", index))
	}
	return byte(index >> 8), byte(index)
}

// EncodeRead creates the request for reading the frame at index.
func EncodeRead(index int) []byte {
	hi, lo := address(index)
	return []byte{CmdMCR, hi, lo}
}

// EncodeWrite creates the request for writing payload to the frame at index.
// Payload must be exactly one frame in size.
func EncodeWrite(index int, payload []byte) []byte {

	if len(payload) != FrameSize {
		panic(fmt.Sprintf("invalid frame payload length: %d", len(payload)))
	}

	hi, lo := address(index)

	ret := make([]byte, 0, WriteRequestLength)
	ret = append(ret, CmdMCW, hi, lo)
	ret = append(ret, payload...)
	return append(ret, XOR([]byte{hi, lo}, payload))
}

// DecodeAddress retrieves the frame index from a read or write request.
func DecodeAddress(req []byte) (int, error) {

	if len(req) < 3 {
		return -1, fmt.Errorf("request too short: %d bytes", len(req))
	}

	if req[0] != CmdMCR && req[0] != CmdMCW {
		return -1, fmt.Errorf("not a frame request: 0x%02x", req[0])
	}

	return int(req[1])<<8 | int(req[2]), nil
}

// OutcomeKind classifies the result of a frame read
type OutcomeKind int

const (
	OutcomeGood OutcomeKind = iota
	OutcomeChecksumMismatch
	OutcomeDeviceReported
)

//
type Outcome struct {
	Kind   OutcomeKind
	Status Status
	// only set for OutcomeChecksumMismatch
	Want byte
	Got  byte
}

//
func (o Outcome) IsGood() bool {
	return o.Kind == OutcomeGood
}

//
func (o Outcome) String() string {

	switch o.Kind {

	case OutcomeGood:
		return "GOOD"

	case OutcomeChecksumMismatch:
		return fmt.Sprintf(
			"CHECKSUM_MISMATCH(got 0x%02X, want 0x%02X)", o.Got, o.Want)

	default:
		return o.Status.String()
	}
}

/*
	DecodeReadResponse validates a read response for the frame at index. The
	status reported by the adapter takes precedence. Only when that is good and
	verify is set, the checksum sent by the adapter is compared against the one
	calculated locally over address and payload.
*/
func DecodeReadResponse(index int, payload []byte, sum byte, status Status,
	verify bool) Outcome {

	if len(payload) != FrameSize {
		panic(fmt.Sprintf("invalid frame payload length: %d", len(payload)))
	}

	if !status.IsGood() {
		return Outcome{Kind: OutcomeDeviceReported, Status: status}
	}

	if verify {
		if want := Checksum(index, payload); want != sum {
			return Outcome{
				Kind:   OutcomeChecksumMismatch,
				Status: status,
				Want:   want,
				Got:    sum,
			}
		}
	}

	return Outcome{Kind: OutcomeGood, Status: status}
}
