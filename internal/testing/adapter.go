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

// Package testutil provides a virtual MemCARDuino adapter for tests. It
// implements the adapter's channel contract and emulates firmware behavior
// for a memory card and, optionally, a PocketStation.
package testutil

import (
	"bytes"
	"sync"

	"github.com/xelalexv/mcdino/pkg/protocol"
)

// Pocket is the emulated PocketStation
type Pocket struct {
	Info  []byte // 18 bytes as sent for PSINFO
	BIOS  []byte // 16 KiB
	Clock []byte // last 8 bytes received with PSTIME
}

// Adapter emulates MemCARDuino firmware. The exported fields may be changed
// between exchanges for injecting faults.
type Adapter struct {
	//
	ID      []byte
	Version byte
	Frames  [][]byte
	Pocket  *Pocket
	//
	ReadStatus  map[int]byte // status byte to report when reading a frame
	WriteStatus map[int]byte // status byte to report when writing a frame
	BadSum      map[int]bool // send a wrong checksum along with a good read
	Truncate    map[int]int  // number of response bytes to send for a read
	Silent      bool         // never answer anything
	//
	Requests [][]byte
	Reads    []int
	Writes   []int
	Closed   bool
	//
	mutex sync.Mutex
	in    []byte
	out   bytes.Buffer
}

// NewAdapter creates an adapter with a blank card of given capacity.
func NewAdapter(capacity int) *Adapter {
	ret := &Adapter{
		ID:          append([]byte{}, protocol.Identifier...),
		Version:     0x08,
		Frames:      make([][]byte, capacity),
		ReadStatus:  map[int]byte{},
		WriteStatus: map[int]byte{},
		BadSum:      map[int]bool{},
		Truncate:    map[int]int{},
	}
	for ix := range ret.Frames {
		ret.Frames[ix] = make([]byte, protocol.FrameSize)
	}
	return ret
}

// Fill puts a test pattern onto the card and returns the card image.
func (a *Adapter) Fill(seed byte) []byte {
	var image []byte
	for ix := range a.Frames {
		for b := range a.Frames[ix] {
			a.Frames[ix][b] = seed + byte(ix) ^ byte(b*3)
		}
		image = append(image, a.Frames[ix]...)
	}
	return image
}

// Image returns the current card contents.
func (a *Adapter) Image() []byte {
	var ret []byte
	for _, f := range a.Frames {
		ret = append(ret, f...)
	}
	return ret
}

// Read returns pending response bytes. With nothing pending, it returns no
// data and no error, just like a serial port after its read timeout.
func (a *Adapter) Read(p []byte) (int, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.out.Len() == 0 {
		return 0, nil
	}
	return a.out.Read(p)
}

// Write receives request bytes and processes all complete commands.
func (a *Adapter) Write(p []byte) (int, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.in = append(a.in, p...)
	for a.process() {
	}
	return len(p), nil
}

//
func (a *Adapter) Close() error {
	a.Closed = true
	return nil
}

// Commands returns the command bytes of all requests received so far.
func (a *Adapter) Commands() []byte {
	var ret []byte
	for _, r := range a.Requests {
		ret = append(ret, r[0])
	}
	return ret
}

//
func (a *Adapter) consume(n int) ([]byte, bool) {
	if len(a.in) < n {
		return nil, false
	}
	req := append([]byte{}, a.in[:n]...)
	a.in = a.in[n:]
	a.Requests = append(a.Requests, req)
	return req, true
}

//
func (a *Adapter) respond(data ...byte) {
	if !a.Silent {
		a.out.Write(data)
	}
}

// process handles the first complete command in the input buffer, if any
func (a *Adapter) process() bool {

	if len(a.in) == 0 {
		return false
	}

	switch a.in[0] {

	case protocol.CmdGID:
		if _, ok := a.consume(1); ok {
			a.respond(a.ID...)
			return true
		}

	case protocol.CmdGFV:
		if _, ok := a.consume(1); ok {
			a.respond(a.Version)
			return true
		}

	case protocol.CmdMCR:
		if req, ok := a.consume(protocol.ReadRequestLength); ok {
			a.read(req)
			return true
		}

	case protocol.CmdMCW:
		if req, ok := a.consume(protocol.WriteRequestLength); ok {
			a.write(req)
			return true
		}

	case protocol.CmdPSInfo:
		if _, ok := a.consume(1); ok {
			if a.Pocket == nil {
				a.respond(0x00, 0x00)
			} else {
				a.respond(0x5a, 0x12)
				a.respond(a.Pocket.Info...)
			}
			return true
		}

	case protocol.CmdPSBios:
		if req, ok := a.consume(3); ok {
			block := int(req[1])<<8 | int(req[2])
			start := block * protocol.FrameSize
			if a.Pocket == nil || start+protocol.FrameSize > len(a.Pocket.BIOS) {
				a.respond(0x00, 0x00)
			} else {
				a.respond(0x5c, 0x80)
				a.respond(a.Pocket.BIOS[start : start+protocol.FrameSize]...)
			}
			return true
		}

	case protocol.CmdPSTime:
		if req, ok := a.consume(9); ok {
			if a.Pocket == nil {
				a.respond(0x00, 0x00)
			} else {
				a.Pocket.Clock = req[1:]
				a.respond(0x5b, 0x08)
			}
			return true
		}

	default: // unknown commands are swallowed without answer
		a.consume(1)
		return true
	}

	return false
}

//
func (a *Adapter) read(req []byte) {

	ix, _ := protocol.DecodeAddress(req)
	a.Reads = append(a.Reads, ix)

	payload := make([]byte, protocol.FrameSize)
	status := byte(protocol.StatusGood)

	if ix < len(a.Frames) {
		copy(payload, a.Frames[ix])
	} else {
		status = byte(protocol.StatusBadSector)
	}

	if s, ok := a.ReadStatus[ix]; ok {
		status = s
	}

	sum := protocol.Checksum(ix, payload)
	if a.BadSum[ix] {
		sum ^= 0xff
	}

	resp := append(payload, sum, status)
	if n, ok := a.Truncate[ix]; ok && n < len(resp) {
		resp = resp[:n]
	}

	a.respond(resp...)
}

//
func (a *Adapter) write(req []byte) {

	ix, _ := protocol.DecodeAddress(req)
	a.Writes = append(a.Writes, ix)

	payload := req[3 : 3+protocol.FrameSize]
	if protocol.XOR(req[1:3+protocol.FrameSize]) != req[len(req)-1] {
		a.respond(byte(protocol.StatusBadChecksum))
		return
	}

	if s, ok := a.WriteStatus[ix]; ok {
		a.respond(s)
		return
	}

	if ix >= len(a.Frames) {
		a.respond(byte(protocol.StatusBadSector))
		return
	}

	copy(a.Frames[ix], payload)
	a.respond(byte(protocol.StatusGood))
}
