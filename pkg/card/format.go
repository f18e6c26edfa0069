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

package card

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mcdino/pkg/protocol"
)

// FormatMode selects how a card gets formatted
type FormatMode int

const (
	// FormatQuick writes the file system template, and 0xff to all other
	// frames
	FormatQuick FormatMode = iota
	// FormatFull writes the header frame, and 0x00 to all other frames
	FormatFull
	// FormatBlank writes 0xff to every frame, header included
	FormatBlank
)

//
func (m FormatMode) String() string {
	switch m {
	case FormatQuick:
		return "quick"
	case FormatFull:
		return "full"
	case FormatBlank:
		return "blank"
	default:
		return "<unknown>"
	}
}

//
func ParseFormatMode(m string) (FormatMode, error) {
	switch strings.ToLower(m) {
	case "quick", "":
		return FormatQuick, nil
	case "full":
		return FormatFull, nil
	case "blank", "zero":
		return FormatBlank, nil
	default:
		return -1, fmt.Errorf("unknown format mode: %s", m)
	}
}

/*
	Card layout, see http://problemkaputt.de/psx-spx.htm#memorycarddataformat

	  frame  0      header
	  frame  1-15   directory
	  frame 16-35   broken sector list
	  frame 36-55   broken sector replacement data
	  frame 56-62   unused
	  frame 63      write test

	All frames except for replacement data and unused frames end in a checksum
	byte, the XOR of the frame's first 127 bytes.
*/
const (
	directoryFrames   = 15
	brokenListFrames  = 20
	replacementFrames = 20
	unusedFrames      = 7
)

// TemplateFrames is the number of frames making up the file system template
const TemplateFrames = 1 + directoryFrames + brokenListFrames +
	replacementFrames + unusedFrames + 1

//
func withChecksum(data []byte) []byte {
	return append(data, protocol.XOR(data))
}

//
func fill(b byte) []byte {
	return bytes.Repeat([]byte{b}, protocol.FrameSize)
}

// HeaderFrame returns the header frame of a formatted card, "MC" followed by
// zeros and the checksum.
func HeaderFrame() []byte {
	ret := make([]byte, protocol.FrameSize-1)
	copy(ret, "MC")
	return withChecksum(ret)
}

// free directory entry
func directoryFrame() []byte {
	ret := make([]byte, protocol.FrameSize-1)
	ret[0] = 0xa0 // block allocation state: free
	ret[8] = 0xff // no next block
	ret[9] = 0xff
	return withChecksum(ret)
}

// unused broken sector list entry
func brokenSectorFrame() []byte {
	ret := make([]byte, protocol.FrameSize-1)
	copy(ret, []byte{0xff, 0xff, 0xff, 0xff})
	ret[8] = 0xff
	ret[9] = 0xff
	return withChecksum(ret)
}

// QuickFormatTemplate returns the frames written at the start of the card by
// a quick format.
func QuickFormatTemplate() [][]byte {

	ret := make([][]byte, 0, TemplateFrames)
	ret = append(ret, HeaderFrame())

	for ix := 0; ix < directoryFrames; ix++ {
		ret = append(ret, directoryFrame())
	}
	for ix := 0; ix < brokenListFrames; ix++ {
		ret = append(ret, brokenSectorFrame())
	}
	for ix := 0; ix < replacementFrames+unusedFrames; ix++ {
		ret = append(ret, fill(0xff))
	}

	return append(ret, HeaderFrame()) // write test frame
}

// formatFrames returns a function providing the payload for each frame
func formatFrames(mode FormatMode) func(ix int) []byte {

	switch mode {

	case FormatQuick:
		template := QuickFormatTemplate()
		blank := fill(0xff)
		return func(ix int) []byte {
			if ix < len(template) {
				return template[ix]
			}
			return blank
		}

	case FormatFull:
		header := HeaderFrame()
		zero := fill(0x00)
		return func(ix int) []byte {
			if ix == 0 {
				return header
			}
			return zero
		}

	default:
		blank := fill(0xff)
		return func(int) []byte { return blank }
	}
}

// FormatCapacityError signals that a card is too small for the format mode
type FormatCapacityError struct {
	Mode     FormatMode
	Capacity int
}

//
func (e *FormatCapacityError) Error() string {
	return fmt.Sprintf(
		"%s format needs at least %d frames, card capacity is %d",
		e.Mode, TemplateFrames, e.Capacity)
}

// CheckFormat returns a *FormatCapacityError if a card with given capacity
// can't hold the frames written by mode.
func CheckFormat(capacity int, mode FormatMode) error {
	if mode == FormatQuick && capacity < TemplateFrames {
		return &FormatCapacityError{Mode: mode, Capacity: capacity}
	}
	return nil
}

/*
	FormatCard formats all frames of the card according to mode. Formatting is
	not best effort: a card with a failed frame is in an undefined state, so the
	run aborts on the first failure, with a *FrameError naming the frame. Quick
	format needs room for the complete file system template, so it's refused
	for cards smaller than TemplateFrames before anything is written.
*/
func FormatCard(ctx context.Context, s FrameSession, capacity int,
	mode FormatMode, opts ...Option) (*Result, error) {

	if err := CheckFormat(capacity, mode); err != nil {
		return newResult("format", capacity), err
	}

	op := "format"
	if mode == FormatBlank {
		op = "clear"
	}

	log.WithFields(log.Fields{
		"mode": mode, "capacity": capacity}).Info("formatting card")

	res := newResult(op, capacity)
	cfg := newConfig(opts)
	frames := formatFrames(mode)

	for ix := 0; ix < capacity; ix++ {

		if ix > 0 {
			if err := cfg.wait(ctx); err != nil {
				return res, err
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := s.WriteFrame(ix, frames(ix)); err != nil {
			res.fail(ix, err)
			cfg.report(op, ix, capacity, err)
			log.WithField("frame", ix).Errorf("%v", err)
			return res, &FrameError{Op: op, Index: ix, Err: err}
		}

		res.Good++
		cfg.report(op, ix, capacity, nil)
	}

	return res, nil
}
