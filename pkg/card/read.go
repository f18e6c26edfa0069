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
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mcdino/pkg/adapter"
	"github.com/xelalexv/mcdino/pkg/protocol"
)

// Frame is one frame as delivered by Reader. For a failed frame, Err is set
// and Payload is all zeros.
type Frame struct {
	Index   int
	Payload []byte
	Err     error
}

/*
	Reader reads a card frame by frame, in the style of bufio.Scanner:

		r := card.NewReader(session, card.DefaultCapacity)
		for r.Next(ctx) {
			f := r.Frame()
			...
		}
		if err := r.Err(); err != nil {
			...
		}

	Frames the adapter reports as bad, or with a checksum mismatch, are still
	delivered, with a zero filled placeholder payload, so that a card image
	assembled from the frames always has full size. Iteration stops early only
	on a fatal error, or when ctx is done. Once finished, a Reader cannot be
	restarted.
*/
type Reader struct {
	session  FrameSession
	capacity int
	next     int
	frame    Frame
	err      error
	result   *Result
}

//
func NewReader(s FrameSession, capacity int) *Reader {
	return &Reader{
		session:  s,
		capacity: capacity,
		result:   newResult("read", capacity),
	}
}

// Next reads the next frame. It returns false when all frames have been read,
// or iteration stopped due to an error.
func (r *Reader) Next(ctx context.Context) bool {

	if r.err != nil || r.next >= r.capacity {
		return false
	}

	if err := ctx.Err(); err != nil {
		r.err = err
		return false
	}

	ix := r.next
	r.next++

	payload, err := r.session.ReadFrame(ix)

	if err != nil && !adapter.IsRecoverable(err) {
		r.err = err
		return false
	}

	r.frame = Frame{Index: ix, Payload: payload, Err: err}

	if err != nil {
		r.frame.Payload = make([]byte, protocol.FrameSize)
		r.result.fail(ix, err)
		log.WithField("frame", ix).Warnf("%v", err)
	} else {
		r.result.Good++
	}

	return true
}

// Frame returns the frame read by the most recent call to Next.
func (r *Reader) Frame() Frame {
	return r.frame
}

// Err returns the error that stopped iteration, if any.
func (r *Reader) Err() error {
	return r.err
}

// Result returns the tally of frames read so far.
func (r *Reader) Result() *Result {
	return r.result
}

/*
	ReadCard reads the whole card and writes the card image to out. Frame
	failures are recorded in the result, the run is successful only if all
	frames were good. An error is returned only for a fatal problem, which
	leaves the image incomplete.
*/
func ReadCard(ctx context.Context, s FrameSession, capacity int, out io.Writer,
	opts ...Option) (*Result, error) {

	cfg := newConfig(opts)
	r := NewReader(s, capacity)

	for r.Next(ctx) {
		f := r.Frame()
		if _, err := out.Write(f.Payload); err != nil {
			return r.Result(), fmt.Errorf("error writing frame %d to image: %v",
				f.Index, err)
		}
		cfg.report("read", f.Index, capacity, f.Err)
	}

	return r.Result(), r.Err()
}
