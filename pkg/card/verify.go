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
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mcdino/pkg/protocol"
)

// MismatchError reports a frame on the card differing from the image.
type MismatchError struct {
	Index int
	Image []byte
	Card  []byte
}

//
func (e *MismatchError) Error() string {
	return fmt.Sprintf("mismatch at frame %d:\nfile    = %x\nmemcard = %x",
		e.Index, e.Image, e.Card)
}

/*
	VerifyCard compares the card against the card image read from src. Every
	frame is checked: read failures and mismatches are recorded in the result
	and mark the run as failed, but only a fatal error stops it early.
*/
func VerifyCard(ctx context.Context, s FrameSession, capacity int,
	src io.Reader, opts ...Option) (*Result, error) {

	res := newResult("verify", capacity)

	if err := CheckImage(src, capacity); err != nil {
		return res, err
	}

	cfg := newConfig(opts)
	r := NewReader(s, capacity)
	r.result = res
	expected := make([]byte, protocol.FrameSize)

	for r.Next(ctx) {

		f := r.Frame()

		if err := nextFrame(src, f.Index, capacity, expected); err != nil {
			return res, err
		}

		if f.Err == nil && !bytes.Equal(expected, f.Payload) {
			f.Err = &MismatchError{
				Index: f.Index,
				Image: append([]byte{}, expected...),
				Card:  f.Payload,
			}
			res.Good--
			res.fail(f.Index, f.Err)
			log.WithField("frame", f.Index).Warn("frame differs from image")
		}

		cfg.report("verify", f.Index, capacity, f.Err)
	}

	return res, r.Err()
}
