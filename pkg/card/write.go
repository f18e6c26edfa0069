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
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mcdino/pkg/protocol"
)

/*
	WriteCard writes the card image read from src onto the card. If the size of
	src can be determined up front and does not match the card capacity, it
	fails with *ImageSizeError before any frame is sent. A short image that
	could not be detected up front causes the same error once it runs out.

	The first frame the adapter does not accept aborts the run with
	*FrameError.
*/
func WriteCard(ctx context.Context, s FrameSession, capacity int, src io.Reader,
	opts ...Option) (*Result, error) {

	res := newResult("write", capacity)

	if err := CheckImage(src, capacity); err != nil {
		return res, err
	}

	cfg := newConfig(opts)
	buf := make([]byte, protocol.FrameSize)

	for ix := 0; ix < capacity; ix++ {

		if ix > 0 {
			if err := cfg.wait(ctx); err != nil {
				return res, err
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := nextFrame(src, ix, capacity, buf); err != nil {
			return res, err
		}

		if err := s.WriteFrame(ix, buf); err != nil {
			res.fail(ix, err)
			cfg.report("write", ix, capacity, err)
			log.WithField("frame", ix).Errorf("%v", err)
			return res, &FrameError{Op: "write", Index: ix, Err: err}
		}

		res.Good++
		cfg.report("write", ix, capacity, nil)
	}

	return res, nil
}
