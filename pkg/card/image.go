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
	"fmt"
	"io"

	"github.com/xelalexv/mcdino/pkg/protocol"
)

// FrameSession is the frame level API of an adapter session
type FrameSession interface {
	ReadFrame(index int) ([]byte, error)
	WriteFrame(index int, payload []byte) error
}

// ImageSize returns the size in bytes of a raw card image with given capacity.
func ImageSize(capacity int) int64 {
	return int64(capacity) * protocol.FrameSize
}

// ImageSizeError signals a card image not matching the card capacity.
type ImageSizeError struct {
	Want int64
	Got  int64
}

//
func (e *ImageSizeError) Error() string {
	return fmt.Sprintf("invalid image size, should be %d bytes, got %d bytes",
		e.Want, e.Got)
}

/*
	remaining tries to determine how many bytes are left to read in src, without
	consuming any. The second return value is false if that's not knowable.
*/
func remaining(src io.Reader) (int64, bool) {

	if l, ok := src.(interface{ Len() int }); ok {
		return int64(l.Len()), true
	}

	if s, ok := src.(io.Seeker); ok {
		cur, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, false
		}
		end, err := s.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, false
		}
		if _, err := s.Seek(cur, io.SeekStart); err != nil {
			return 0, false
		}
		return end - cur, true
	}

	return 0, false
}

// CheckImage fails with *ImageSizeError if src is known not to hold a complete
// image.
func CheckImage(src io.Reader, capacity int) error {
	if size, ok := remaining(src); ok && size != ImageSize(capacity) {
		return &ImageSizeError{Want: ImageSize(capacity), Got: size}
	}
	return nil
}

// nextFrame reads frame ix from a card image, turning a short image into
// *ImageSizeError.
func nextFrame(src io.Reader, ix, capacity int, buf []byte) error {
	n, err := io.ReadFull(src, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &ImageSizeError{
			Want: ImageSize(capacity),
			Got:  int64(ix)*protocol.FrameSize + int64(n),
		}
	}
	return err
}
