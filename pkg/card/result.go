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
)

// DefaultCapacity is the number of frames on a standard memory card
const DefaultCapacity = 1024

// FrameFailure records a frame that did not make it
type FrameFailure struct {
	Index int
	Err   error
}

// Result is the tally of a whole card operation.
type Result struct {
	Op       string
	Total    int
	Good     int
	Failures []FrameFailure
}

//
func newResult(op string, total int) *Result {
	return &Result{Op: op, Total: total}
}

// Success is true only if every frame of the card was good.
func (r *Result) Success() bool {
	return r.Good == r.Total && len(r.Failures) == 0
}

//
func (r *Result) Failed() int {
	return len(r.Failures)
}

//
func (r *Result) fail(ix int, err error) {
	r.Failures = append(r.Failures, FrameFailure{Index: ix, Err: err})
}

//
func (r *Result) String() string {
	if r.Success() {
		return fmt.Sprintf("%s: all %d frames good", r.Op, r.Total)
	}
	return fmt.Sprintf("%s: %d of %d frames good, %d failed",
		r.Op, r.Good, r.Total, r.Total-r.Good)
}

// Progress is reported after each frame
type Progress struct {
	Op    string
	Index int
	Total int
	Err   error
}

// ProgressFunc is called after every frame. It should return quickly.
type ProgressFunc func(Progress)

// FrameError is the error that made a write or format run abort.
type FrameError struct {
	Op    string
	Index int
	Err   error
}

//
func (e *FrameError) Error() string {
	return fmt.Sprintf("%s aborted at frame %d: %v", e.Op, e.Index, e.Err)
}

//
func (e *FrameError) Unwrap() error {
	return e.Err
}
