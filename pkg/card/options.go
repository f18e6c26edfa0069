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
	"time"
)

// SlowPeripheralPace is the delay between frame writes needed by slow devices
// behind the adapter.
const SlowPeripheralPace = 150 * time.Millisecond

//
type config struct {
	pace     time.Duration
	progress ProgressFunc
}

// Option configures a whole card operation
type Option func(*config)

// WithPace sets the delay between two frame writes. Zero means no delay.
func WithPace(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.pace = d
		}
	}
}

// WithProgress sets the callback to invoke after each frame.
func WithProgress(p ProgressFunc) Option {
	return func(c *config) {
		c.progress = p
	}
}

//
func newConfig(opts []Option) *config {
	ret := &config{}
	for _, o := range opts {
		o(ret)
	}
	return ret
}

//
func (c *config) report(op string, ix, total int, err error) {
	if c.progress != nil {
		c.progress(Progress{Op: op, Index: ix, Total: total, Err: err})
	}
}

// wait sleeps for the configured pace, unless ctx gets canceled
func (c *config) wait(ctx context.Context) error {
	if c.pace <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.pace)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
