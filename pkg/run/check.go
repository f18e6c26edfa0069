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

package run

import (
	"errors"
	"fmt"

	"github.com/xelalexv/mcdino/pkg/adapter"
)

//
func NewCheck() *Check {

	c := &Check{}
	c.Runner = *NewRunner(
		"check -d|--device {device}",
		"check adapter connection and memory card",
		"\nUse the check command to test the connection to the adapter, and whether a card is present.",
		runnerHelpPrologue, runnerHelpEpilogue, c.Run)

	c.AddBaseSettings()
	return c
}

//
type Check struct {
	Runner
}

//
func (c *Check) Run() error {

	c.ParseSettings()

	s, err := c.connect()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.CheckCard(); err != nil {
		var cnr *adapter.CardNotReadyError
		if errors.As(err, &cnr) {
			fmt.Fprintln(c.out, "no memory card detected")
		}
		return err
	}

	fmt.Fprintln(c.out, "memory card ready")
	return nil
}
