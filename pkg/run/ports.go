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
	"fmt"

	"github.com/xelalexv/mcdino/pkg/adapter"
)

//
func NewPorts() *Ports {

	p := &Ports{}
	p.Runner = *NewRunner(
		"ports",
		"list serial ports",
		"\nUse the ports command to list the serial ports present on this host, for finding\nthe adapter's device.",
		runnerHelpPrologue, runnerHelpEpilogue, p.Run)

	return p
}

//
type Ports struct {
	Runner
}

//
func (p *Ports) Run() error {

	p.ParseSettings()

	ports, err := adapter.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Fprintln(p.out, "no serial ports found")
		return nil
	}

	for _, port := range ports {
		fmt.Fprintln(p.out, port)
	}
	return nil
}
