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

//go:build !windows

package adapter

import (
	"fmt"

	"github.com/pkg/term"
)

// openTerm opens the device as a raw POSIX terminal, 8N1.
func openTerm(cfg PortConfig) (Channel, error) {

	t, err := term.Open(cfg.Device, term.Speed(cfg.BaudRate), term.RawMode)
	if err != nil {
		return nil, err
	}

	if err := t.SetReadTimeout(cfg.Timeout); err != nil {
		t.Close()
		return nil, fmt.Errorf("error setting read timeout: %v", err)
	}

	return t, nil
}
