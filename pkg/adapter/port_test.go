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

package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPortConfigDefaults(t *testing.T) {

	cfg := PortConfig{Device: "/dev/ttyUSB0"}
	cfg.setDefaults()

	assert.Equal(t, PortConfig{
		Device:   "/dev/ttyUSB0",
		BaudRate: DefaultBaudRate,
		Timeout:  DefaultTimeout,
		Driver:   DriverJacobsa,
	}, cfg)

	cfg = PortConfig{BaudRate: 115200, Timeout: time.Second, Driver: DriverBugST}
	cfg.setDefaults()
	assert.Equal(t, 115200, cfg.BaudRate)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, DriverBugST, cfg.Driver)
}

func TestOpenPortUnknownDriver(t *testing.T) {
	_, err := OpenPort(PortConfig{Device: "/dev/null", Driver: "telepathy"})
	assert.EqualError(t, err, "unknown serial driver: telepathy")
}

func TestPortInfoString(t *testing.T) {
	assert.Equal(t, "/dev/ttyS0", PortInfo{Name: "/dev/ttyS0"}.String())
	assert.Equal(t, "/dev/ttyUSB0  USB 2341:0043 Arduino Uno (serial 85735313)",
		PortInfo{Name: "/dev/ttyUSB0", USB: true, VID: "2341", PID: "0043",
			Product: "Arduino Uno", Serial: "85735313"}.String())
}
