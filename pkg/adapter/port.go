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
	"fmt"
	"strings"
	"time"

	jserial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

//
const (
	DefaultBaudRate = 38400
	DefaultTimeout  = 2 * time.Second
)

// serial drivers
const (
	DriverJacobsa = "jacobsa"
	DriverBugST   = "bugst"
	DriverTerm    = "term"
)

//
type PortConfig struct {
	Device   string
	BaudRate int
	Timeout  time.Duration
	Driver   string
}

//
func (c *PortConfig) setDefaults() {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Driver == "" {
		c.Driver = DriverJacobsa
	}
}

/*
	OpenPort opens the serial device for the adapter, 8N1 at the configured baud
	rate. Reads on the returned channel time out after the configured timeout.
	Note that opening the port resets most Arduino boards, so the session needs
	to wait before talking to the adapter.
*/
func OpenPort(cfg PortConfig) (Channel, error) {

	cfg.setDefaults()

	log.WithFields(log.Fields{
		"device": cfg.Device,
		"baud":   cfg.BaudRate,
		"driver": cfg.Driver,
	}).Info("opening port")

	switch strings.ToLower(cfg.Driver) {

	case DriverJacobsa:
		return openJacobsa(cfg)

	case DriverBugST:
		return openBugST(cfg)

	case DriverTerm:
		return openTerm(cfg)

	default:
		return nil, fmt.Errorf("unknown serial driver: %s", cfg.Driver)
	}
}

//
func openJacobsa(cfg PortConfig) (Channel, error) {

	// inter character timeout is in ms, but the driver works with tenths of a
	// second, and 25.5s at most
	timeout := cfg.Timeout.Milliseconds()
	if timeout < 100 {
		timeout = 100
	} else if timeout > 25500 {
		timeout = 25500
	}

	return jserial.Open(jserial.OpenOptions{
		PortName:              cfg.Device,
		BaudRate:              uint(cfg.BaudRate),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            jserial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: uint(timeout),
	})
}

//
func openBugST(cfg PortConfig) (Channel, error) {

	port, err := serial.Open(cfg.Device, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(cfg.Timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("error setting read timeout: %v", err)
	}

	return port, nil
}
