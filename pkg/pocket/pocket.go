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

/*
	Package pocket implements operations on a PocketStation attached to the
	adapter in place of a memory card.

	The adapter answers each PocketStation command with a parameter byte and a
	data size byte, followed by the data. If the pair does not match what is
	expected for the command, there is no PocketStation, and no data follows.
*/
package pocket

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mcdino/pkg/protocol"
)

// expected param/datasize pairs
const (
	InfoParam  = 0x5a
	InfoSize   = 0x12
	BIOSParam  = 0x5c
	BIOSSize   = 0x80
	ClockParam = 0x5b
	ClockSize  = 0x08
)

// Commander sends adapter commands and receives responses. Close is used for
// giving up on the adapter when its replies can no longer be trusted.
type Commander interface {
	Command(cmd byte, args []byte, n int) ([]byte, error)
	Receive(n int) ([]byte, error)
	Close() error
}

// PeripheralAbsentError means there is no PocketStation attached.
type PeripheralAbsentError struct {
	Op    string
	Param byte
	Size  byte
}

//
func (e *PeripheralAbsentError) Error() string {
	return fmt.Sprintf(
		"PocketStation not found (%s: got param 0x%02X, datasize 0x%02X)",
		e.Op, e.Param, e.Size)
}

// command sends cmd and checks the param/datasize pair of the response
func command(c Commander, op string, cmd byte, args []byte,
	param, size byte) error {

	head, err := c.Command(cmd, args, 2)
	if err != nil {
		return err
	}

	if head[0] != param || head[1] != size {
		log.WithFields(log.Fields{
			"param": head[0], "size": head[1]}).Debugf("%s: unexpected reply", op)
		return &PeripheralAbsentError{Op: op, Param: head[0], Size: head[1]}
	}

	return nil
}

//
var infoLayout = map[string][2]int{
	"dirIndex": {0, 2},
	"comFlags": {2, 4},
	"serial":   {6, 4},
	"clock":    {10, 8},
}

// Info is what the PocketStation reports about itself
type Info struct {
	DirIndex uint16
	ComFlags uint32
	Serial   uint32
	Clock    Clock
}

//
func (i *Info) String() string {
	return fmt.Sprintf("serial: %08X\ndate:   %s\ndir:    %d\nflags:  %08X",
		i.Serial, i.Clock, i.DirIndex, i.ComFlags)
}

// ReadInfo retrieves serial number, date and time from the PocketStation.
func ReadInfo(c Commander) (*Info, error) {

	if err := command(c, "info", protocol.CmdPSInfo, nil,
		InfoParam, InfoSize); err != nil {
		return nil, err
	}

	data, err := c.Receive(InfoSize)
	if err != nil {
		return nil, err
	}

	rec := newRecord(infoLayout, data)
	return &Info{
		DirIndex: rec.uint16("dirIndex"),
		ComFlags: rec.uint32("comFlags"),
		Serial:   rec.uint32("serial"),
		Clock:    decodeClock(rec.slice("clock")),
	}, nil
}

// SetClock sets date and time of the PocketStation to t.
func SetClock(c Commander, t time.Time) error {
	log.WithField("time", t.Format(time.RFC3339)).Info("setting clock")
	return command(c, "set clock", protocol.CmdPSTime, ClockFromTime(t).encode(),
		ClockParam, ClockSize)
}
