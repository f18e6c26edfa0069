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

package protocol

import "fmt"

// Status is the byte the adapter sends back after a frame read or write. Any
// value other than the three known codes is kept as is, so that it can be
// reported for diagnostics.
type Status byte

const (
	StatusGood        Status = 0x47 // 'G'
	StatusBadChecksum Status = 0x4e // 'N'
	StatusBadSector   Status = 0xff // bad sector, or no card present
)

//
func (s Status) IsGood() bool {
	return s == StatusGood
}

// IsKnown returns false for any status byte the adapter firmware does not
// document.
func (s Status) IsKnown() bool {
	switch s {
	case StatusGood, StatusBadChecksum, StatusBadSector:
		return true
	}
	return false
}

//
func (s Status) String() string {

	switch s {

	case StatusGood:
		return "GOOD"

	case StatusBadChecksum:
		return "BAD_CHECKSUM"

	case StatusBadSector:
		return "BAD_SECTOR"

	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(s))
	}
}
