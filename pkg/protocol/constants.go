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

// FrameSize is the size of one addressable memory card unit
const FrameSize = 128

// MaxFrameIndex is the largest frame index that fits into a wire address
const MaxFrameIndex = 0xffff

// adapter commands
const (
	CmdGID    byte = 0xa0 // get identifier
	CmdGFV    byte = 0xa1 // get firmware version
	CmdMCR    byte = 0xa2 // read memory card frame
	CmdMCW    byte = 0xa3 // write memory card frame
	CmdMCID   byte = 0xa4 // read memory card identifier
	CmdPSInfo byte = 0xb0 // PocketStation serial, date & time
	CmdPSBios byte = 0xb1 // PocketStation BIOS block
	CmdPSTime byte = 0xb2 // set PocketStation clock
)

// Identifier is what the adapter answers to CmdGID
var Identifier = []byte("MCDINO")

//
const (
	IdentifierLength   = 6
	VersionLength      = 1
	ReadRequestLength  = 3
	ReadResponseLength = FrameSize + 2 // payload, checksum, status
	WriteRequestLength = 3 + FrameSize + 1
	StatusLength       = 1
)
