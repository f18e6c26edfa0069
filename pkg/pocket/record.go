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

package pocket

import (
	"encoding/binary"
)

// record gives named access to fields of a fixed layout response. The layout
// maps a field name to offset and length.
type record struct {
	layout map[string][2]int
	data   []byte
}

//
func newRecord(layout map[string][2]int, data []byte) *record {
	return &record{layout: layout, data: data}
}

//
func (r *record) slice(key string) []byte {
	if ix, ok := r.layout[key]; ok {
		start := ix[0]
		end := start + ix[1]
		if 0 <= start && end <= len(r.data) {
			return r.data[start:end]
		}
	}
	return []byte{}
}

//
func (r *record) byteAt(key string) byte {
	if b := r.slice(key); len(b) == 1 {
		return b[0]
	}
	return 0
}

// little endian
func (r *record) uint16(key string) uint16 {
	if b := r.slice(key); len(b) == 2 {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

// little endian
func (r *record) uint32(key string) uint32 {
	if b := r.slice(key); len(b) == 4 {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

//
func (r *record) bcd(key string) int {
	return fromBCD(r.byteAt(key))
}

//
func toBCD(v int) byte {
	if v < 0 {
		v = 0
	}
	v %= 100
	return byte(v/10<<4 | v%10)
}

//
func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0f)
}
