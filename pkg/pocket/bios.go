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
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mcdino/pkg/adapter"
	"github.com/xelalexv/mcdino/pkg/protocol"
)

// ErrDesync means the PocketStation stopped answering properly in the middle
// of a BIOS dump.
var ErrDesync = errors.New("PocketStation reply out of sync")

// BIOS size in bytes, read in blocks of BIOSSize
const (
	BIOSLength = 16384
	BIOSBlocks = BIOSLength / BIOSSize
)

// BIOS describes a BIOS dump
type BIOS struct {
	Length   int
	Checksum uint32
}

// References maps BIOS checksums to a description of the BIOS version.
type References map[uint32]string

/*
	ParseReferences parses BIOS references given as "{label}={checksum}", with
	the checksum in decimal, or hex with 0x prefix.
*/
func ParseReferences(refs []string) (References, error) {

	ret := References{}

	for _, r := range refs {
		parts := strings.SplitN(r, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid BIOS reference: %s", r)
		}
		sum, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid checksum in BIOS reference %s: %v",
				r, err)
		}
		ret[uint32(sum)] = strings.TrimSpace(parts[0])
	}

	return ret, nil
}

//
func (r References) String() string {
	var lines []string
	for sum, label := range r {
		lines = append(lines, fmt.Sprintf("%s=0x%08X", label, sum))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// Classify looks up the BIOS checksum in refs. This is informational only,
// an unknown BIOS is no error.
func (b *BIOS) Classify(refs References) (string, bool) {
	if label, ok := refs[b.Checksum]; ok {
		return label, true
	}
	return "unknown", false
}

//
func (b *BIOS) String() string {
	return fmt.Sprintf("%d bytes, checksum 0x%08X", b.Length, b.Checksum)
}

// ProgressFunc is called after each BIOS block
type ProgressFunc func(block, total int)

/*
	ReadBIOS dumps the PocketStation's BIOS to out, block by block, while
	summing up all bytes into a 32 bit checksum. If there is no
	PocketStation, *PeripheralAbsentError is returned for the first block. An
	unexpected reply for any later block leaves the byte stream in an unknown
	state, so the session gets closed, and a fatal *adapter.TransportError
	wrapping ErrDesync is returned.
*/
func ReadBIOS(ctx context.Context, c Commander, out io.Writer,
	progress ProgressFunc) (*BIOS, error) {

	ret := &BIOS{}

	for block := 0; block < BIOSBlocks; block++ {

		if err := ctx.Err(); err != nil {
			return ret, err
		}

		err := command(c, "BIOS dump", protocol.CmdPSBios,
			[]byte{byte(block >> 8), byte(block)}, BIOSParam, BIOSSize)
		var pae *PeripheralAbsentError
		if block > 0 && errors.As(err, &pae) {
			return ret, desync(c, block, pae)
		}
		if err != nil {
			return ret, err
		}

		data, err := c.Receive(BIOSSize)
		if err != nil {
			return ret, err
		}

		for _, b := range data {
			ret.Checksum += uint32(b)
		}
		ret.Length += len(data)

		if _, err := out.Write(data); err != nil {
			return ret, fmt.Errorf("error writing BIOS block %d: %v", block, err)
		}

		log.WithField("block", block).Trace("BIOS block")
		if progress != nil {
			progress(block, BIOSBlocks)
		}
	}

	return ret, nil
}

//
func desync(c Commander, block int, pae *PeripheralAbsentError) error {
	log.WithField("block", block).Error("BIOS dump out of sync, closing session")
	if err := c.Close(); err != nil {
		log.Errorf("error closing session: %v", err)
	}
	return &adapter.TransportError{
		Op:    pae.Op,
		Frame: -1,
		Err: fmt.Errorf("%w at block %d (param 0x%02X, datasize 0x%02X)",
			ErrDesync, block, pae.Param, pae.Size),
	}
}
