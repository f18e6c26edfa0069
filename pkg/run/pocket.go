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
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/xelalexv/mcdino/pkg/pocket"
)

//
func NewPocketInfo() *PocketInfo {

	p := &PocketInfo{}
	p.Runner = *NewRunner(
		"pinfo -d|--device {device}",
		"show PocketStation info",
		"\nUse the pinfo command to show serial number, date, and time of a PocketStation.",
		runnerHelpPrologue, runnerHelpEpilogue, p.Run)

	p.AddBaseSettings()
	return p
}

//
type PocketInfo struct {
	Runner
}

//
func (p *PocketInfo) Run() error {

	p.ParseSettings()

	s, err := p.connect()
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := pocket.ReadInfo(s)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "\n%s\n", info)
	return nil
}

//
func NewPocketBIOS() *PocketBIOS {

	p := &PocketBIOS{}
	p.Runner = *NewRunner(
		"pbios -d|--device {device} -o|--output {file} [-f|--force]",
		"dump PocketStation BIOS",
		`
Use the pbios command to dump the BIOS of a PocketStation into a file. McDino
does not ship any BIOS reference checksums. For identifying the BIOS version,
list known checksums under the pocket.bios key of the config file, as
"{label}={checksum}" entries. Without them, the version is reported as unknown.`,
		runnerHelpPrologue, runnerHelpEpilogue, p.Run)

	p.AddBaseSettings()
	p.AddSetting(&p.File, "output", "o", "", nil, "BIOS output file", true)
	p.AddSetting(&p.Force, "force", "f", "", false,
		"force overwriting output file", false)

	return p
}

//
type PocketBIOS struct {
	//
	Runner
	//
	File  string
	Force bool
}

//
func (p *PocketBIOS) Run() error {

	p.ParseSettings()

	refs, err := p.references()
	if err != nil {
		return err
	}

	if !p.Force {
		if _, err := os.Stat(p.File); err == nil &&
			!GetUserConfirmation("File exists, overwrite?") {
			return nil
		}
	}

	s, err := p.connect()
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := os.Create(p.File)
	if err != nil {
		return err
	}
	defer f.Close()

	out := bufio.NewWriter(f)

	ctx, cancel := p.context()
	defer cancel()

	bios, err := pocket.ReadBIOS(ctx, s, out, func(block, total int) {
		fmt.Fprintf(p.out, "\r%d / %d blocks read", block+1, total)
	})
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	fmt.Fprintln(p.out)

	if err != nil {
		return err
	}

	fmt.Fprintln(p.out, biosSummary(bios, refs))
	return nil
}

//
func biosSummary(bios *pocket.BIOS, refs pocket.References) string {
	label, _ := bios.Classify(refs)
	ret := fmt.Sprintf("BIOS: %s, version %s", bios, label)
	if len(refs) == 0 {
		ret += fmt.Sprintf("\nno BIOS references configured, add them under "+
			"the %s key of the config file for identifying the version",
			biosReferencesKey)
	}
	return ret
}

//
func NewPocketClock() *PocketClock {

	p := &PocketClock{}
	p.Runner = *NewRunner(
		"pclock -d|--device {device} [--time {RFC3339 time}]",
		"set PocketStation clock",
		`
Use the pclock command to set date and time of a PocketStation. Without --time,
the current local time is used.`,
		runnerHelpPrologue, runnerHelpEpilogue, p.Run)

	p.AddBaseSettings()
	p.AddSetting(&p.Time, "time", "", "", nil,
		"time to set, e.g. 2021-06-01T12:00:00+02:00", false)

	return p
}

//
type PocketClock struct {
	//
	Runner
	//
	Time string
}

//
func (p *PocketClock) Run() error {

	p.ParseSettings()

	when := time.Now()
	if p.Time != "" {
		var err error
		if when, err = time.Parse(time.RFC3339, p.Time); err != nil {
			return fmt.Errorf("invalid time: %v", err)
		}
	}

	s, err := p.connect()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := pocket.SetClock(s, when); err != nil {
		return err
	}

	fmt.Fprintf(p.out, "clock set to %s\n", pocket.ClockFromTime(when))
	return nil
}
