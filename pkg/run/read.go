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
	"os"

	"github.com/xelalexv/mcdino/pkg/card"
)

//
func NewRead() *Read {

	r := &Read{}
	r.Runner = *NewRunner(
		"read -d|--device {device} -o|--output {file} [-f|--force] [-c|--capacity {frames}] [-i|--ignore-checksum]",
		"read memory card into image file",
		`
Use the read command to read all frames of a memory card into an image file.
Frames that cannot be read are stored as zero frames, and reported after the run.`,
		runnerHelpPrologue, runnerHelpEpilogue, r.Run)

	r.AddBaseSettings()
	r.AddCardSettings()
	r.AddSetting(&r.File, "output", "o", "", nil, "card image output file", true)
	r.AddSetting(&r.Force, "force", "f", "", false,
		"force overwriting output file", false)

	return r
}

//
type Read struct {
	//
	Runner
	//
	File  string
	Force bool
}

//
func (r *Read) Run() error {

	r.ParseSettings()

	if !r.Force {
		if _, err := os.Stat(r.File); err == nil &&
			!GetUserConfirmation("File exists, overwrite?") {
			return nil
		}
	}

	s, err := r.connectCard()
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := os.Create(r.File)
	if err != nil {
		return err
	}
	defer f.Close()

	out := bufio.NewWriter(f)

	ctx, cancel := r.context()
	defer cancel()

	res, err := card.ReadCard(ctx, s, r.Capacity, out, r.cardOptions("read")...)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}

	return r.finish(res, err)
}
