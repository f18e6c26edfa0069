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
	"github.com/xelalexv/mcdino/pkg/card"
)

//
func NewVerify() *Verify {

	v := &Verify{}
	v.Runner = *NewRunner(
		"verify -d|--device {device} --input {file} [-c|--capacity {frames}] [-i|--ignore-checksum]",
		"compare memory card against image file",
		`
Use the verify command to compare the contents of a memory card frame by frame
against an image file. All frames are checked, differences are listed.`,
		runnerHelpPrologue, runnerHelpEpilogue, v.Run)

	v.AddBaseSettings()
	v.AddCardSettings()
	v.AddSetting(&v.File, "input", "", "", nil, "card image file", true)

	return v
}

//
type Verify struct {
	//
	Runner
	//
	File string
}

//
func (v *Verify) Run() error {

	v.ParseSettings()

	f, err := v.openImage(v.File)
	if err != nil {
		return err
	}
	defer f.Close()

	s, err := v.connectCard()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := v.context()
	defer cancel()

	return v.finish(card.VerifyCard(ctx, s, v.Capacity, f,
		v.cardOptions("verified")...))
}
