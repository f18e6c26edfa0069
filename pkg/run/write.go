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
func NewWrite() *Write {

	w := &Write{}
	w.Runner = *NewRunner(
		"write -d|--device {device} --input {file} [-c|--capacity {frames}] [--pace {delay}]",
		"write image file to memory card",
		`
Use the write command to write an image file onto a memory card. The size of the
image needs to match the card capacity. Writing stops at the first frame that
fails.`,
		runnerHelpPrologue, runnerHelpEpilogue, w.Run)

	w.AddBaseSettings()
	w.AddCardSettings()
	w.AddSetting(&w.File, "input", "", "", nil, "card image input file", true)

	return w
}

//
type Write struct {
	//
	Runner
	//
	File string
}

//
func (w *Write) Run() error {

	w.ParseSettings()

	f, err := w.openImage(w.File)
	if err != nil {
		return err
	}
	defer f.Close()

	s, err := w.connectCard()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := w.context()
	defer cancel()

	return w.finish(card.WriteCard(ctx, s, w.Capacity, f,
		w.cardOptions("written")...))
}
