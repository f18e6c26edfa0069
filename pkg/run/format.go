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
	"fmt"

	"github.com/xelalexv/mcdino/pkg/card"
)

//
var formatHelp = map[card.FormatMode]struct{ use, short, long string }{
	card.FormatBlank: {
		"zero",
		"erase memory card",
		"\nUse the zero command to set all bytes of the memory card to 0xFF.",
	},
	card.FormatQuick: {
		"qformat",
		"quick format memory card",
		`
Use the qformat command to write the header, directory, and broken sector list
of a freshly formatted card. The remaining frames are set to 0xFF. The card
needs to have at least 64 frames.`,
	},
	card.FormatFull: {
		"format",
		"fully format memory card",
		`
Use the format command to write the header frame, and set all other frames to
zero.`,
	},
}

//
func NewFormat(mode card.FormatMode) *Format {

	h := formatHelp[mode]

	f := &Format{Mode: mode}
	f.Runner = *NewRunner(
		h.use+" -d|--device {device} [-f|--force] [-c|--capacity {frames}] [--pace {delay}]",
		h.short, h.long, runnerHelpPrologue, runnerHelpEpilogue, f.Run)

	f.AddBaseSettings()
	f.AddCardSettings()
	f.AddSetting(&f.Force, "force", "f", "", false,
		"do not ask for confirmation", false)

	return f
}

//
type Format struct {
	//
	Runner
	//
	Mode  card.FormatMode
	Force bool
}

//
func (f *Format) Run() error {

	f.ParseSettings()

	if err := card.CheckFormat(f.Capacity, f.Mode); err != nil {
		return err
	}

	if !f.Force && !GetUserConfirmation(
		fmt.Sprintf("All data on the card will be lost (%s), continue?", f.Mode)) {
		return nil
	}

	s, err := f.connectCard()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := f.context()
	defer cancel()

	return f.finish(card.FormatCard(ctx, s, f.Capacity, f.Mode,
		f.cardOptions("formatted")...))
}
