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

package main

import (
	"fmt"
	"os"

	"github.com/xelalexv/mcdino/pkg/card"
	"github.com/xelalexv/mcdino/pkg/run"
)

//
var McDinoVersion string

//
func synopsis() {
	fmt.Print(`
synopsis: mcdctl {read|write|verify|zero|qformat|format|pinfo|pbios|pclock|check|ports|serve|version} ...

run 'mcdctl {action} -h|--help' to see detailed info

`)
}

//
func version() {
	fmt.Printf("\nMcDino %s\n\n", McDinoVersion)
}

//
func main() {

	var action string
	var args []string

	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	switch action {

	case "serve":
		version()
		run.DieOnError(run.NewServe().Execute(args))

	case "read":
		run.DieOnError(run.NewRead().Execute(args))

	case "write":
		run.DieOnError(run.NewWrite().Execute(args))

	case "verify":
		run.DieOnError(run.NewVerify().Execute(args))

	case "zero":
		run.DieOnError(run.NewFormat(card.FormatBlank).Execute(args))

	case "qformat":
		run.DieOnError(run.NewFormat(card.FormatQuick).Execute(args))

	case "format":
		run.DieOnError(run.NewFormat(card.FormatFull).Execute(args))

	case "pinfo":
		run.DieOnError(run.NewPocketInfo().Execute(args))

	case "pbios":
		run.DieOnError(run.NewPocketBIOS().Execute(args))

	case "pclock":
		run.DieOnError(run.NewPocketClock().Execute(args))

	case "check":
		run.DieOnError(run.NewCheck().Execute(args))

	case "ports":
		run.DieOnError(run.NewPorts().Execute(args))

	case "version":
		version()

	case "":
		fallthrough
	case "-h":
		fallthrough
	case "--help":
		synopsis()

	default:
		run.Die("unknown action: %s\n", action)
	}
}
