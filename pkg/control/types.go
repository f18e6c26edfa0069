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

package control

import (
	"fmt"
	"strings"

	"github.com/xelalexv/mcdino/pkg/card"
	"github.com/xelalexv/mcdino/pkg/pocket"
)

//
type Status struct {
	Firmware string `json:"firmware"`
	Card     string `json:"card"`
	Ready    bool   `json:"ready"`
}

//
func (s *Status) String() string {
	return fmt.Sprintf("firmware: %s\ncard:     %s", s.Firmware, s.Card)
}

// Report is the outcome of a card operation
type Report struct {
	Op       string   `json:"op"`
	Total    int      `json:"total"`
	Good     int      `json:"good"`
	Failures []string `json:"failures,omitempty"`
}

//
func newReport(res *card.Result) *Report {
	ret := &Report{Op: res.Op, Total: res.Total, Good: res.Good}
	for _, f := range res.Failures {
		ret.Failures = append(ret.Failures,
			fmt.Sprintf("frame %d: %v", f.Index, f.Err))
	}
	return ret
}

//
func (r *Report) String() string {
	var sb strings.Builder
	if len(r.Failures) == 0 {
		fmt.Fprintf(&sb, "%s: all %d frames good", r.Op, r.Total)
	} else {
		fmt.Fprintf(&sb, "%s: %d of %d frames good, %d failed",
			r.Op, r.Good, r.Total, r.Total-r.Good)
		for _, f := range r.Failures {
			sb.WriteString("\n")
			sb.WriteString(f)
		}
	}
	return sb.String()
}

//
type PocketInfo struct {
	Serial   string `json:"serial"`
	Date     string `json:"date"`
	DirIndex uint16 `json:"dirIndex"`
	ComFlags uint32 `json:"comFlags"`
}

//
func newPocketInfo(i *pocket.Info) *PocketInfo {
	return &PocketInfo{
		Serial:   fmt.Sprintf("%08X", i.Serial),
		Date:     i.Clock.String(),
		DirIndex: i.DirIndex,
		ComFlags: i.ComFlags,
	}
}
