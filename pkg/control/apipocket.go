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
	"bytes"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mcdino/pkg/adapter"
	"github.com/xelalexv/mcdino/pkg/pocket"
)

//
func (a *api) pocketInfo(w http.ResponseWriter, req *http.Request) {

	var info *pocket.Info
	err := a.withSession(req.Context(), func(s *adapter.Session) error {
		var e error
		info, e = pocket.ReadInfo(s)
		return e
	})

	if handleError(err, statusFor(err), w) {
		return
	}

	if wantsJSON(req) {
		sendJSONReply(newPocketInfo(info), http.StatusOK, w)
	} else {
		sendReply([]byte(info.String()), http.StatusOK, w)
	}
}

//
func (a *api) pocketBIOS(w http.ResponseWriter, req *http.Request) {

	var out bytes.Buffer
	var bios *pocket.BIOS

	err := a.withSession(req.Context(), func(s *adapter.Session) error {
		var e error
		bios, e = pocket.ReadBIOS(req.Context(), s, &out,
			func(block, total int) {
				log.WithField("block", block).Tracef("BIOS %d/%d", block+1, total)
			})
		return e
	})

	if handleError(err, statusFor(err), w) {
		return
	}

	label, _ := bios.Classify(a.settings.References)
	w.Header().Set("X-BIOS-Checksum", fmt.Sprintf("0x%08X", bios.Checksum))
	w.Header().Set("X-BIOS-Version", label)
	sendBinaryReply(out.Bytes(), http.StatusOK, w)
}

//
func (a *api) pocketClock(w http.ResponseWriter, req *http.Request) {

	arg, err := getArg(req, "time")
	if handleError(err, http.StatusBadRequest, w) {
		return
	}

	when := time.Now()
	if arg != "" {
		if when, err = time.Parse(time.RFC3339, arg); handleError(
			err, http.StatusBadRequest, w) {
			return
		}
	}

	err = a.withSession(req.Context(), func(s *adapter.Session) error {
		return pocket.SetClock(s, when)
	})

	if handleError(err, statusFor(err), w) {
		return
	}

	sendReply([]byte(fmt.Sprintf("clock set to %s",
		pocket.ClockFromTime(when))), http.StatusOK, w)
}
