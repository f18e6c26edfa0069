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
	"net/http"
	"strconv"

	"github.com/xelalexv/mcdino/pkg/adapter"
	"github.com/xelalexv/mcdino/pkg/card"
)

//
func (a *api) options() []card.Option {
	return []card.Option{
		card.WithPace(a.settings.Pace), card.WithProgress(logProgress)}
}

//
func (a *api) readCard(w http.ResponseWriter, req *http.Request) {

	capacity, err := a.capacity(req)
	if handleError(err, http.StatusBadRequest, w) {
		return
	}

	var out bytes.Buffer
	var res *card.Result

	err = a.withCard(req.Context(), func(s *adapter.Session) error {
		var e error
		res, e = card.ReadCard(req.Context(), s, capacity, &out, a.options()...)
		return e
	})

	if handleError(err, statusFor(err), w) {
		return
	}

	w.Header().Set("X-Failed-Frames", strconv.Itoa(res.Failed()))
	sendBinaryReply(out.Bytes(), http.StatusOK, w)
}

//
func (a *api) writeCard(w http.ResponseWriter, req *http.Request) {

	capacity, err := a.capacity(req)
	if handleError(err, http.StatusBadRequest, w) {
		return
	}

	src, code, err := readImage(req, capacity)
	if handleError(err, code, w) {
		return
	}

	var res *card.Result
	err = a.withCard(req.Context(), func(s *adapter.Session) error {
		var e error
		res, e = card.WriteCard(req.Context(), s, capacity, src, a.options()...)
		return e
	})

	if handleError(err, statusFor(err), w) {
		return
	}

	a.sendReport(res, http.StatusOK, w, req)
}

//
func (a *api) verifyCard(w http.ResponseWriter, req *http.Request) {

	capacity, err := a.capacity(req)
	if handleError(err, http.StatusBadRequest, w) {
		return
	}

	src, code, err := readImage(req, capacity)
	if handleError(err, code, w) {
		return
	}

	var res *card.Result
	err = a.withCard(req.Context(), func(s *adapter.Session) error {
		var e error
		res, e = card.VerifyCard(req.Context(), s, capacity, src, a.options()...)
		return e
	})

	if handleError(err, statusFor(err), w) {
		return
	}

	code = http.StatusOK
	if !res.Success() {
		code = http.StatusConflict
	}
	a.sendReport(res, code, w, req)
}

//
func (a *api) formatCard(w http.ResponseWriter, req *http.Request) {

	capacity, err := a.capacity(req)
	if handleError(err, http.StatusBadRequest, w) {
		return
	}

	arg, err := getArg(req, "mode")
	if handleError(err, http.StatusBadRequest, w) {
		return
	}

	mode, err := card.ParseFormatMode(arg)
	if handleError(err, http.StatusBadRequest, w) {
		return
	}

	err = card.CheckFormat(capacity, mode)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	var res *card.Result
	err = a.withCard(req.Context(), func(s *adapter.Session) error {
		var e error
		res, e = card.FormatCard(req.Context(), s, capacity, mode, a.options()...)
		return e
	})

	if handleError(err, statusFor(err), w) {
		return
	}

	a.sendReport(res, http.StatusOK, w, req)
}

//
func (a *api) sendReport(res *card.Result, code int, w http.ResponseWriter,
	req *http.Request) {
	rep := newReport(res)
	if wantsJSON(req) {
		sendJSONReply(rep, code, w)
	} else {
		sendReply([]byte(rep.String()), code, w)
	}
}
