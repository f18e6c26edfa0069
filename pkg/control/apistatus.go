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
	"net/http"

	"github.com/xelalexv/mcdino/pkg/adapter"
)

//
func (a *api) status(w http.ResponseWriter, req *http.Request) {

	stat := &Status{}

	err := a.withSession(req.Context(), func(s *adapter.Session) error {
		stat.Firmware = s.Firmware().String()
		if err := s.CheckCard(); err != nil {
			if adapter.IsFatal(err) {
				return err
			}
			stat.Card = err.Error()
			return nil
		}
		stat.Card = "ready"
		stat.Ready = true
		return nil
	})

	if handleError(err, statusFor(err), w) {
		return
	}

	if wantsJSON(req) {
		sendJSONReply(stat, http.StatusOK, w)
	} else {
		sendReply([]byte(stat.String()), http.StatusOK, w)
	}
}
