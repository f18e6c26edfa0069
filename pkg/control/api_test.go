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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/xelalexv/mcdino/internal/testing"
	"github.com/xelalexv/mcdino/pkg/adapter"
	"github.com/xelalexv/mcdino/pkg/card"
	"github.com/xelalexv/mcdino/pkg/pocket"
)

const testCapacity = 4

type fixture struct {
	adapter  *testutil.Adapter
	api      *api
	connects int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{adapter: testutil.NewAdapter(testCapacity)}
	f.api = NewAPIServer(":0", func() (*adapter.Session, error) {
		f.connects++
		return adapter.Open(f.adapter, adapter.WithSettle(0))
	}, Settings{
		Capacity:   testCapacity,
		References: pocket.References{},
	}).(*api)
	return f
}

func (f *fixture) do(method, target string, body []byte,
	json bool) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if json {
		req.Header.Set("Accept", "application/json")
	}
	rec := httptest.NewRecorder()
	f.api.router().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {

	f := newFixture(t)

	rec := f.do("GET", "/status", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var stat Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stat))
	assert.Equal(t, "MCDINO 0.8", stat.Firmware)
	assert.True(t, stat.Ready)

	f.adapter.ReadStatus[adapter.CardCheckFrame] = 0xff
	rec = f.do("GET", "/status", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "check connections")

	// session is reused
	assert.Equal(t, 1, f.connects)
}

func TestReadCardAPI(t *testing.T) {

	f := newFixture(t)
	image := f.adapter.Fill(7)

	rec := f.do("GET", "/card", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-Failed-Frames"))
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, image, rec.Body.Bytes())

	f.adapter.BadSum[2] = true
	rec = f.do("GET", "/card", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Failed-Frames"))
	assert.Len(t, rec.Body.Bytes(), int(card.ImageSize(testCapacity)))

	rec = f.do("GET", "/card?capacity=2", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, image[:card.ImageSize(2)], rec.Body.Bytes())

	rec = f.do("GET", "/card?capacity=x", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteCardAPI(t *testing.T) {

	f := newFixture(t)
	image := testutil.NewAdapter(testCapacity).Fill(3)

	rec := f.do("PUT", "/card", image, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, image, f.adapter.Image())

	var rep Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, Report{Op: "write", Total: testCapacity,
		Good: testCapacity}, rep)

	rec = f.do("PUT", "/card", image[:100], false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid image size")

	rec = f.do("PUT", "/card", append(image, 0), false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	f.adapter.WriteStatus[1] = 0xff
	rec = f.do("PUT", "/card", image, false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestVerifyCardAPI(t *testing.T) {

	f := newFixture(t)
	image := f.adapter.Fill(9)

	rec := f.do("PUT", "/card/verify", image, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "all 4 frames good")

	f.adapter.Frames[3][0] ^= 0xff
	rec = f.do("PUT", "/card/verify", image, true)
	require.Equal(t, http.StatusConflict, rec.Code)

	var rep Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, 3, rep.Good)
	require.Len(t, rep.Failures, 1)
	assert.Contains(t, rep.Failures[0], "mismatch at frame 3")
}

func TestFormatCardAPI(t *testing.T) {

	f := newFixture(t)
	f.adapter.Fill(1)

	rec := f.do("PUT", "/card/format?mode=blank", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bytes.Repeat([]byte{0xff}, int(card.ImageSize(testCapacity))),
		f.adapter.Image())

	rec = f.do("PUT", "/card/format?mode=full", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, card.HeaderFrame(), f.adapter.Frames[0])

	rec = f.do("PUT", "/card/format?mode=bogus", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuickFormatSmallCardAPI(t *testing.T) {

	f := newFixture(t)

	rec := f.do("PUT", "/card/format", nil, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "needs at least 64 frames")
	assert.Empty(t, f.adapter.Writes)
	assert.Equal(t, 0, f.connects)
}

func TestCardNotReadyAPI(t *testing.T) {

	f := newFixture(t)
	image := f.adapter.Fill(5)
	f.adapter.ReadStatus[adapter.CardCheckFrame] = 0xff

	for _, r := range []struct {
		method string
		target string
		body   []byte
	}{
		{"GET", "/card", nil},
		{"PUT", "/card", image},
		{"PUT", "/card/verify", image},
		{"PUT", "/card/format?mode=blank", nil},
	} {
		rec := f.do(r.method, r.target, r.body, false)
		assert.Equal(t, http.StatusConflict, rec.Code, "%s %s", r.method, r.target)
		assert.Contains(t, rec.Body.String(), "check connections")
	}

	assert.Empty(t, f.adapter.Writes)
	assert.Equal(t, image, f.adapter.Image())

	// only the card checks got through
	for _, ix := range f.adapter.Reads {
		assert.Equal(t, adapter.CardCheckFrame, ix)
	}
	assert.Equal(t, 1, f.connects)
}

func TestImageSizeCheckedBeforeConnect(t *testing.T) {

	f := newFixture(t)
	short := make([]byte, card.ImageSize(testCapacity)-1)

	rec := f.do("PUT", "/card/verify", short, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid image size")

	rec = f.do("PUT", "/card", short, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Equal(t, 0, f.connects)
	assert.Empty(t, f.adapter.Requests)
}

func TestPocketAPI(t *testing.T) {

	f := newFixture(t)

	rec := f.do("GET", "/pocket/info", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	bios := make([]byte, pocket.BIOSLength)
	bios[0] = 0x10
	bios[1] = 0x20
	f.adapter.Pocket = &testutil.Pocket{
		Info: []byte{
			0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0xef, 0xbe, 0xad, 0xde,
			0x20, 0x21, 0x03, 0x07, 0x01, 0x08, 0x09, 0x10},
		BIOS: bios,
	}
	f.api.settings.References = pocket.References{0x30: "test"}

	rec = f.do("GET", "/pocket/info", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var info PocketInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "DEADBEEF", info.Serial)
	assert.Equal(t, "2021-03-07 08:09:10 (Sunday)", info.Date)

	rec = f.do("GET", "/pocket/bios", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bios, rec.Body.Bytes())
	assert.Equal(t, "0x00000030", rec.Header().Get("X-BIOS-Checksum"))
	assert.Equal(t, "test", rec.Header().Get("X-BIOS-Version"))

	rec = f.do("PUT", "/pocket/clock?time=2022-11-05T13:14:15Z", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte{0x20, 0x22, 0x11, 0x05, 0x07, 0x13, 0x14, 0x15},
		f.adapter.Pocket.Clock)

	rec = f.do("PUT", "/pocket/clock?time=yesterday", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconnectAfterFatalError(t *testing.T) {

	f := newFixture(t)

	rec := f.do("GET", "/status", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	f.adapter.Silent = true
	rec = f.do("GET", "/card", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, adapter.StateClosed, f.api.session.State())

	f.adapter.Silent = false
	rec = f.do("GET", "/status", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, f.connects)
}

func TestConnectFailure(t *testing.T) {

	a := NewAPIServer(":0", func() (*adapter.Session, error) {
		return nil, errors.New("no such port")
	}, Settings{}).(*api)

	assert.Equal(t, card.DefaultCapacity, a.settings.Capacity)

	rec := httptest.NewRecorder()
	a.router().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "no such port")

	require.NoError(t, a.Stop())
}

func TestStop(t *testing.T) {

	f := newFixture(t)
	f.do("GET", "/status", nil, false)

	require.NoError(t, f.api.Stop())
	assert.True(t, f.adapter.Closed)
	assert.Nil(t, f.api.session)
}

func TestConnectRetry(t *testing.T) {

	ad := testutil.NewAdapter(testCapacity)
	attempts := 0

	a := NewAPIServer(":0", func() (*adapter.Session, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("port busy")
		}
		return adapter.Open(ad, adapter.WithSettle(0))
	}, Settings{Capacity: testCapacity, Retries: 1}).(*api)

	rec := httptest.NewRecorder()
	a.router().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, attempts)
}
