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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mcdino/pkg/adapter"
	"github.com/xelalexv/mcdino/pkg/card"
	"github.com/xelalexv/mcdino/pkg/pocket"
)

//
type APIServer interface {
	Serve() error
	Stop() error
}

// Connector opens a session to the adapter
type Connector func() (*adapter.Session, error)

//
type Settings struct {
	Capacity   int
	Pace       time.Duration
	References pocket.References
	Retries    int // additional connection attempts
}

//
const maxBackoff = 15 * time.Second

/*
	NewAPIServer creates an API server listening on addr. The adapter session
	is opened via connect when the first request comes in, and kept open until
	the server stops, or a fatal error occurs. Requests needing the adapter are
	served one at a time.
*/
func NewAPIServer(addr string, connect Connector, settings Settings) APIServer {
	if settings.Capacity <= 0 {
		settings.Capacity = card.DefaultCapacity
	}
	return &api{address: addr, connect: connect, settings: settings}
}

//
type api struct {
	address  string
	connect  Connector
	settings Settings
	server   *http.Server
	//
	mutex   sync.Mutex
	session *adapter.Session
}

//
func (a *api) Serve() error {

	addr := a.address
	if len(strings.Split(addr, ":")) < 2 {
		addr = fmt.Sprintf("%s:8888", a.address)
	}

	log.Infof("McDino API starts listening on %s", addr)
	a.server = &http.Server{Addr: addr, Handler: a.router()}

	err := a.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

//
func (a *api) Stop() error {

	var err error

	if a.server != nil {
		log.Info("API server stopping...")
		err = a.server.Shutdown(context.Background())
		a.server = nil
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.session != nil {
		if cerr := a.session.Close(); cerr != nil && err == nil {
			err = cerr
		}
		a.session = nil
	}

	return err
}

//
func (a *api) router() *mux.Router {

	router := mux.NewRouter().StrictSlash(true)

	addRoute(router, "status", "GET", "/status", a.status)
	addRoute(router, "read", "GET", "/card", a.readCard)
	addRoute(router, "write", "PUT", "/card", a.writeCard)
	addRoute(router, "verify", "PUT", "/card/verify", a.verifyCard)
	addRoute(router, "format", "PUT", "/card/format", a.formatCard)
	addRoute(router, "pinfo", "GET", "/pocket/info", a.pocketInfo)
	addRoute(router, "pbios", "GET", "/pocket/bios", a.pocketBIOS)
	addRoute(router, "pclock", "PUT", "/pocket/clock", a.pocketClock)

	return router
}

//
func addRoute(r *mux.Router, name, method, pattern string,
	handler http.HandlerFunc) {
	r.Methods(method).
		Path(pattern).
		Name(name).
		Handler(requestLogger(handler, name))
}

//
func requestLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		log.WithFields(log.Fields{
			"remote": r.RemoteAddr,
			"method": r.Method,
			"path":   r.RequestURI,
		}).Debugf("API BEGIN | %s", name)

		start := time.Now()
		inner.ServeHTTP(w, r)

		log.WithFields(log.Fields{
			"remote":   r.RemoteAddr,
			"method":   r.Method,
			"path":     r.RequestURI,
			"duration": time.Since(start),
		}).Debugf("API END   | %s", name)
	})
}

// withSession runs fn with exclusive use of the adapter session, connecting
// first if there is no open session.
func (a *api) withSession(ctx context.Context,
	fn func(s *adapter.Session) error) error {

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.session == nil || a.session.State() == adapter.StateClosed {
		if err := a.reconnect(ctx); err != nil {
			return err
		}
	}

	return fn(a.session)
}

// withCard is withSession for operations that need a card in the adapter. It
// fails with *adapter.CardNotReadyError before fn gets called, if there is no
// usable card.
func (a *api) withCard(ctx context.Context,
	fn func(s *adapter.Session) error) error {
	return a.withSession(ctx, func(s *adapter.Session) error {
		if err := s.CheckCard(); err != nil {
			return err
		}
		return fn(s)
	})
}

// reconnect opens a new session, retrying with exponential backoff
func (a *api) reconnect(ctx context.Context) error {

	a.session = nil

	for attempt, backoff := 0, time.Second; ; attempt++ {
		log.Info("connecting to adapter")
		s, err := a.connect()
		if err == nil {
			a.session = s
			return nil
		}
		log.Errorf("cannot connect to adapter: %v", err)
		if attempt >= a.settings.Retries {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

//
func (a *api) capacity(req *http.Request) (int, error) {
	if arg, _ := getArg(req, "capacity"); arg == "" {
		return a.settings.Capacity, nil
	}
	ret, err := getIntArg(req, "capacity")
	if err == nil && ret <= 0 {
		err = fmt.Errorf("invalid capacity: %d", ret)
	}
	return ret, err
}

//
func logProgress(p card.Progress) {
	if p.Err != nil {
		log.WithField("frame", p.Index).Warnf("%s: %v", p.Op, p.Err)
	} else {
		log.WithField("frame", p.Index).Tracef("%s: %d/%d", p.Op, p.Index+1, p.Total)
	}
}

// statusFor maps errors to HTTP status codes
func statusFor(err error) int {

	var ise *card.ImageSizeError
	var fce *card.FormatCapacityError
	var pae *pocket.PeripheralAbsentError
	var cnr *adapter.CardNotReadyError

	switch {
	case errors.As(err, &ise), errors.As(err, &fce):
		return http.StatusUnprocessableEntity
	case errors.As(err, &pae):
		return http.StatusNotFound
	case errors.As(err, &cnr):
		return http.StatusConflict
	case adapter.IsFatal(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

//
func getArg(req *http.Request, arg string) (string, error) {
	ret := req.URL.Query().Get(arg)
	if ret != "" {
		return url.QueryUnescape(ret)
	}
	return ret, nil
}

//
func getIntArg(req *http.Request, arg string) (int, error) {
	if val, err := getArg(req, arg); err != nil {
		return -1, err
	} else {
		if ret, err := strconv.Atoi(val); err != nil {
			return -1, err
		} else {
			return ret, nil
		}
	}
}

// readImage reads a card image from the request body, accepting at most one
// byte more than needed, so that an oversized image can be detected. Failing
// to read the body yields status 400, an image of wrong size 422.
func readImage(req *http.Request, capacity int) (*bytes.Reader, int, error) {
	data, err := ioutil.ReadAll(
		io.LimitReader(req.Body, card.ImageSize(capacity)+1))
	if err == nil {
		err = req.Body.Close()
	}
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	ret := bytes.NewReader(data)
	if err := card.CheckImage(ret, capacity); err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	return ret, http.StatusOK, nil
}

//
func setHeaders(h http.Header, contentType string) {
	h.Set("Content-Type", contentType)
}

//
func handleError(e error, statusCode int, w http.ResponseWriter) bool {

	if e == nil {
		return false
	}

	log.Errorf("%v", e)

	setHeaders(w.Header(), "text/plain; charset=UTF-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(fmt.Sprintf("%v\n", e))); err != nil {
		log.Errorf("problem writing error: %v", err)
	}

	return true
}

//
func sendReply(body []byte, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), "text/plain; charset=UTF-8")
	w.WriteHeader(statusCode)
	if _, err := fmt.Fprintf(w, "%s\n", body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendBinaryReply(body []byte, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendJSONReply(obj interface{}, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), "application/json; charset=UTF-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Errorf("problem writing reply: %v", err)
	}
}

//
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json") ||
		req.Header.Get("Content-Type") == "application/json"
}
