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
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mcdino/pkg/control"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Runner = *NewRunner(
		"serve -d|--device {device} [-a|--address {address}] [-r|--retries {count}]",
		"API server command",
		`
Use the serve command for running the API server. The connection to the adapter
is opened with the first request, and kept open until the server stops. After a
communication failure, the connection is reopened with the next request.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddCardSettings()
	s.AddSetting(&s.Address, "address", "a", "MCDINO_ADDRESS", ":8888",
		"listen address and port of API server", false)
	s.AddSetting(&s.Retries, "retries", "r", "", 4,
		"additional attempts when connecting to the adapter", false)

	return s
}

//
type Serve struct {
	//
	Runner
	//
	Address string
	Retries int
}

//
func (s *Serve) Run() error {

	s.ParseSettings()

	refs, err := s.references()
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		log.Warnf("no BIOS references under %s in config, PocketStation BIOS "+
			"versions will be reported as unknown", biosReferencesKey)
	}

	api := control.NewAPIServer(s.Address, s.connect, control.Settings{
		Capacity:   s.Capacity,
		Pace:       s.Pace,
		References: refs,
		Retries:    s.Retries,
	})

	wg := &sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()
		if err := api.Serve(); err != nil {
			log.Errorf("API server closed with error: %v", err)
		} else {
			log.Info("API server stopped")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sigCount := 0
	done := make(chan bool)

	for {

		select {

		case sig := <-sigs: // interrupt signal
			log.WithField("signal", sig).Info("signal received")
			sigCount++

			switch sigCount {

			case 1:
				go func() {
					log.Info("shutting down, hit Ctrl-C twice to force exit...")
					if err := api.Stop(); err != nil {
						log.Errorf("error stopping API server: %v", err)
					}
					wg.Wait()
					log.Info("McDino stopped")
					done <- true
				}()

			case 2:
				log.Warn("shutdown in progress, hit Ctrl-C again to force exit")

			default:
				log.Warn("forcing server to stop immediately")
				os.Exit(1)
			}

		case <-done: // shutdown sequence complete
			return nil
		}
	}
}
