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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mcdino/pkg/adapter"
	"github.com/xelalexv/mcdino/pkg/card"
	"github.com/xelalexv/mcdino/pkg/pocket"
)

//
const runnerHelpPrologue = ""
const runnerHelpEpilogue = `- When a flag can be set via environment variable, the variable name is given
  in parenthesis at the end of the flag explanation. Note however that a flag,
  when specified overrides an environment variable.

- Settings can also be placed in a config file (YAML, TOML, or JSON), using the
  long flag names as keys. PocketStation BIOS reference checksums are listed
  under the pocket.bios key, as "{label}={checksum}" entries.

- Logging can be configured with these environment variables:

  LOG_FORMAT		set to 'json' for JSON logging
  LOG_FORCE_COLORS	set to non-empty for forcing colorized log entries
  LOG_METHODS		set to non-empty for including methods in log
  LOG_LEVEL		panic, fatal, error, warn, info, debug, trace
`

//
const biosReferencesKey = "pocket.bios"

/*
	NewRunner creates a base runner for commands to use. The parameters are
	passed to the base command wrapped by this runner.
*/
func NewRunner(use, short, long, helpPrologue, helpEpilogue string,
	exec func() error) *Runner {
	return &Runner{
		Command: *NewCommand(
			use, short, long, helpPrologue, helpEpilogue, exec),
		out: os.Stdout,
	}
}

//
type Runner struct {
	//
	Command
	//
	Device         string
	Driver         string
	Baud           int
	Timeout        time.Duration
	Settle         time.Duration
	Capacity       int
	Pace           time.Duration
	IgnoreChecksum bool
	Config         string
	//
	cardSettings bool
	out          io.Writer
}

//
func (r *Runner) AddBaseSettings() {
	// Implementation Note: This cannot be included in NewRunner, but rather has
	// to be called from the top level command type. Otherwise, we will confuse
	// Cobra/Viper and the settings will not be filled with their values.
	r.AddSetting(&r.Device, "device", "d", "MCDINO_DEVICE", nil,
		"serial port device for adapter", true)
	r.AddSetting(&r.Baud, "baud", "b", "MCDINO_BAUD", adapter.DefaultBaudRate,
		"baud rate", false)
	r.AddSetting(&r.Driver, "driver", "", "MCDINO_DRIVER", adapter.DriverJacobsa,
		"serial driver, 'jacobsa', 'bugst', or 'term'", false)
	r.AddSetting(&r.Timeout, "timeout", "t", "", adapter.DefaultTimeout,
		"read timeout", false)
	r.AddSetting(&r.Settle, "settle", "", "", adapter.DefaultSettle,
		"time to wait for the adapter to reset after opening the port", false)
	r.AddSetting(&r.Config, "config", "", "MCDINO_CONFIG", nil,
		"config file", false)
}

// AddCardSettings adds settings needed by actions that work on the card.
func (r *Runner) AddCardSettings() {
	r.cardSettings = true
	r.AddSetting(&r.Capacity, "capacity", "c", "", card.DefaultCapacity,
		"number of frames on the card", false)
	r.AddSetting(&r.Pace, "pace", "", "", time.Duration(0),
		fmt.Sprintf("delay between frames, use %v for slow peripherals",
			card.SlowPeripheralPace), false)
	r.AddSetting(&r.IgnoreChecksum, "ignore-checksum", "i", "", false,
		"do not verify checksums of frames read from the card", false)
}

// ParseSettings reads the config file, if any, and then all settings.
func (r *Runner) ParseSettings() {
	// the config flag itself cannot come from the config file
	DieOnError(ReadConfig(os.ExpandEnv(r.configFile())))
	r.Command.ParseSettings()
	if r.cardSettings && r.Capacity <= 0 {
		Die("invalid capacity: %d\n", r.Capacity)
	}
}

//
func (r *Runner) configFile() string {
	if r.Config != "" {
		return r.Config
	}
	return os.Getenv("MCDINO_CONFIG")
}

//
func (r *Runner) portConfig() adapter.PortConfig {
	return adapter.PortConfig{
		Device:   r.Device,
		BaudRate: r.Baud,
		Timeout:  r.Timeout,
		Driver:   r.Driver,
	}
}

/*
	openImage opens a card image file for writing or verifying, and checks its
	size against the card capacity. This happens before connecting, so a wrong
	image fails without waiting for the adapter.
*/
func (r *Runner) openImage(path string) (*os.File, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if err := card.CheckImage(f, r.Capacity); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// connect opens the serial port and the adapter session on it
func (r *Runner) connect() (*adapter.Session, error) {

	ch, err := adapter.OpenPort(r.portConfig())
	if err != nil {
		return nil, err
	}

	log.WithField("device", r.Device).Infof(
		"waiting %v for adapter to settle", r.Settle)

	s, err := adapter.Open(ch, adapter.WithSettle(r.Settle),
		adapter.WithChecksumVerification(!r.IgnoreChecksum))
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(r.out, "connected to %s\n", s.Firmware())
	return s, nil
}

// connectCard connects to the adapter and checks for a card
func (r *Runner) connectCard() (*adapter.Session, error) {

	s, err := r.connect()
	if err != nil {
		return nil, err
	}

	if err := s.CheckCard(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// context returns a context that gets cancelled on SIGINT or SIGTERM
func (r *Runner) context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

//
func (r *Runner) cardOptions(verb string) []card.Option {
	return []card.Option{
		card.WithPace(r.Pace),
		card.WithProgress(progressPrinter(r.out, verb)),
	}
}

//
func (r *Runner) references() (pocket.References, error) {
	return pocket.ParseReferences(ConfigStrings(biosReferencesKey))
}

// progressPrinter renders a progress line that gets overwritten with each
// frame. Frame errors go onto their own line.
func progressPrinter(w io.Writer, verb string) card.ProgressFunc {
	return func(p card.Progress) {
		if p.Err != nil {
			fmt.Fprintf(w, "\nframe %d: %v\n", p.Index, p.Err)
		}
		fmt.Fprintf(w, "\r%d / %d frames %s", p.Index+1, p.Total, verb)
		if p.Index+1 == p.Total {
			fmt.Fprintln(w)
		}
	}
}

// ErrFramesFailed signals that an operation completed with failed frames.
var ErrFramesFailed = errors.New("operation completed with failed frames")

/*
	finish prints the tally of a card operation, and returns an error if the
	operation did not succeed for every frame.
*/
func (r *Runner) finish(res *card.Result, err error) error {

	if res != nil {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, res)
	}

	if err != nil {
		return err
	}

	if !res.Success() {
		return fmt.Errorf("%w: %d of %d", ErrFramesFailed,
			res.Total-res.Good, res.Total)
	}

	return nil
}
